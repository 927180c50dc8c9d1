package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/hotelbdd/agente-bdd/internal/jobs"
)

var runCmd = &cobra.Command{
	Use:   "run <datos|llamada_prospeccion|calificar_lead|hacer_tareas> [company-id]",
	Short: "Run one flow inline and print the result",
	Long: `Execute a single flow synchronously, without the HTTP server.

Examples:
  # Enrich one company
  run datos 14598276509

  # Place the qualification call
  run llamada_prospeccion 14598276509

  # Sweep pending agent tasks
  run hacer_tareas`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	task := jobs.TaskType(args[0])
	companyID := ""
	if len(args) > 1 {
		companyID = args[1]
	}

	runner, err := buildRunner(cfg)
	if err != nil {
		return err
	}

	job, err := runner.RunSync(cmd.Context(), task, companyID)
	if err != nil {
		return eris.Wrapf(err, "run %s", task)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(job); err != nil {
		return eris.Wrap(err, "encode result")
	}
	if job.Status == jobs.StatusFailed {
		return fmt.Errorf("job failed: %s", job.Error)
	}
	return nil
}
