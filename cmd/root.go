package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hotelbdd/agente-bdd/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "agente-bdd",
	Short: "Hotel CRM agent service",
	Long: "Enriches hotel company records from Google Places, TripAdvisor, and web search, " +
		"places outbound qualification calls, classifies leads with Claude, and activates " +
		"scheduled agent tasks against HubSpot.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
