package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hotelbdd/agente-bdd/internal/flow"
	"github.com/hotelbdd/agente-bdd/internal/jobs"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP agent service",
	Long: `Start the HTTP server exposing the four agent flows.

Endpoints:
  POST /datos                 enrich a company (async, returns a job id)
  POST /datos/sync            enrich a company and wait for the result
  POST /llamada_prospeccion   place the outbound qualification call
  POST /calificar_lead        classify a lead with its full CRM history
  POST /hacer_tareas          sweep and activate pending agent tasks
  GET  /jobs/{jobID}          job status and result`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	runner, err := buildRunner(cfg)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           newRouter(runner),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("http server listening", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	zap.L().Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// jobRunner is the part of the flow runner the HTTP layer needs.
type jobRunner interface {
	Submit(ctx context.Context, task jobs.TaskType, companyID string) (*jobs.Job, error)
	RunSync(ctx context.Context, task jobs.TaskType, companyID string) (*jobs.Job, error)
	Job(jobID string) (*jobs.Job, error)
}

func newRouter(runner jobRunner) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Post("/datos", submitHandler(runner, jobs.TaskEnrichment))
	r.Post("/datos/sync", syncHandler(runner, jobs.TaskEnrichment))
	r.Post("/llamada_prospeccion", submitHandler(runner, jobs.TaskProspeccion))
	r.Post("/calificar_lead", submitHandler(runner, jobs.TaskCalificarLead))
	r.Post("/hacer_tareas", submitHandler(runner, jobs.TaskHacerTareas))
	r.Get("/jobs/{jobID}", jobHandler(runner))

	return r
}

// parseCompanyID reads the optional request body. A request without a
// company id runs against the first CRM record carrying the task's agente
// trigger value.
func parseCompanyID(r *http.Request) string {
	var req struct {
		CompanyID string `json:"company_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return ""
	}
	return req.CompanyID
}

func submitHandler(runner jobRunner, task jobs.TaskType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, err := runner.Submit(r.Context(), task, parseCompanyID(r))
		if err != nil {
			writeSubmitError(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, job)
	}
}

func syncHandler(runner jobRunner, task jobs.TaskType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, err := runner.RunSync(r.Context(), task, parseCompanyID(r))
		if err != nil {
			writeSubmitError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, job)
	}
}

func jobHandler(runner jobRunner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, err := runner.Job(chi.URLParam(r, "jobID"))
		if err != nil {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		writeJSON(w, http.StatusOK, job)
	}
}

// writeSubmitError maps registry rejections onto HTTP statuses: an active
// duplicate and the cooldown window are both conflicts, distinguished in the
// body.
func writeSubmitError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, jobs.ErrDuplicate):
		writeError(w, http.StatusConflict, "already_running")
	case errors.Is(err, jobs.ErrCooldown):
		writeError(w, http.StatusConflict, "recently_completed")
	case errors.Is(err, jobs.ErrCapacity):
		writeError(w, http.StatusServiceUnavailable, "job registry full")
	case errors.Is(err, jobs.ErrNotFound):
		writeError(w, http.StatusNotFound, "flow not configured")
	case errors.Is(err, flow.ErrNoCompany):
		writeError(w, http.StatusNotFound, "no pending company for task")
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Warn("could not encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
