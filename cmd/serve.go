package cmd

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/huangsam/codetime/internal/contract"
	"github.com/huangsam/codetime/internal/server"
	"github.com/spf13/cobra"
)

// serveCmd runs the HTTP API.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the CodeTime HTTP API server",
	Long: `Serve analysis, status, query and visualization endpoints over HTTP.

Analyses run in the background on a bounded worker pool. Stale jobs are
removed on the cleanup schedule, and Prometheus metrics are exposed at /metrics.

Endpoints:
  POST   /analyze              Submit a repository
  GET    /analysis/{repo_id}   Job status and report
  DELETE /analysis/{repo_id}   Remove a job
  GET    /analyses             Recent jobs
  POST   /query                Ask a question
  GET    /visualize/{repo_id}  Chart data
  GET    /suggestions          Suggested questions
  GET    /healthz, /metrics

Examples:
  # Serve on the default address with the SQLite cache
  codetime serve

  # Listen on all interfaces and keep jobs for a day
  codetime serve --listen 0.0.0.0:8000 --retention-days 1`,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		svc, err := startServices()
		if err != nil {
			contract.LogFatal("Failed to start services", err)
		}
		defer svc.jobs.Close()

		srv := server.NewServer(svc.jobs, svc.engine, svc.metrics, cfg.Listen)
		retention := time.Duration(cfg.RetentionDays) * 24 * time.Hour
		if err := srv.ScheduleCleanup(cfg.CleanupSchedule, retention); err != nil {
			contract.LogFatal("Invalid cleanup schedule", err)
		}

		ctx, stop := signal.NotifyContext(rootCtx, os.Interrupt, syscall.SIGTERM)
		defer stop()

		slog.Info("Starting codetime", "version", version, "backend", cfg.CacheBackend, "llm", cfg.LLMProvider, "workers", cfg.Workers)
		if err := srv.Run(ctx); err != nil {
			slog.Error("Server stopped", "error", err)
		}
	},
}
