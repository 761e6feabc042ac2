package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nahidhasan98/perfbudget/internal/app"
	"github.com/nahidhasan98/perfbudget/internal/config"
	"github.com/nahidhasan98/perfbudget/internal/logger"
)

func newServeCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the dashboard API",
		Long: `Run the dashboard API over the run history.

Settings come from the environment (PERFBUDGET_SERVER_PORT, PERFBUDGET_API_KEYS,
PERFBUDGET_INGEST_SECRET, PERFBUDGET_DB_DSN, ...) or a .env file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if err := cfg.ValidateServe(); err != nil {
				return fmt.Errorf("config validation failed: %w", err)
			}
			project, err := e.loadProject()
			if err != nil {
				return err
			}

			// Server logs follow PERFBUDGET_LOG_* unless --log-level was given
			log := logger.NewWithWriter(e.errOut, cfg.Log.Level, cfg.Log.Format)
			if cmd.Flags().Changed("log-level") {
				log = logger.NewWithWriter(e.errOut, e.logLevel, cfg.Log.Format)
			}
			return serve(cmd.Context(), cfg, project, log)
		},
	}
}

func serve(parent context.Context, cfg *config.Config, project *config.Project, log *logger.Logger) error {
	// Create a context for graceful shutdown
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	// Create a wait group for graceful shutdown
	var wg sync.WaitGroup
	errChan := make(chan error, 2)

	log.Info("Starting perfbudget dashboard")

	dashboard, err := app.NewDashboard(ctx, cfg, project, log)
	if err != nil {
		return err
	}

	// Start the web server
	if err := dashboard.Start(errChan); err != nil {
		_ = dashboard.Store.Close()
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	wg.Go(func() {
		// Keep the server running until shutdown
		<-ctx.Done()
		log.Info("HTTP server shutting down...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := dashboard.Shutdown(shutdownCtx); err != nil {
			log.Error("Error during HTTP server shutdown", err)
		}
	})

	// Wait for the server to fail or for an interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	var serveErr error
	select {
	case serveErr = <-errChan:
		log.Error("Service failed", serveErr)
	case <-sigChan:
		log.Info("Received shutdown signal")
	case <-parent.Done():
	}

	// Cancel context to signal goroutines to shutdown
	cancel()

	// Wait for all goroutines to finish
	wg.Wait()

	log.Info("Application stopped")
	return serveErr
}
