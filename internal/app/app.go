// Package app wires the dashboard server's long-lived components.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nahidhasan98/perfbudget/internal/config"
	"github.com/nahidhasan98/perfbudget/internal/handlers"
	"github.com/nahidhasan98/perfbudget/internal/logger"
	"github.com/nahidhasan98/perfbudget/internal/metrics"
	"github.com/nahidhasan98/perfbudget/internal/server"
	"github.com/nahidhasan98/perfbudget/internal/storage"
)

// OpenConfig holds retry settings for opening the run history
type OpenConfig struct {
	MaxRetries      int           // Maximum number of open attempts
	InitialInterval time.Duration // Initial retry interval
	MaxInterval     time.Duration // Maximum retry interval
	Multiplier      float64       // Backoff multiplier
}

// DefaultOpenConfig retries briefly while another process holds the database
var DefaultOpenConfig = OpenConfig{
	MaxRetries:      5,
	InitialInterval: 200 * time.Millisecond,
	MaxInterval:     5 * time.Second,
	Multiplier:      2,
}

// Dashboard owns the store, live hub, HTTP server and retention scheduler
type Dashboard struct {
	Store     *storage.Store
	Hub       *server.Hub
	Metrics   *metrics.Metrics
	Server    *server.Server
	Retention *server.Retention

	cfg     *config.Config
	log     *logger.Logger
	stopped sync.Once
}

// NewDashboard opens the run history and builds the server
func NewDashboard(ctx context.Context, cfg *config.Config, project *config.Project, log *logger.Logger) (*Dashboard, error) {
	dsn := cfg.Database.DSN
	if dsn == "" {
		dsn = project.Storage.Path
	}

	store, err := OpenStore(ctx, dsn, DefaultOpenConfig, log)
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	hub := server.NewHub(m, log)
	h := handlers.New(handlers.Options{
		Store:        store,
		Live:         hub,
		Metrics:      m,
		IngestSecret: cfg.Security.IngestSecret,
		Thresholds:   project.Thresholds,
		Log:          log,
	})
	srv := server.New(cfg, h, hub, m, log)

	return &Dashboard{
		Store:     store,
		Hub:       hub,
		Metrics:   m,
		Server:    srv,
		Retention: server.NewRetention(store, srv.Limiter(), project.Storage.RetentionDays, m, log),
		cfg:       cfg,
		log:       log,
	}, nil
}

// Start starts the scheduler and the HTTP listener. Serve errors are sent to errChan.
func (d *Dashboard) Start(errChan chan<- error) error {
	if err := d.Retention.Start(server.DefaultRetentionSchedule); err != nil {
		return err
	}
	if err := d.Server.Start(errChan); err != nil {
		d.Retention.Stop()
		return err
	}
	return nil
}

// Shutdown stops accepting requests, waits for running jobs and closes the store
func (d *Dashboard) Shutdown(ctx context.Context) error {
	var err error
	d.stopped.Do(func() {
		if shutdownErr := d.Server.Shutdown(ctx); shutdownErr != nil {
			err = shutdownErr
		}
		d.Retention.Stop()
		if closeErr := d.Store.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close run history: %w", closeErr)
		}
		d.log.Info("Dashboard shutdown complete")
	})
	return err
}

// OpenStore opens the run history, retrying with exponential backoff
func OpenStore(ctx context.Context, dsn string, cfg OpenConfig, log *logger.Logger) (*storage.Store, error) {
	interval := cfg.InitialInterval
	var lastErr error

	for attempt := 1; attempt <= cfg.MaxRetries; attempt++ {
		store, err := storage.Open(ctx, dsn)
		if err == nil {
			if attempt > 1 {
				log.Infof("Run history opened after %d attempts", attempt)
			}
			return store, nil
		}
		lastErr = err
		log.Warnf("Opening run history failed (attempt %d/%d): %v", attempt, cfg.MaxRetries, err)

		if attempt == cfg.MaxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}

		// Calculate next interval with exponential backoff
		interval = time.Duration(float64(interval) * cfg.Multiplier)
		if interval > cfg.MaxInterval {
			interval = cfg.MaxInterval
		}
	}

	return nil, fmt.Errorf("failed to open run history %s: %w", dsn, lastErr)
}
