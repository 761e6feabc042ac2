package handlers

import (
	"context"

	"github.com/nahidhasan98/perfbudget/internal/config"
	"github.com/nahidhasan98/perfbudget/internal/logger"
	"github.com/nahidhasan98/perfbudget/internal/metrics"
	"github.com/nahidhasan98/perfbudget/internal/models"
	"github.com/nahidhasan98/perfbudget/internal/storage"
	"github.com/nahidhasan98/perfbudget/internal/validation"
)

// RunStore is the run history the dashboard reads and ingests into
type RunStore interface {
	Ping(ctx context.Context) error
	SaveRun(ctx context.Context, run *storage.Run) error
	GetRun(ctx context.Context, id string) (*storage.Run, error)
	ListRuns(ctx context.Context, opts storage.ListOptions) ([]storage.Run, error)
	Trend(ctx context.Context, metric, branch string, limit int) ([]storage.TrendPoint, error)
}

// Broadcaster pushes events to live subscribers
type Broadcaster interface {
	Broadcast(event models.LiveEvent)
}

// Options holds handler dependencies
type Options struct {
	Store        RunStore
	Live         Broadcaster
	Metrics      *metrics.Metrics
	IngestSecret string
	Thresholds   config.Thresholds
	Log          *logger.Logger
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	store        RunStore
	live         Broadcaster
	metrics      *metrics.Metrics
	ingestSecret string
	thresholds   config.Thresholds
	log          *logger.Logger
	validator    *validation.Validator
}

// New creates a new handler instance
func New(opts Options) *Handler {
	log := opts.Log
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{
		store:        opts.Store,
		live:         opts.Live,
		metrics:      opts.Metrics,
		ingestSecret: opts.IngestSecret,
		thresholds:   opts.Thresholds,
		log:          log,
		validator:    validation.New(),
	}
}
