package server

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/nahidhasan98/perfbudget/internal/logger"
	"github.com/nahidhasan98/perfbudget/internal/metrics"
)

const (
	// DefaultRetentionSchedule runs pruning once a day at midnight
	DefaultRetentionSchedule = "@daily"

	// Rate limiter entries idle this long are forgotten
	limiterIdle = time.Hour
)

// Pruner deletes runs older than a cutoff
type Pruner interface {
	Prune(ctx context.Context, olderThan time.Time) (int64, error)
}

// Sweeper forgets idle rate limit clients
type Sweeper interface {
	Cleanup(maxIdle time.Duration) int
}

// Retention schedules periodic housekeeping
type Retention struct {
	cron    *cron.Cron
	store   Pruner
	sweeper Sweeper
	days    int
	metrics *metrics.Metrics
	log     *logger.Logger
	now     func() time.Time
}

// NewRetention prunes runs older than days. days == 0 disables pruning.
func NewRetention(store Pruner, sweeper Sweeper, days int, m *metrics.Metrics, log *logger.Logger) *Retention {
	if log == nil {
		log = logger.Nop()
	}
	return &Retention{
		cron:    cron.New(),
		store:   store,
		sweeper: sweeper,
		days:    days,
		metrics: m,
		log:     log,
		now:     time.Now,
	}
}

// Start registers the jobs on schedule and starts the scheduler
func (r *Retention) Start(schedule string) error {
	if schedule == "" {
		schedule = DefaultRetentionSchedule
	}

	if r.days > 0 && r.store != nil {
		if _, err := r.cron.AddFunc(schedule, func() {
			if _, err := r.PruneNow(context.Background()); err != nil {
				r.log.Error("Retention prune failed", err)
			}
		}); err != nil {
			return fmt.Errorf("invalid retention schedule %q: %w", schedule, err)
		}
		r.log.Infof("Retention enabled: runs older than %d days are pruned (%s)", r.days, schedule)
	}

	if r.sweeper != nil {
		if _, err := r.cron.AddFunc("@hourly", func() {
			if n := r.sweeper.Cleanup(limiterIdle); n > 0 {
				r.log.Debugf("Forgot %d idle rate limit clients", n)
			}
		}); err != nil {
			return fmt.Errorf("failed to schedule rate limiter cleanup: %w", err)
		}
	}

	r.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for a running job
func (r *Retention) Stop() {
	<-r.cron.Stop().Done()
}

// PruneNow deletes runs past the retention window
func (r *Retention) PruneNow(ctx context.Context) (int64, error) {
	if r.days <= 0 || r.store == nil {
		return 0, nil
	}

	cutoff := r.now().AddDate(0, 0, -r.days)
	n, err := r.store.Prune(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	if r.metrics != nil {
		r.metrics.RecordPrune(n)
	}
	r.log.Infof("Pruned %d runs older than %s", n, cutoff.Format(time.DateOnly))
	return n, nil
}
