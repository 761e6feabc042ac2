package server

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nahidhasan98/perfbudget/internal/logger"
	"github.com/nahidhasan98/perfbudget/internal/metrics"
)

type fakePruner struct {
	cutoff time.Time
	n      int64
	err    error
}

func (p *fakePruner) Prune(_ context.Context, olderThan time.Time) (int64, error) {
	p.cutoff = olderThan
	return p.n, p.err
}

func TestPruneNow(t *testing.T) {
	p := &fakePruner{n: 3}
	r := NewRetention(p, nil, 30, metrics.New(), logger.Nop())
	now := time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	n, err := r.PruneNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.Equal(t, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), p.cutoff)
}

func TestPruneNow_Disabled(t *testing.T) {
	p := &fakePruner{n: 3}
	r := NewRetention(p, nil, 0, nil, nil)

	n, err := r.PruneNow(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.True(t, p.cutoff.IsZero())
}

func TestPruneNow_Error(t *testing.T) {
	r := NewRetention(&fakePruner{err: errors.New("locked")}, nil, 7, nil, nil)
	_, err := r.PruneNow(context.Background())
	assert.Error(t, err)
}

func TestRetentionStart(t *testing.T) {
	r := NewRetention(&fakePruner{}, nil, 7, nil, nil)
	assert.Error(t, r.Start("every now and then"))

	r = NewRetention(&fakePruner{}, nil, 7, nil, nil)
	require.NoError(t, r.Start(""))
	assert.Len(t, r.cron.Entries(), 1)
	r.Stop()
}
