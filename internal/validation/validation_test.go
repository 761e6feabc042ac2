package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nahidhasan98/perfbudget/internal/analyzer"
	"github.com/nahidhasan98/perfbudget/internal/errors"
	"github.com/nahidhasan98/perfbudget/internal/lighthouse"
	"github.com/nahidhasan98/perfbudget/internal/storage"
)

func validRun() *storage.Run {
	return &storage.Run{
		Branch:    "main",
		Commit:    "0123abcd",
		TotalSize: 30,
		Score:     100,
		Status:    "pass",
		Chunks: []analyzer.Chunk{
			{ID: "main.js", Size: 10},
			{ID: "webpack.js", Size: 20},
		},
	}
}

func TestValidateRunUpload(t *testing.T) {
	v := New()
	assert.Nil(t, v.ValidateRunUpload(validRun()))

	tests := []struct {
		name   string
		mutate func(r *storage.Run)
		msg    string
	}{
		{"missing branch", func(r *storage.Run) { r.Branch = " " }, "branch"},
		{"bad id", func(r *storage.Run) { r.ID = "../etc" }, "run id"},
		{"bad commit", func(r *storage.Run) { r.Commit = "HEAD" }, "commit"},
		{"negative pr", func(r *storage.Run) { r.PRNumber = -1 }, "prNumber"},
		{"bad status", func(r *storage.Run) { r.Status = "ok" }, "status"},
		{"score range", func(r *storage.Run) { r.Score = 101 }, "score"},
		{"no chunks", func(r *storage.Run) { r.Chunks = nil; r.TotalSize = 0 }, "at least one chunk"},
		{"chunk without id", func(r *storage.Run) { r.Chunks[0].ID = "" }, "chunks[0].id"},
		{"negative chunk", func(r *storage.Run) { r.Chunks[1].Size = -20; r.TotalSize = -10 }, "chunks[1].size"},
		{"total mismatch", func(r *storage.Run) { r.TotalSize = 31 }, "does not match"},
		{"page without url", func(r *storage.Run) { r.Pages = []lighthouse.PageMetrics{{}} }, "pages[0].url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validRun()
			tt.mutate(r)
			appErr := v.ValidateRunUpload(r)
			require.NotNil(t, appErr)
			assert.Equal(t, errors.ErrCodeValidationFailed, appErr.Code)
			assert.Contains(t, appErr.Message, tt.msg)
		})
	}

	appErr := v.ValidateRunUpload(nil)
	require.NotNil(t, appErr)
	assert.Equal(t, errors.ErrCodeInvalidRequest, appErr.Code)
}

func TestValidateQueryParams(t *testing.T) {
	v := New()

	assert.Nil(t, v.ValidateQueryParams(map[string]string{"limit": "50", "offset": "0", "metric": "lcp"}))
	assert.Nil(t, v.ValidateQueryParams(map[string]string{"limit": "", "offset": ""}))

	for _, params := range []map[string]string{
		{"limit": "0"},
		{"limit": "1001"},
		{"limit": "ten"},
		{"offset": "-1"},
		{"offset": "x"},
		{"metric": "fid"},
	} {
		assert.NotNil(t, v.ValidateQueryParams(params), params)
	}
}

func TestValidateMetric(t *testing.T) {
	v := New()
	assert.Nil(t, v.ValidateMetric("total_size"))
	assert.NotNil(t, v.ValidateMetric(""))
	assert.NotNil(t, v.ValidateMetric("speed_index"))
}

func TestIsValidRunID(t *testing.T) {
	v := New()
	assert.True(t, v.IsValidRunID("8a6e0804-2bd0-4672-b79d-d97027f9071a"))
	assert.False(t, v.IsValidRunID(""))
	assert.False(t, v.IsValidRunID("a/b"))
}

func TestIntParam(t *testing.T) {
	assert.Equal(t, 20, IntParam("", 20))
	assert.Equal(t, 5, IntParam("5", 20))
	assert.Equal(t, 20, IntParam("x", 20))
}
