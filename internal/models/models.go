package models

import (
	"time"

	"github.com/nahidhasan98/perfbudget/internal/analyzer"
	"github.com/nahidhasan98/perfbudget/internal/storage"
	"github.com/nahidhasan98/perfbudget/internal/threshold"
)

// RunSummary is a run without its chunks and page metrics
type RunSummary struct {
	ID         string    `json:"id"`
	Branch     string    `json:"branch"`
	Commit     string    `json:"commit,omitempty"`
	PRNumber   int       `json:"prNumber,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	TotalSize  int64     `json:"totalSize"`
	ChunkCount int       `json:"chunkCount"`
	Score      int       `json:"score"`
	Status     string    `json:"status"`
}

// NewRunSummary builds a summary from a stored run
func NewRunSummary(run *storage.Run) RunSummary {
	return RunSummary{
		ID:         run.ID,
		Branch:     run.Branch,
		Commit:     run.Commit,
		PRNumber:   run.PRNumber,
		CreatedAt:  run.CreatedAt,
		TotalSize:  run.TotalSize,
		ChunkCount: run.ChunkCount,
		Score:      run.Score,
		Status:     run.Status,
	}
}

// RunListResponse is the body of GET /api/runs
type RunListResponse struct {
	Runs   []RunSummary `json:"runs"`
	Limit  int          `json:"limit"`
	Offset int          `json:"offset"`
}

// DiffResponse is the body of GET /api/diff
type DiffResponse struct {
	Base   RunSummary           `json:"base"`
	Head   RunSummary           `json:"head"`
	Diff   *analyzer.BundleDiff `json:"diff"`
	Result threshold.Result     `json:"result"`
}

// TrendResponse is the body of GET /api/trends
type TrendResponse struct {
	Metric string               `json:"metric"`
	Branch string               `json:"branch,omitempty"`
	Points []storage.TrendPoint `json:"points"`
}

// IngestResponse is returned after a run upload
type IngestResponse struct {
	Status string `json:"status"`
	RunID  string `json:"runId"`
}

// LiveEvent is pushed to live stream subscribers
type LiveEvent struct {
	Type string     `json:"type"`
	Run  RunSummary `json:"run"`
}
