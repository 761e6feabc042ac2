// Package check runs a complete performance budget check for one build.
package check

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nahidhasan98/perfbudget/internal/analyzer"
	"github.com/nahidhasan98/perfbudget/internal/config"
	"github.com/nahidhasan98/perfbudget/internal/lighthouse"
	"github.com/nahidhasan98/perfbudget/internal/logger"
	"github.com/nahidhasan98/perfbudget/internal/scanner"
	"github.com/nahidhasan98/perfbudget/internal/storage"
	"github.com/nahidhasan98/perfbudget/internal/threshold"
)

// Store is the run history used for baselines
type Store interface {
	LatestRun(ctx context.Context, branch string) (*storage.Run, error)
	SaveRun(ctx context.Context, run *storage.Run) error
}

// Options control a single check
type Options struct {
	Branch         string
	BaselineBranch string
	Commit         string
	PRNumber       int
	SkipLighthouse bool
	Save           bool
}

// Baseline identifies the stored run a check compared against
type Baseline struct {
	RunID     string    `json:"runId" yaml:"runId"`
	Branch    string    `json:"branch" yaml:"branch"`
	Commit    string    `json:"commit,omitempty" yaml:"commit,omitempty"`
	TotalSize int64     `json:"totalSize" yaml:"totalSize"`
	CreatedAt time.Time `json:"createdAt" yaml:"createdAt"`
}

// ChunkResult is the growth classification of one modified chunk
type ChunkResult struct {
	ID      string           `json:"id" yaml:"id"`
	OldSize int64            `json:"oldSize" yaml:"oldSize"`
	NewSize int64            `json:"newSize" yaml:"newSize"`
	Result  threshold.Result `json:"result" yaml:"result"`
}

// MetricResult is the classification of one runtime metric
type MetricResult struct {
	Metric string           `json:"metric" yaml:"metric"`
	Value  float64          `json:"value" yaml:"value"`
	Limit  float64          `json:"limit" yaml:"limit"`
	Result threshold.Result `json:"result" yaml:"result"`
}

// Report is everything one check produced
type Report struct {
	RunID          string                   `json:"runId,omitempty" yaml:"runId,omitempty"`
	Branch         string                   `json:"branch" yaml:"branch"`
	Commit         string                   `json:"commit,omitempty" yaml:"commit,omitempty"`
	PRNumber       int                      `json:"prNumber,omitempty" yaml:"prNumber,omitempty"`
	CreatedAt      time.Time                `json:"createdAt" yaml:"createdAt"`
	Chunks         []analyzer.Chunk         `json:"chunks" yaml:"chunks"`
	Analysis       *analyzer.BundleAnalysis `json:"analysis" yaml:"analysis"`
	Budgets        []analyzer.BudgetResult  `json:"budgets" yaml:"budgets"`
	Baseline       *Baseline                `json:"baseline,omitempty" yaml:"baseline,omitempty"`
	Diff           *analyzer.BundleDiff     `json:"diff,omitempty" yaml:"diff,omitempty"`
	BundleResult   threshold.Result         `json:"bundleResult" yaml:"bundleResult"`
	ChunkResults   []ChunkResult            `json:"chunkResults,omitempty" yaml:"chunkResults,omitempty"`
	Pages          []lighthouse.PageMetrics `json:"pages,omitempty" yaml:"pages,omitempty"`
	RuntimeResults []MetricResult           `json:"runtimeResults,omitempty" yaml:"runtimeResults,omitempty"`
	Score          int                      `json:"score" yaml:"score"`
	Status         threshold.Status         `json:"status" yaml:"status"`
	Blocked        bool                     `json:"blocked" yaml:"blocked"`
	Warn           bool                     `json:"warn" yaml:"warn"`
}

// Results returns every classification that takes part in scoring
func (r *Report) Results() []threshold.Result {
	results := make([]threshold.Result, 0, len(r.Budgets)+len(r.ChunkResults)+len(r.RuntimeResults)+1)
	results = append(results, r.BundleResult)
	for _, b := range r.Budgets {
		results = append(results, threshold.FromBudget(b))
	}
	for _, c := range r.ChunkResults {
		results = append(results, c.Result)
	}
	for _, m := range r.RuntimeResults {
		results = append(results, m.Result)
	}
	return results
}

// Run converts the report into a storable run
func (r *Report) Run() *storage.Run {
	var total int64
	chunkCount := len(r.Chunks)
	if r.Analysis != nil {
		total = r.Analysis.TotalSize
		chunkCount = r.Analysis.ChunkCount
	}
	return &storage.Run{
		ID:         r.RunID,
		Branch:     r.Branch,
		Commit:     r.Commit,
		PRNumber:   r.PRNumber,
		CreatedAt:  r.CreatedAt,
		TotalSize:  total,
		ChunkCount: chunkCount,
		Score:      r.Score,
		Status:     string(r.Status),
		Budgets:    r.Budgets,
		Chunks:     r.Chunks,
		Pages:      r.Pages,
	}
}

// Checker runs checks against one project configuration
type Checker struct {
	project *config.Project
	store   Store
	runner  lighthouse.Runner
	log     *logger.Logger
	engine  threshold.Engine
	now     func() time.Time
}

// NewChecker creates a checker. store and runner may be nil: without a store
// every check is a baseline, without a runner runtime metrics are skipped.
func NewChecker(project *config.Project, store Store, runner lighthouse.Runner, log *logger.Logger) *Checker {
	if log == nil {
		log = logger.Nop()
	}
	return &Checker{
		project: project,
		store:   store,
		runner:  runner,
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Run executes the check
func (c *Checker) Run(ctx context.Context, opts Options) (*Report, error) {
	p := c.project

	chunks, err := scanner.Scan(p.Build.Dir, p.Build.Stats)
	if err != nil {
		return nil, err
	}
	c.log.Debugf("Scanned %d chunks from %s", len(chunks), p.Build.Dir)

	a := analyzer.New(c.log)
	report := &Report{
		Branch:    opts.Branch,
		Commit:    opts.Commit,
		PRNumber:  opts.PRNumber,
		CreatedAt: c.now(),
		Chunks:    chunks,
		Analysis:  a.AnalyzeChunks(chunks),
		Budgets:   a.CheckBudget(chunks, p.Budgets),
	}

	if err := c.compareBaseline(ctx, a, report, opts); err != nil {
		return nil, err
	}

	if p.Lighthouse.Enabled && !opts.SkipLighthouse && c.runner != nil {
		if err := c.measureRuntime(ctx, report); err != nil {
			return nil, err
		}
	}

	results := report.Results()
	report.Score = threshold.CalculateScore(results)
	report.Blocked = threshold.ShouldBlockPR(results)
	report.Warn = threshold.ShouldWarn(results)
	switch {
	case report.Blocked:
		report.Status = threshold.StatusFail
	case report.Warn:
		report.Status = threshold.StatusWarn
	default:
		report.Status = threshold.StatusPass
	}

	if opts.Save && c.store != nil {
		run := report.Run()
		if err := c.store.SaveRun(ctx, run); err != nil {
			return nil, fmt.Errorf("failed to save run: %w", err)
		}
		report.RunID = run.ID
		c.log.Infof("Saved run %s on branch %s", run.ID, run.Branch)
	}

	return report, nil
}

func (c *Checker) compareBaseline(ctx context.Context, a *analyzer.Analyzer, report *Report, opts Options) error {
	t := c.project.Thresholds
	current := float64(report.Analysis.TotalSize)

	var previous *storage.Run
	if c.store != nil {
		branch := opts.BaselineBranch
		if branch == "" {
			branch = c.project.Storage.BaselineBranch
		}
		run, err := c.store.LatestRun(ctx, branch)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			c.log.Infof("No baseline run on branch %s", branch)
		case err != nil:
			return fmt.Errorf("failed to load baseline: %w", err)
		default:
			previous = run
		}
	}

	if previous == nil {
		report.BundleResult = c.engine.CompareBundleSize(current, 0, t.Regression, t.Warning)
		return nil
	}

	report.Baseline = &Baseline{
		RunID:     previous.ID,
		Branch:    previous.Branch,
		Commit:    previous.Commit,
		TotalSize: previous.TotalSize,
		CreatedAt: previous.CreatedAt,
	}
	report.Diff = a.CompareBundles(report.Chunks, previous.Chunks)
	report.BundleResult = c.engine.CompareBundleSize(current, float64(previous.TotalSize), t.Regression, t.Warning)

	for _, m := range report.Diff.ModifiedChunks {
		report.ChunkResults = append(report.ChunkResults, ChunkResult{
			ID:      m.Chunk.ID,
			OldSize: m.OldSize,
			NewSize: m.NewSize,
			Result:  c.engine.CompareBundleSize(float64(m.NewSize), float64(m.OldSize), t.Regression, t.Warning),
		})
	}
	return nil
}

func (c *Checker) measureRuntime(ctx context.Context, report *Report) error {
	lh := c.project.Lighthouse
	pages, err := lighthouse.NewCollector(c.runner, lh.Runs, c.log).Collect(ctx, lh.URLs)
	if err != nil {
		return fmt.Errorf("failed to collect runtime metrics: %w", err)
	}
	report.Pages = pages

	limits := c.project.Runtime.Limits()
	worst := lighthouse.Aggregate(pages)
	for _, name := range config.RuntimeMetrics {
		limit, hasLimit := limits[name]
		value, measured := worst.Get(name)
		if !hasLimit || !measured {
			continue
		}
		report.RuntimeResults = append(report.RuntimeResults, MetricResult{
			Metric: name,
			Value:  value,
			Limit:  limit,
			Result: c.engine.CompareRuntimeMetric(value, limits, name),
		})
	}
	return nil
}
