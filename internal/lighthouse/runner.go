package lighthouse

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/nahidhasan98/perfbudget/internal/logger"
)

// Runner produces one raw Lighthouse JSON report per call
type Runner interface {
	Run(ctx context.Context, url string) ([]byte, error)
}

// CLIRunner shells out to the lighthouse binary
type CLIRunner struct {
	Binary  string
	Preset  string
	Timeout time.Duration
}

// Args returns the command-line arguments for one audit
func (r CLIRunner) Args(url string) []string {
	args := []string{
		url,
		"--output=json",
		"--output-path=stdout",
		"--quiet",
		"--chrome-flags=--headless",
	}
	if r.Preset == "desktop" {
		args = append(args, "--preset=desktop")
	}
	return args
}

// Run executes one audit and returns the report bytes
func (r CLIRunner) Run(ctx context.Context, url string) ([]byte, error) {
	binary := r.Binary
	if binary == "" {
		binary = "lighthouse"
	}
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, binary, r.Args(url)...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("lighthouse timed out after %s for %s", r.Timeout, url)
		}
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return nil, fmt.Errorf("lighthouse failed for %s: %w: %s", url, err, msg)
		}
		return nil, fmt.Errorf("lighthouse failed for %s: %w", url, err)
	}
	return stdout.Bytes(), nil
}

// Collector runs audits and aggregates them into per-URL medians
type Collector struct {
	runner Runner
	runs   int
	log    *logger.Logger
}

// NewCollector creates a collector; runs below 1 become 1
func NewCollector(runner Runner, runs int, log *logger.Logger) *Collector {
	if runs < 1 {
		runs = 1
	}
	return &Collector{runner: runner, runs: runs, log: log}
}

// Collect audits every URL c.runs times. A URL whose every run fails is an
// error; individual failed runs are logged and skipped.
func (c *Collector) Collect(ctx context.Context, urls []string) ([]PageMetrics, error) {
	pages := make([]PageMetrics, 0, len(urls))

	for _, url := range urls {
		var samples []Metrics
		var lastErr error

		for i := 0; i < c.runs; i++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			start := time.Now()
			data, err := c.runner.Run(ctx, url)
			if err == nil {
				var m Metrics
				m, err = ParseReport(data)
				if err == nil {
					samples = append(samples, m)
				}
			}
			if err != nil {
				lastErr = err
				c.log.Warnf("Lighthouse run %d for %s failed: %v", i+1, url, err)
				continue
			}
			c.log.Debugf("Lighthouse run %d for %s completed in %s", i+1, url, time.Since(start))
		}

		if len(samples) == 0 {
			return nil, fmt.Errorf("all lighthouse runs failed for %s: %w", url, lastErr)
		}

		pages = append(pages, PageMetrics{
			URL:     url,
			Runs:    len(samples),
			Metrics: Median(samples),
		})
	}

	return pages, nil
}

// Aggregate folds several pages into a single worst-case view: the largest
// value per metric, except performance where the lowest score wins.
func Aggregate(pages []PageMetrics) Metrics {
	var out Metrics
	for _, name := range MetricNames {
		found := false
		var worst float64
		for _, p := range pages {
			v, ok := p.Metrics.Get(name)
			if !ok {
				continue
			}
			if !found || (name == "performance" && v < worst) || (name != "performance" && v > worst) {
				worst = v
				found = true
			}
		}
		if found {
			_ = out.Set(name, worst)
		}
	}
	return out
}
