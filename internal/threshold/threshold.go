// Package threshold classifies measured values against configured limits.
package threshold

import (
	"fmt"
	"math"
	"strings"

	"github.com/nahidhasan98/perfbudget/internal/analyzer"
)

// Status is the outcome class of one comparison.
type Status string

const (
	StatusPass Status = "pass"
	StatusWarn Status = "warn"
	StatusFail Status = "fail"
)

// BaselineMessage is attached when there is no previous measurement.
const BaselineMessage = "no previous data, baseline"

// Result is the classification of one comparison. Delta units depend on the
// metric (bytes for bundles, milliseconds or unitless for runtime metrics).
type Result struct {
	Passed  bool    `json:"passed" yaml:"passed"`
	Delta   float64 `json:"delta" yaml:"delta"`
	Status  Status  `json:"status" yaml:"status"`
	Message string  `json:"message,omitempty" yaml:"message,omitempty"`
}

// Engine holds no state; the zero value is ready to use.
type Engine struct{}

// CompareBundleSize classifies growth from previous to current as a
// percentage. A zero previous value is a baseline and always passes.
func (Engine) CompareBundleSize(current, previous, regressionThreshold, warningThreshold float64) Result {
	delta := current - previous

	if previous == 0 {
		return Result{
			Passed:  true,
			Delta:   delta,
			Status:  StatusPass,
			Message: BaselineMessage,
		}
	}

	percentChange := delta * 100 / previous

	switch {
	case percentChange > regressionThreshold:
		return Result{
			Passed:  false,
			Delta:   delta,
			Status:  StatusFail,
			Message: fmt.Sprintf("Bundle size increased by %.1f%% (threshold: %g%%)", percentChange, regressionThreshold),
		}
	case percentChange > warningThreshold:
		return Result{
			Passed:  true,
			Delta:   delta,
			Status:  StatusWarn,
			Message: fmt.Sprintf("Bundle size increased by %.1f%% (warning threshold: %g%%)", percentChange, warningThreshold),
		}
	default:
		return Result{Passed: true, Delta: delta, Status: StatusPass}
	}
}

// CompareRuntimeMetric checks an absolute runtime limit. There is no warn
// tier: the value is either within the limit or it fails.
func (Engine) CompareRuntimeMetric(current float64, limits map[string]float64, metricName string) Result {
	limit, ok := limits[metricName]
	if !ok || limit == 0 || math.IsNaN(limit) {
		return Result{Passed: true, Delta: 0, Status: StatusPass}
	}

	delta := current - limit
	if current <= limit {
		return Result{Passed: true, Delta: delta, Status: StatusPass}
	}

	percentOver := delta * 100 / limit
	return Result{
		Passed:  false,
		Delta:   delta,
		Status:  StatusFail,
		Message: fmt.Sprintf("%s exceeds threshold by %.1f%% (%g > %g)", strings.ToUpper(metricName), percentOver, current, limit),
	}
}

// FromBudget turns a budget rule outcome into a pass/fail result.
func FromBudget(b analyzer.BudgetResult) Result {
	delta := float64(b.CurrentSize - b.MaxSize)
	if !b.Exceeds {
		return Result{Passed: true, Delta: delta, Status: StatusPass}
	}
	return Result{
		Passed:  false,
		Delta:   delta,
		Status:  StatusFail,
		Message: fmt.Sprintf("Budget %q exceeded: %d bytes over %d byte limit", b.Path, b.CurrentSize-b.MaxSize, b.MaxSize),
	}
}

// CalculateScore is the rounded percentage of passed results. An empty set
// scores 100.
func CalculateScore(results []Result) int {
	if len(results) == 0 {
		return 100
	}
	passed := 0
	for _, r := range results {
		if r.Passed {
			passed++
		}
	}
	return int(math.Round(100 * float64(passed) / float64(len(results))))
}

// ShouldBlockPR reports whether any result failed.
func ShouldBlockPR(results []Result) bool {
	for _, r := range results {
		if r.Status == StatusFail {
			return true
		}
	}
	return false
}

// ShouldWarn reports whether any result warned or failed.
func ShouldWarn(results []Result) bool {
	for _, r := range results {
		if r.Status == StatusWarn || r.Status == StatusFail {
			return true
		}
	}
	return false
}
