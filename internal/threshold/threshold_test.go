package threshold

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nahidhasan98/perfbudget/internal/analyzer"
)

func TestCompareBundleSize(t *testing.T) {
	tests := []struct {
		name       string
		current    float64
		previous   float64
		wantStatus Status
		wantPassed bool
		wantDelta  float64
	}{
		{"regression above threshold", 115, 100, StatusFail, false, 15},
		{"exactly at regression threshold warns", 110, 100, StatusWarn, true, 10},
		{"between thresholds", 107, 100, StatusWarn, true, 7},
		{"exactly at warning threshold passes", 105, 100, StatusPass, true, 5},
		{"small growth", 101, 100, StatusPass, true, 1},
		{"unchanged", 100, 100, StatusPass, true, 0},
		{"shrink", 80, 100, StatusPass, true, -20},
	}

	var e Engine
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.CompareBundleSize(tt.current, tt.previous, 10, 5)
			assert.Equal(t, tt.wantStatus, got.Status)
			assert.Equal(t, tt.wantPassed, got.Passed)
			assert.InDelta(t, tt.wantDelta, got.Delta, 1e-9)
		})
	}
}

func TestCompareBundleSize_Messages(t *testing.T) {
	var e Engine

	fail := e.CompareBundleSize(115, 100, 10, 5)
	assert.Contains(t, fail.Message, "15.0%")
	assert.Contains(t, fail.Message, "10%")

	warn := e.CompareBundleSize(107, 100, 10, 5)
	assert.Contains(t, warn.Message, "7.0%")
	assert.Contains(t, warn.Message, "warning threshold: 5%")

	pass := e.CompareBundleSize(100, 100, 10, 5)
	assert.Empty(t, pass.Message)
}

func TestCompareBundleSize_ZeroBaseline(t *testing.T) {
	got := Engine{}.CompareBundleSize(100, 0, 10, 5)

	assert.Equal(t, StatusPass, got.Status)
	assert.True(t, got.Passed)
	assert.Equal(t, float64(100), got.Delta)
	assert.Contains(t, got.Message, "baseline")

	huge := Engine{}.CompareBundleSize(1e12, 0, 10, 5)
	assert.Equal(t, StatusPass, huge.Status)
}

func TestCompareRuntimeMetric(t *testing.T) {
	var e Engine
	limits := map[string]float64{"lcp": 2500, "cls": 0.1, "inp": 0}

	fail := e.CompareRuntimeMetric(3000, limits, "lcp")
	assert.Equal(t, StatusFail, fail.Status)
	assert.False(t, fail.Passed)
	assert.Equal(t, float64(500), fail.Delta)
	assert.Contains(t, fail.Message, "LCP")
	assert.Contains(t, fail.Message, "20.0%")

	pass := e.CompareRuntimeMetric(2000, limits, "lcp")
	assert.Equal(t, StatusPass, pass.Status)
	assert.Equal(t, float64(-500), pass.Delta)

	atLimit := e.CompareRuntimeMetric(2500, limits, "lcp")
	assert.Equal(t, StatusPass, atLimit.Status)
	assert.Equal(t, float64(0), atLimit.Delta)

	clsFail := e.CompareRuntimeMetric(0.25, limits, "cls")
	assert.Equal(t, StatusFail, clsFail.Status)
	assert.Contains(t, clsFail.Message, "CLS")
}

func TestCompareRuntimeMetric_UnsetLimitAlwaysPasses(t *testing.T) {
	var e Engine
	limits := map[string]float64{"inp": 0}

	for _, metric := range []string{"inp", "tbt"} {
		got := e.CompareRuntimeMetric(99999, limits, metric)
		assert.Equal(t, Result{Passed: true, Delta: 0, Status: StatusPass}, got, metric)
	}
	assert.Equal(t, StatusPass, e.CompareRuntimeMetric(1, nil, "lcp").Status)
}

func TestCompareRuntimeMetric_NeverWarns(t *testing.T) {
	var e Engine
	limits := map[string]float64{"fcp": 1000}
	for _, v := range []float64{0, 999, 1000, 1001, 5000} {
		assert.NotEqual(t, StatusWarn, e.CompareRuntimeMetric(v, limits, "fcp").Status)
	}
}

func TestFromBudget(t *testing.T) {
	ok := FromBudget(analyzer.BudgetResult{Path: "pages/", CurrentSize: 100, MaxSize: 200})
	assert.Equal(t, StatusPass, ok.Status)
	assert.Equal(t, float64(-100), ok.Delta)

	over := FromBudget(analyzer.BudgetResult{Path: "pages/", CurrentSize: 300, MaxSize: 200, Exceeds: true})
	assert.Equal(t, StatusFail, over.Status)
	assert.False(t, over.Passed)
	assert.Contains(t, over.Message, "pages/")
}

func TestCalculateScore(t *testing.T) {
	pass := Result{Passed: true, Status: StatusPass}
	warn := Result{Passed: true, Status: StatusWarn}
	fail := Result{Passed: false, Status: StatusFail}

	assert.Equal(t, 100, CalculateScore(nil))
	assert.Equal(t, 100, CalculateScore([]Result{pass, warn}))
	assert.Equal(t, 0, CalculateScore([]Result{fail}))
	assert.Equal(t, 67, CalculateScore([]Result{pass, warn, fail}))
	assert.Equal(t, 33, CalculateScore([]Result{pass, fail, fail}))
	assert.Equal(t, 50, CalculateScore([]Result{pass, fail}))

	for n := 1; n <= 7; n++ {
		for passed := 0; passed <= n; passed++ {
			results := make([]Result, 0, n)
			for i := 0; i < n; i++ {
				if i < passed {
					results = append(results, pass)
				} else {
					results = append(results, fail)
				}
			}
			score := CalculateScore(results)
			assert.GreaterOrEqual(t, score, 0)
			assert.LessOrEqual(t, score, 100)
		}
	}
}

func TestShouldBlockAndWarn(t *testing.T) {
	pass := Result{Passed: true, Status: StatusPass}
	warn := Result{Passed: true, Status: StatusWarn}
	fail := Result{Passed: false, Status: StatusFail}

	assert.False(t, ShouldBlockPR([]Result{pass, warn}))
	assert.True(t, ShouldBlockPR([]Result{pass, fail}))
	assert.False(t, ShouldBlockPR(nil))

	assert.False(t, ShouldWarn([]Result{pass}))
	assert.True(t, ShouldWarn([]Result{pass, warn}))
	assert.True(t, ShouldWarn([]Result{fail}))
}
