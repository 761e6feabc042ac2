package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/nahidhasan98/perfbudget/internal/analyzer"
	"github.com/nahidhasan98/perfbudget/internal/check"
	"github.com/nahidhasan98/perfbudget/internal/models"
	"github.com/nahidhasan98/perfbudget/internal/storage"
	"github.com/nahidhasan98/perfbudget/internal/threshold"
)

func newFormatter(format Format) (*Formatter, *bytes.Buffer) {
	var buf bytes.Buffer
	return &Formatter{Format: format, Writer: &buf}, &buf
}

func sampleReport() *check.Report {
	return &check.Report{
		Branch: "feature/x",
		Commit: "0123456789abcdef",
		Analysis: &analyzer.BundleAnalysis{
			TotalSize:        2048,
			ChunkCount:       2,
			TotalModules:     3,
			DuplicateModules: 1,
			LargestModules: []analyzer.ModuleInfo{
				{Name: "react", Size: 1024, Path: "main.js", IsDuplicate: true},
			},
		},
		Budgets: []analyzer.BudgetResult{{Path: "^main", CurrentSize: 2000, MaxSize: 1024, Exceeds: true}},
		Baseline: &check.Baseline{
			RunID:     "8a6e0804-2bd0-4672-b79d-d97027f9071a",
			Branch:    "main",
			TotalSize: 1024,
		},
		Diff: &analyzer.BundleDiff{
			AddedChunks: []analyzer.Chunk{{ID: "pages/new.js", Name: "pages/new.js", Size: 24}},
			ModifiedChunks: []analyzer.ModifiedChunk{
				{Chunk: analyzer.Chunk{ID: "main.js", Name: "main.js"}, OldSize: 1000, NewSize: 2000, SizeDelta: 1000},
			},
			TotalSizeChange: 1024,
		},
		BundleResult: threshold.Result{Delta: 1024, Status: threshold.StatusFail, Message: "Bundle size increased by 100.0% (threshold: 10%)"},
		ChunkResults: []check.ChunkResult{
			{ID: "main.js", OldSize: 1000, NewSize: 2000, Result: threshold.Result{Status: threshold.StatusFail, Message: "Bundle size increased by 100.0% (threshold: 10%)"}},
		},
		RuntimeResults: []check.MetricResult{
			{Metric: "lcp", Value: 3100, Limit: 2500, Result: threshold.Result{Status: threshold.StatusFail}},
			{Metric: "cls", Value: 0.02, Limit: 0.1, Result: threshold.Result{Status: threshold.StatusPass, Passed: true}},
		},
		Score:   25,
		Status:  threshold.StatusFail,
		Blocked: true,
		Warn:    true,
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatTable, "TABLE": FormatTable, "json": FormatJSON, "yml": FormatYAML} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("xml")
	assert.Error(t, err)
}

func TestMarkdown(t *testing.T) {
	md := Markdown(sampleReport())

	assert.True(t, strings.HasPrefix(md, models.CommentMarker))
	assert.Contains(t, md, "❌ Performance budget failed")
	assert.Contains(t, md, "**Score:** 25/100")
	assert.Contains(t, md, "`0123456`")
	assert.Contains(t, md, "| `main.js` | 2.0 KiB | +1000 B | ❌ |")
	assert.Contains(t, md, "`pages/new.js` (new)")
	assert.Contains(t, md, "> Bundle size increased by 100.0%")
	assert.Contains(t, md, "| `^main` | 2.0 KiB | 1.0 KiB | ❌ |")
	assert.Contains(t, md, "| LCP | 3100 ms | 2500 ms | ❌ |")
	assert.Contains(t, md, "| CLS | 0.020 | 0.100 | ✅ |")
	assert.Contains(t, md, "`react (duplicate)`")
}

func TestMarkdown_Baseline(t *testing.T) {
	r := &check.Report{
		Analysis:     &analyzer.BundleAnalysis{TotalSize: 100},
		BundleResult: threshold.Result{Passed: true, Status: threshold.StatusPass, Message: threshold.BaselineMessage},
		Score:        100,
		Status:       threshold.StatusPass,
	}
	md := Markdown(r)
	assert.Contains(t, md, "✅ Performance budget passed")
	assert.Contains(t, md, threshold.BaselineMessage)
	assert.NotContains(t, md, "### Budgets")
	assert.NotContains(t, md, "<details>")
}

func TestPrintCheck_Table(t *testing.T) {
	f, buf := newFormatter(FormatTable)
	require.NoError(t, f.PrintCheck(sampleReport()))

	out := buf.String()
	assert.Contains(t, out, "FAIL")
	assert.Contains(t, out, "25/100")
	assert.Contains(t, out, "8a6e0804 (main, 1.0 KiB)")
	assert.Contains(t, out, "main.js")
	assert.Contains(t, out, "3100 ms")
}

func TestPrintCheck_JSON(t *testing.T) {
	f, buf := newFormatter(FormatJSON)
	require.NoError(t, f.PrintCheck(sampleReport()))

	var decoded check.Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, 25, decoded.Score)
	assert.True(t, decoded.Blocked)
	assert.Equal(t, threshold.StatusFail, decoded.Status)
}

func TestPrintDiff_YAML(t *testing.T) {
	f, buf := newFormatter(FormatYAML)
	diff := &analyzer.BundleDiff{TotalSizeChange: -10}
	require.NoError(t, f.PrintDiff(diff, threshold.Result{Passed: true, Status: threshold.StatusPass}))

	var decoded map[string]interface{}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Contains(t, decoded, "diff")
	assert.Contains(t, decoded, "result")
}

func TestPrintDiff_NoChanges(t *testing.T) {
	f, buf := newFormatter(FormatTable)
	require.NoError(t, f.PrintDiff(&analyzer.BundleDiff{}, threshold.Result{Passed: true, Status: threshold.StatusPass}))
	assert.Contains(t, buf.String(), "No chunk changes")
}

func TestPrintRuns(t *testing.T) {
	f, buf := newFormatter(FormatTable)
	require.NoError(t, f.PrintRuns(nil))
	assert.Contains(t, buf.String(), "No runs recorded")

	buf.Reset()
	runs := []storage.Run{{ID: "abcdef0123", Branch: "main", Commit: "1234567890", CreatedAt: time.Now(), TotalSize: 2048, Score: 90, Status: "warn"}}
	require.NoError(t, f.PrintRuns(runs))
	out := buf.String()
	assert.Contains(t, out, "abcdef01")
	assert.Contains(t, out, "1234567")
	assert.Contains(t, out, "WARN")
}

func TestPrintTrend(t *testing.T) {
	f, buf := newFormatter(FormatTable)
	points := []storage.TrendPoint{
		{CreatedAt: time.Now(), Value: 1024},
		{CreatedAt: time.Now(), Value: 2048},
	}
	require.NoError(t, f.PrintTrend("total_size", points))
	assert.Contains(t, buf.String(), "+1.0 KiB")
}

func TestQuiet(t *testing.T) {
	f, buf := newFormatter(FormatJSON)
	f.Quiet = true
	require.NoError(t, f.PrintCheck(sampleReport()))
	assert.Empty(t, buf.String())
}

func TestStatusLabel(t *testing.T) {
	f := &Formatter{Symbols: true}
	assert.Equal(t, "✗ fail", f.StatusLabel(threshold.StatusFail))
	f.Symbols = false
	assert.Equal(t, "WARN", f.StatusLabel(threshold.StatusWarn))
}

func TestFormatMetric(t *testing.T) {
	assert.Equal(t, "0.125", FormatMetric("cls", 0.125))
	assert.Equal(t, "250 ms", FormatMetric("inp", 250))
	assert.Equal(t, "92", FormatMetric("performance", 92))
	assert.Equal(t, "1.0 KiB", FormatMetric("total_size", 1024))
}
