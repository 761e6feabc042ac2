package report

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nahidhasan98/perfbudget/internal/analyzer"
	"github.com/nahidhasan98/perfbudget/internal/check"
	"github.com/nahidhasan98/perfbudget/internal/lighthouse"
	"github.com/nahidhasan98/perfbudget/internal/size"
	"github.com/nahidhasan98/perfbudget/internal/storage"
	"github.com/nahidhasan98/perfbudget/internal/threshold"
)

// AnalysisOutput is the machine-readable form of `analyze`
type AnalysisOutput struct {
	Analysis *analyzer.BundleAnalysis `json:"analysis" yaml:"analysis"`
	Budgets  []analyzer.BudgetResult  `json:"budgets" yaml:"budgets"`
}

// DiffOutput is the machine-readable form of `diff`
type DiffOutput struct {
	Diff   *analyzer.BundleDiff `json:"diff" yaml:"diff"`
	Result threshold.Result     `json:"result" yaml:"result"`
}

// TrendOutput is the machine-readable form of `trend`
type TrendOutput struct {
	Metric string               `json:"metric" yaml:"metric"`
	Points []storage.TrendPoint `json:"points" yaml:"points"`
}

// PrintAnalysis prints the module census and budget outcomes
func (f *Formatter) PrintAnalysis(a *analyzer.BundleAnalysis, budgets []analyzer.BudgetResult) error {
	if f.Format != FormatTable {
		return f.Print(AnalysisOutput{Analysis: a, Budgets: budgets})
	}
	if f.Quiet {
		return nil
	}

	f.PrintKeyValue("Total size", size.Format(a.TotalSize))
	f.PrintKeyValue("Chunks", strconv.Itoa(a.ChunkCount))
	f.PrintKeyValue("Modules", strconv.Itoa(a.TotalModules))
	f.PrintKeyValue("Duplicates", strconv.Itoa(a.DuplicateModules))
	f.PrintKeyValue("Dead code", strconv.Itoa(a.DeadCodeModules))

	if len(a.LargestModules) > 0 {
		f.PrintSection("Largest modules")
		rows := make([][]string, 0, len(a.LargestModules))
		for _, m := range a.LargestModules {
			dup := ""
			if m.IsDuplicate {
				dup = "yes"
			}
			rows = append(rows, []string{m.Name, size.Format(m.Size), m.Path, dup})
		}
		f.renderTable(TableData{Headers: []string{"MODULE", "SIZE", "CHUNK", "DUPLICATE"}, Rows: rows})
	}

	if len(a.DeadCode) > 0 {
		f.PrintSection("Possibly unused modules")
		rows := make([][]string, 0, len(a.DeadCode))
		for _, m := range a.DeadCode {
			rows = append(rows, []string{m.Name, m.Path})
		}
		f.renderTable(TableData{Headers: []string{"MODULE", "CHUNK"}, Rows: rows})
	}

	if len(budgets) > 0 {
		f.PrintSection("Budgets")
		f.printBudgetTable(budgets)
	}
	return nil
}

// PrintBudgets prints budget outcomes only
func (f *Formatter) PrintBudgets(budgets []analyzer.BudgetResult) error {
	if f.Format != FormatTable {
		return f.Print(budgets)
	}
	if f.Quiet {
		return nil
	}
	f.printBudgetTable(budgets)
	return nil
}

func (f *Formatter) printBudgetTable(budgets []analyzer.BudgetResult) {
	rows := make([][]string, 0, len(budgets))
	for _, b := range budgets {
		status := threshold.StatusPass
		if b.Exceeds {
			status = threshold.StatusFail
		}
		rows = append(rows, []string{b.Path, size.Format(b.CurrentSize), size.Format(b.MaxSize), f.StatusLabel(status)})
	}
	f.renderTable(TableData{Headers: []string{"PATH", "CURRENT", "MAX", "STATUS"}, Rows: rows})
}

// PrintDiff prints chunk changes and the total growth classification
func (f *Formatter) PrintDiff(diff *analyzer.BundleDiff, result threshold.Result) error {
	if f.Format != FormatTable {
		return f.Print(DiffOutput{Diff: diff, Result: result})
	}
	if f.Quiet {
		return nil
	}

	if !diff.HasChanges() {
		f.PrintSuccess("No chunk changes")
	} else {
		f.renderTable(TableData{Headers: []string{"CHUNK", "CHANGE", "OLD", "NEW", "DELTA"}, Rows: diffRows(diff)})
	}

	f.PrintSection("Total")
	f.PrintKeyValue("Change", size.FormatDelta(diff.TotalSizeChange))
	f.PrintKeyValue("Status", f.StatusLabel(result.Status))
	if result.Message != "" {
		f.PrintKeyValue("Message", result.Message)
	}
	return nil
}

func diffRows(diff *analyzer.BundleDiff) [][]string {
	var rows [][]string
	for _, c := range diff.AddedChunks {
		rows = append(rows, []string{c.Name, "added", "-", size.Format(c.Size), size.FormatDelta(c.Size)})
	}
	for _, c := range diff.RemovedChunks {
		rows = append(rows, []string{c.Name, "removed", size.Format(c.Size), "-", size.FormatDelta(-c.Size)})
	}
	for _, m := range diff.ModifiedChunks {
		rows = append(rows, []string{m.Chunk.Name, "modified", size.Format(m.OldSize), size.Format(m.NewSize), size.FormatDelta(m.SizeDelta)})
	}
	return rows
}

// PrintCheck prints a full check report
func (f *Formatter) PrintCheck(r *check.Report) error {
	if f.Format != FormatTable {
		return f.Print(r)
	}
	if f.Quiet {
		return nil
	}

	f.PrintKeyValue("Status", f.StatusLabel(r.Status))
	f.PrintKeyValue("Score", fmt.Sprintf("%d/100", r.Score))
	f.PrintKeyValue("Total size", size.Format(r.Analysis.TotalSize))
	if r.Baseline != nil {
		f.PrintKeyValue("Baseline", fmt.Sprintf("%s (%s, %s)", shortID(r.Baseline.RunID), r.Baseline.Branch, size.Format(r.Baseline.TotalSize)))
		f.PrintKeyValue("Change", fmt.Sprintf("%s  %s", size.FormatDelta(int64(r.BundleResult.Delta)), f.StatusLabel(r.BundleResult.Status)))
	} else {
		f.PrintKeyValue("Baseline", threshold.BaselineMessage)
	}
	if r.BundleResult.Message != "" && r.Baseline != nil {
		f.PrintKeyValue("Message", r.BundleResult.Message)
	}

	if r.Diff != nil && r.Diff.HasChanges() {
		f.PrintSection("Chunk changes")
		f.renderTable(TableData{Headers: []string{"CHUNK", "CHANGE", "OLD", "NEW", "DELTA"}, Rows: diffRows(r.Diff)})
	}

	if len(r.ChunkResults) > 0 {
		var rows [][]string
		for _, c := range r.ChunkResults {
			if c.Result.Status == threshold.StatusPass {
				continue
			}
			rows = append(rows, []string{c.ID, size.FormatDelta(c.NewSize - c.OldSize), f.StatusLabel(c.Result.Status), c.Result.Message})
		}
		if len(rows) > 0 {
			f.PrintSection("Chunk regressions")
			f.renderTable(TableData{Headers: []string{"CHUNK", "DELTA", "STATUS", "MESSAGE"}, Rows: rows})
		}
	}

	if len(r.Budgets) > 0 {
		f.PrintSection("Budgets")
		f.printBudgetTable(r.Budgets)
	}

	if len(r.RuntimeResults) > 0 {
		f.PrintSection("Runtime")
		rows := make([][]string, 0, len(r.RuntimeResults))
		for _, m := range r.RuntimeResults {
			rows = append(rows, []string{
				strings.ToUpper(m.Metric),
				FormatMetric(m.Metric, m.Value),
				FormatMetric(m.Metric, m.Limit),
				f.StatusLabel(m.Result.Status),
			})
		}
		f.renderTable(TableData{Headers: []string{"METRIC", "VALUE", "LIMIT", "STATUS"}, Rows: rows})
	}

	if r.RunID != "" {
		_, _ = fmt.Fprintf(f.Writer, "\nSaved run %s\n", r.RunID)
	}
	return nil
}

// PrintRuns prints stored run summaries
func (f *Formatter) PrintRuns(runs []storage.Run) error {
	if f.Format != FormatTable {
		return f.Print(runs)
	}
	if f.Quiet {
		return nil
	}
	if len(runs) == 0 {
		f.PrintSuccess("No runs recorded")
		return nil
	}

	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			shortID(run.ID),
			run.Branch,
			shortSHA(run.Commit),
			run.CreatedAt.Local().Format(time.DateTime),
			size.Format(run.TotalSize),
			strconv.Itoa(run.Score),
			f.StatusLabel(threshold.Status(run.Status)),
		})
	}
	f.renderTable(TableData{Headers: []string{"ID", "BRANCH", "COMMIT", "CREATED", "SIZE", "SCORE", "STATUS"}, Rows: rows})
	return nil
}

// PrintTrend prints one metric over time
func (f *Formatter) PrintTrend(metric string, points []storage.TrendPoint) error {
	if f.Format != FormatTable {
		return f.Print(TrendOutput{Metric: metric, Points: points})
	}
	if f.Quiet {
		return nil
	}
	if len(points) == 0 {
		f.PrintSuccess("No data for " + metric)
		return nil
	}

	rows := make([][]string, 0, len(points))
	for i, p := range points {
		change := "-"
		if i > 0 {
			change = formatChange(metric, p.Value-points[i-1].Value)
		}
		rows = append(rows, []string{
			p.CreatedAt.Local().Format(time.DateTime),
			shortSHA(p.Commit),
			FormatMetric(metric, p.Value),
			change,
		})
	}
	f.renderTable(TableData{Headers: []string{"CREATED", "COMMIT", strings.ToUpper(metric), "CHANGE"}, Rows: rows})
	return nil
}

// PrintPages prints per-URL Lighthouse medians
func (f *Formatter) PrintPages(pages []lighthouse.PageMetrics) {
	if f.Quiet || f.Format != FormatTable || len(pages) == 0 {
		return
	}
	headers := []string{"URL", "RUNS"}
	for _, name := range lighthouse.MetricNames {
		headers = append(headers, strings.ToUpper(name))
	}
	rows := make([][]string, 0, len(pages))
	for _, p := range pages {
		row := []string{p.URL, strconv.Itoa(p.Runs)}
		for _, name := range lighthouse.MetricNames {
			if v, ok := p.Metrics.Get(name); ok {
				row = append(row, FormatMetric(name, v))
			} else {
				row = append(row, "-")
			}
		}
		rows = append(rows, row)
	}
	f.renderTable(TableData{Headers: headers, Rows: rows})
}

// FormatMetric renders a value in the metric's unit
func FormatMetric(metric string, v float64) string {
	switch metric {
	case "cls":
		return strconv.FormatFloat(v, 'f', 3, 64)
	case "performance", "score", "chunk_count":
		return strconv.FormatFloat(v, 'f', 0, 64)
	case "total_size":
		return size.Format(int64(v))
	default:
		return strconv.FormatFloat(v, 'f', 0, 64) + " ms"
	}
}

func formatChange(metric string, delta float64) string {
	if metric == "total_size" {
		return size.FormatDelta(int64(delta))
	}
	s := FormatMetric(metric, delta)
	if delta > 0 {
		return "+" + s
	}
	return s
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	if sha == "" {
		return "-"
	}
	return sha
}
