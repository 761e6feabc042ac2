package report

import (
	"fmt"
	"strings"

	"github.com/nahidhasan98/perfbudget/internal/check"
	"github.com/nahidhasan98/perfbudget/internal/models"
	"github.com/nahidhasan98/perfbudget/internal/size"
	"github.com/nahidhasan98/perfbudget/internal/threshold"
)

const (
	maxMarkdownChunks  = 20
	maxMarkdownModules = 5
)

var headlines = map[threshold.Status]string{
	threshold.StatusPass: "✅ Performance budget passed",
	threshold.StatusWarn: "⚠️ Performance budget passed with warnings",
	threshold.StatusFail: "❌ Performance budget failed",
}

func statusIcon(s threshold.Status) string {
	switch s {
	case threshold.StatusFail:
		return "❌"
	case threshold.StatusWarn:
		return "⚠️"
	default:
		return "✅"
	}
}

// Markdown renders a pull request comment for a check report
func Markdown(r *check.Report) string {
	var sb strings.Builder

	sb.WriteString(models.CommentMarker + "\n")
	sb.WriteString(fmt.Sprintf("## %s\n\n", headlines[r.Status]))
	sb.WriteString(fmt.Sprintf("**Score:** %d/100", r.Score))
	if r.Commit != "" {
		sb.WriteString(fmt.Sprintf(" · **Commit:** `%s`", shortSHA(r.Commit)))
	}
	sb.WriteString("\n\n")

	writeBundleSection(&sb, r)
	writeBudgetSection(&sb, r)
	writeRuntimeSection(&sb, r)
	writeModuleSection(&sb, r)

	return sb.String()
}

func writeBundleSection(sb *strings.Builder, r *check.Report) {
	sb.WriteString("### Bundle size\n\n")
	sb.WriteString("| | Size | Change | Status |\n|---|---:|---:|:---:|\n")

	total := r.Analysis.TotalSize
	if r.Baseline == nil {
		sb.WriteString(fmt.Sprintf("| **Total** | %s | – | %s |\n\n", size.Format(total), statusIcon(r.BundleResult.Status)))
		sb.WriteString(fmt.Sprintf("_%s_\n\n", threshold.BaselineMessage))
		return
	}

	sb.WriteString(fmt.Sprintf("| **Total** | %s | %s | %s |\n",
		size.Format(total), size.FormatDelta(int64(r.BundleResult.Delta)), statusIcon(r.BundleResult.Status)))

	results := make(map[string]threshold.Status, len(r.ChunkResults))
	for _, c := range r.ChunkResults {
		results[c.ID] = c.Result.Status
	}

	rows := 0
	if r.Diff != nil {
		for _, m := range r.Diff.ModifiedChunks {
			if rows == maxMarkdownChunks {
				break
			}
			sb.WriteString(fmt.Sprintf("| `%s` | %s | %s | %s |\n",
				m.Chunk.Name, size.Format(m.NewSize), size.FormatDelta(m.SizeDelta), statusIcon(results[m.Chunk.ID])))
			rows++
		}
		for _, c := range r.Diff.AddedChunks {
			if rows == maxMarkdownChunks {
				break
			}
			sb.WriteString(fmt.Sprintf("| `%s` (new) | %s | %s | |\n", c.Name, size.Format(c.Size), size.FormatDelta(c.Size)))
			rows++
		}
		for _, c := range r.Diff.RemovedChunks {
			if rows == maxMarkdownChunks {
				break
			}
			sb.WriteString(fmt.Sprintf("| ~~`%s`~~ (removed) | – | %s | |\n", c.Name, size.FormatDelta(-c.Size)))
			rows++
		}
		changed := len(r.Diff.ModifiedChunks) + len(r.Diff.AddedChunks) + len(r.Diff.RemovedChunks)
		if changed > rows {
			sb.WriteString(fmt.Sprintf("\n_...and %d more changed chunk(s)_\n", changed-rows))
		}
	}
	sb.WriteString("\n")

	if r.BundleResult.Message != "" {
		sb.WriteString(fmt.Sprintf("> %s\n\n", r.BundleResult.Message))
	}
}

func writeBudgetSection(sb *strings.Builder, r *check.Report) {
	if len(r.Budgets) == 0 {
		return
	}
	sb.WriteString("### Budgets\n\n")
	sb.WriteString("| Path | Current | Max | Status |\n|---|---:|---:|:---:|\n")
	for _, b := range r.Budgets {
		status := threshold.StatusPass
		if b.Exceeds {
			status = threshold.StatusFail
		}
		sb.WriteString(fmt.Sprintf("| `%s` | %s | %s | %s |\n", b.Path, size.Format(b.CurrentSize), size.Format(b.MaxSize), statusIcon(status)))
	}
	sb.WriteString("\n")
}

func writeRuntimeSection(sb *strings.Builder, r *check.Report) {
	if len(r.RuntimeResults) == 0 {
		return
	}
	sb.WriteString("### Runtime metrics\n\n")
	sb.WriteString("| Metric | Value | Limit | Status |\n|---|---:|---:|:---:|\n")
	for _, m := range r.RuntimeResults {
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n",
			strings.ToUpper(m.Metric), FormatMetric(m.Metric, m.Value), FormatMetric(m.Metric, m.Limit), statusIcon(m.Result.Status)))
	}
	if len(r.Pages) > 0 {
		urls := make([]string, 0, len(r.Pages))
		for _, p := range r.Pages {
			urls = append(urls, p.URL)
		}
		sb.WriteString(fmt.Sprintf("\n_Worst value across %s_\n", strings.Join(urls, ", ")))
	}
	sb.WriteString("\n")
}

func writeModuleSection(sb *strings.Builder, r *check.Report) {
	a := r.Analysis
	if len(a.LargestModules) == 0 && a.DuplicateModules == 0 && a.DeadCodeModules == 0 {
		return
	}

	sb.WriteString("<details>\n<summary>Modules</summary>\n\n")
	sb.WriteString(fmt.Sprintf("%d modules · %d duplicated · %d possibly unused\n\n", a.TotalModules, a.DuplicateModules, a.DeadCodeModules))

	if len(a.LargestModules) > 0 {
		sb.WriteString("| Module | Size | Chunk |\n|---|---:|---|\n")
		for i, m := range a.LargestModules {
			if i == maxMarkdownModules {
				break
			}
			name := m.Name
			if m.IsDuplicate {
				name += " (duplicate)"
			}
			sb.WriteString(fmt.Sprintf("| `%s` | %s | `%s` |\n", name, size.Format(m.Size), m.Path))
		}
		sb.WriteString("\n")
	}
	sb.WriteString("</details>\n")
}
