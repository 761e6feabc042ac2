package analyzer

import (
	"regexp"

	"github.com/nahidhasan98/perfbudget/internal/size"
)

// Analyzer runs chunk analysis, diffing and budget checks. It holds no state
// besides its reporter and is safe for concurrent use.
type Analyzer struct {
	reporter Reporter
}

// New creates an analyzer. A nil reporter discards notifications.
func New(reporter Reporter) *Analyzer {
	if reporter == nil {
		reporter = nopReporter{}
	}
	return &Analyzer{reporter: reporter}
}

// AnalyzeChunks builds the module census for one chunk set.
func (a *Analyzer) AnalyzeChunks(chunks []Chunk) *BundleAnalysis {
	var totalSize int64
	for _, chunk := range chunks {
		totalSize += chunk.Size
	}

	modules, duplicates := markDuplicates(extractModules(chunks))
	dead := findDeadCode(chunks, modules)

	if modules == nil {
		modules = []ModuleInfo{}
	}
	if dead == nil {
		dead = []ModuleInfo{}
	}

	return &BundleAnalysis{
		TotalSize:        totalSize,
		ChunkCount:       len(chunks),
		TotalModules:     uniqueModuleCount(chunks),
		DuplicateModules: duplicates,
		DeadCodeModules:  len(dead),
		LargestModules:   largest(modules, largestModulesLimit),
		Modules:          modules,
		DeadCode:         dead,
	}
}

// CompareBundles diffs current against previous by chunk ID. Only size
// changes count as modifications.
func (a *Analyzer) CompareBundles(current, previous []Chunk) *BundleDiff {
	currentIDs := make(map[string]struct{}, len(current))
	for _, chunk := range current {
		currentIDs[chunk.ID] = struct{}{}
	}

	previousByID := make(map[string]Chunk, len(previous))
	for _, chunk := range previous {
		if _, ok := previousByID[chunk.ID]; !ok {
			previousByID[chunk.ID] = chunk
		}
	}

	diff := &BundleDiff{
		AddedChunks:    []Chunk{},
		RemovedChunks:  []Chunk{},
		ModifiedChunks: []ModifiedChunk{},
	}

	for _, chunk := range current {
		prev, ok := previousByID[chunk.ID]
		if !ok {
			diff.AddedChunks = append(diff.AddedChunks, chunk)
			continue
		}
		if prev.Size != chunk.Size {
			diff.ModifiedChunks = append(diff.ModifiedChunks, ModifiedChunk{
				Chunk:     chunk,
				OldSize:   prev.Size,
				NewSize:   chunk.Size,
				SizeDelta: chunk.Size - prev.Size,
			})
		}
	}

	for _, chunk := range previous {
		if _, ok := currentIDs[chunk.ID]; !ok {
			diff.RemovedChunks = append(diff.RemovedChunks, chunk)
		}
	}

	// Raw sums, not a fold over the lists above.
	var currentTotal, previousTotal int64
	for _, chunk := range current {
		currentTotal += chunk.Size
	}
	for _, chunk := range previous {
		previousTotal += chunk.Size
	}
	diff.TotalSizeChange = currentTotal - previousTotal

	return diff
}

// CompileBudgetPattern compiles a budget path pattern.
func CompileBudgetPattern(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile(pattern)
}

// CheckBudget evaluates each budget rule in order. An invalid pattern is
// reported and the rule passes; a rule matching no chunk never exceeds.
func (a *Analyzer) CheckBudget(chunks []Chunk, budgets []Budget) []BudgetResult {
	results := make([]BudgetResult, 0, len(budgets))

	for _, budget := range budgets {
		maxSize := size.Parse(budget.Max, a.reporter)

		re, err := CompileBudgetPattern(budget.Path)
		if err != nil {
			a.reporter.Errorf("Invalid budget path pattern %q: %v", budget.Path, err)
			results = append(results, BudgetResult{
				Path:    budget.Path,
				MaxSize: maxSize,
			})
			continue
		}

		var currentSize int64
		matched := false
		for _, chunk := range chunks {
			if re.MatchString(chunk.Name) {
				matched = true
				currentSize += chunk.Size
			}
		}

		if !matched {
			results = append(results, BudgetResult{
				Path:    budget.Path,
				MaxSize: maxSize,
			})
			continue
		}

		results = append(results, BudgetResult{
			Path:        budget.Path,
			CurrentSize: currentSize,
			MaxSize:     maxSize,
			Exceeds:     currentSize > maxSize,
		})
	}

	return results
}
