package analyzer

import (
	"sort"
	"strings"
)

const largestModulesLimit = 10

// IsEntryChunk reports whether a chunk name looks like a root/bootstrap bundle.
func IsEntryChunk(name string) bool {
	return strings.Contains(name, "pages/") ||
		strings.Contains(name, "main") ||
		strings.HasPrefix(name, "_")
}

// uniqueModuleCount counts distinct module names across all chunks.
func uniqueModuleCount(chunks []Chunk) int {
	seen := make(map[string]struct{})
	for _, chunk := range chunks {
		for _, name := range chunk.Modules {
			seen[name] = struct{}{}
		}
	}
	return len(seen)
}

// extractModules emits one ModuleInfo per module listed in each chunk. The
// size is the recorded module size or 0; chunk size is never split.
func extractModules(chunks []Chunk) []ModuleInfo {
	var modules []ModuleInfo
	for _, chunk := range chunks {
		for _, name := range chunk.Modules {
			var moduleSize int64
			if s, ok := chunk.ModuleSizes[name]; ok {
				moduleSize = s
			}
			modules = append(modules, ModuleInfo{
				Name:         name,
				Size:         moduleSize,
				Path:         chunk.Name,
				Dependencies: []string{},
			})
		}
	}
	return modules
}

// occurrences counts every entry, including repeats within one chunk.
func occurrences(modules []ModuleInfo) map[string]int {
	counts := make(map[string]int, len(modules))
	for _, m := range modules {
		counts[m.Name]++
	}
	return counts
}

// markDuplicates returns a copy of modules with IsDuplicate set on every entry
// whose name occurs at least twice, plus the number of such names.
func markDuplicates(modules []ModuleInfo) ([]ModuleInfo, int) {
	counts := occurrences(modules)

	duplicates := 0
	for _, n := range counts {
		if n >= 2 {
			duplicates++
		}
	}

	marked := make([]ModuleInfo, len(modules))
	for i, m := range modules {
		m.IsDuplicate = counts[m.Name] >= 2
		marked[i] = m
	}
	return marked, duplicates
}

// findDeadCode flags modules that are neither part of an entry chunk nor
// referenced more than once. This is a membership heuristic, not a
// reachability analysis: single-page code shows up as dead.
func findDeadCode(chunks []Chunk, modules []ModuleInfo) []ModuleInfo {
	entryModules := make(map[string]struct{})
	for _, chunk := range chunks {
		if !IsEntryChunk(chunk.Name) {
			continue
		}
		for _, name := range chunk.Modules {
			entryModules[name] = struct{}{}
		}
	}

	multiReferenced := make(map[string]struct{})
	for name, n := range occurrences(modules) {
		if n > 1 {
			multiReferenced[name] = struct{}{}
		}
	}

	var dead []ModuleInfo
	for _, m := range modules {
		if _, ok := entryModules[m.Name]; ok {
			continue
		}
		if _, ok := multiReferenced[m.Name]; ok {
			continue
		}
		m.IsDeadCode = true
		m.Dependencies = append([]string{}, m.Dependencies...)
		dead = append(dead, m)
	}
	return dead
}

// largest returns the top modules by size; equal sizes keep input order.
func largest(modules []ModuleInfo, limit int) []ModuleInfo {
	sorted := make([]ModuleInfo, len(modules))
	copy(sorted, modules)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Size > sorted[j].Size
	})
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}
