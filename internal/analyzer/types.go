// Package analyzer derives module census, diffs and budget results from
// build chunk lists.
package analyzer

// Chunk is one named build artifact. Chunks are produced per build by the
// scanner and never mutated here.
type Chunk struct {
	ID          string           `json:"id" yaml:"id"`
	Name        string           `json:"name" yaml:"name"`
	Size        int64            `json:"size" yaml:"size"`
	Files       []string         `json:"files" yaml:"files"`
	Modules     []string         `json:"modules,omitempty" yaml:"modules,omitempty"`
	ModuleSizes map[string]int64 `json:"moduleSizes,omitempty" yaml:"moduleSizes,omitempty"`
}

// ModuleInfo is one module occurrence in one chunk.
type ModuleInfo struct {
	Name         string   `json:"name" yaml:"name"`
	Size         int64    `json:"size" yaml:"size"`
	Path         string   `json:"path" yaml:"path"` // owning chunk name
	Dependencies []string `json:"dependencies" yaml:"dependencies"`
	IsDuplicate  bool     `json:"isDuplicate" yaml:"isDuplicate"`
	IsDeadCode   bool     `json:"isDeadCode" yaml:"isDeadCode"`
}

// BundleAnalysis is the aggregate report for one chunk set.
type BundleAnalysis struct {
	TotalSize        int64        `json:"totalSize" yaml:"totalSize"`
	ChunkCount       int          `json:"chunkCount" yaml:"chunkCount"`
	TotalModules     int          `json:"totalModules" yaml:"totalModules"`
	DuplicateModules int          `json:"duplicateModules" yaml:"duplicateModules"`
	DeadCodeModules  int          `json:"deadCodeModules" yaml:"deadCodeModules"`
	LargestModules   []ModuleInfo `json:"largestModules" yaml:"largestModules"`
	Modules          []ModuleInfo `json:"modules" yaml:"modules"`
	DeadCode         []ModuleInfo `json:"deadCode" yaml:"deadCode"`
}

// ModifiedChunk is a chunk present in both builds with a different size.
type ModifiedChunk struct {
	Chunk     Chunk `json:"chunk" yaml:"chunk"`
	OldSize   int64 `json:"oldSize" yaml:"oldSize"`
	NewSize   int64 `json:"newSize" yaml:"newSize"`
	SizeDelta int64 `json:"sizeDelta" yaml:"sizeDelta"`
}

// BundleDiff compares two chunk sets keyed by chunk ID.
type BundleDiff struct {
	AddedChunks     []Chunk         `json:"addedChunks" yaml:"addedChunks"`
	RemovedChunks   []Chunk         `json:"removedChunks" yaml:"removedChunks"`
	ModifiedChunks  []ModifiedChunk `json:"modifiedChunks" yaml:"modifiedChunks"`
	TotalSizeChange int64           `json:"totalSizeChange" yaml:"totalSizeChange"`
}

// HasChanges reports whether any chunk was added, removed or resized.
func (d *BundleDiff) HasChanges() bool {
	return len(d.AddedChunks) > 0 || len(d.RemovedChunks) > 0 || len(d.ModifiedChunks) > 0
}

// Budget caps the combined size of chunks whose name matches Path.
type Budget struct {
	Path string `json:"path" yaml:"path"`
	Max  string `json:"max" yaml:"max"`
}

// BudgetResult is the outcome of one budget rule.
type BudgetResult struct {
	Path        string `json:"path" yaml:"path"`
	CurrentSize int64  `json:"currentSize" yaml:"currentSize"`
	MaxSize     int64  `json:"maxSize" yaml:"maxSize"`
	Exceeds     bool   `json:"exceeds" yaml:"exceeds"`
}

// Reporter receives degrade-path notifications. Calls are fire-and-forget.
type Reporter interface {
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

type nopReporter struct{}

func (nopReporter) Warnf(string, ...interface{})  {}
func (nopReporter) Errorf(string, ...interface{}) {}
