package scanner

import (
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/goccy/go-json"

	"github.com/nahidhasan98/perfbudget/internal/analyzer"
)

// Stats is the subset of webpack's stats.json used for module attribution
type Stats struct {
	Chunks []StatsChunk `json:"chunks"`
}

// StatsChunk is one webpack chunk
type StatsChunk struct {
	Names   []string      `json:"names"`
	Files   []string      `json:"files"`
	Modules []StatsModule `json:"modules"`
}

// StatsModule is one module inside a webpack chunk
type StatsModule struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// LoadStats reads a webpack stats file
func LoadStats(statsPath string) (*Stats, error) {
	data, err := os.ReadFile(statsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read stats file: %w", err)
	}

	var stats Stats
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, fmt.Errorf("failed to parse stats file %s: %w", statsPath, err)
	}
	return &stats, nil
}

// AttachModules fills Modules and ModuleSizes for chunks whose file appears
// in the stats. Modules under node_modules collapse to their package name.
func AttachModules(chunks []analyzer.Chunk, stats *Stats) {
	byFile := make(map[string]*StatsChunk)
	for i := range stats.Chunks {
		sc := &stats.Chunks[i]
		for _, f := range sc.Files {
			byFile[normalizeFile(f)] = sc
		}
	}

	for i := range chunks {
		var sc *StatsChunk
		for _, f := range chunks[i].Files {
			if found, ok := byFile[normalizeFile(f)]; ok {
				sc = found
				break
			}
		}
		if sc == nil {
			continue
		}

		sizes := make(map[string]int64)
		var names []string
		for _, m := range sc.Modules {
			name := ModuleName(m.Name)
			if name == "" {
				continue
			}
			if _, seen := sizes[name]; !seen {
				names = append(names, name)
			}
			sizes[name] += m.Size
		}

		chunks[i].Modules = names
		chunks[i].ModuleSizes = sizes
	}
}

// ModuleName maps a webpack module identifier to the name used for
// duplicate detection: the npm package for node_modules paths, otherwise the
// cleaned source path.
func ModuleName(identifier string) string {
	// "./node_modules/react/index.js + 3 modules" -> first module
	if idx := strings.Index(identifier, " + "); idx >= 0 {
		identifier = identifier[:idx]
	}
	// loaders: "css-loader!./styles.css"
	if idx := strings.LastIndex(identifier, "!"); idx >= 0 {
		identifier = identifier[idx+1:]
	}
	identifier = strings.TrimSpace(identifier)

	const marker = "node_modules/"
	if idx := strings.LastIndex(identifier, marker); idx >= 0 {
		rest := identifier[idx+len(marker):]
		parts := strings.Split(rest, "/")
		if strings.HasPrefix(parts[0], "@") && len(parts) > 1 {
			return parts[0] + "/" + parts[1]
		}
		return parts[0]
	}

	return strings.TrimPrefix(identifier, "./")
}

func normalizeFile(f string) string {
	f = strings.TrimPrefix(path.Clean(strings.ReplaceAll(f, "\\", "/")), "/")
	return strings.TrimPrefix(f, "_next/")
}
