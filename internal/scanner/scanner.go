// Package scanner turns Next.js build output into chunk lists.
package scanner

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/goccy/go-json"

	"github.com/nahidhasan98/perfbudget/internal/analyzer"
)

// ErrBuildNotFound is returned when the build directory has no static output
var ErrBuildNotFound = errors.New("build output not found")

// Content hashes Next.js appends before the extension: "index-1a2b3c4d.js",
// "framework.0f1e2d3c.js".
var hashPattern = regexp.MustCompile(`^(.+?)[-.]([0-9a-f]{8,})(\.(?:js|css))$`)

// Scan walks <buildDir>/static/chunks and <buildDir>/static/css. When
// statsPath is set, module membership and sizes come from webpack stats.
func Scan(buildDir, statsPath string) ([]analyzer.Chunk, error) {
	staticDir := filepath.Join(buildDir, "static")
	if info, err := os.Stat(staticDir); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrBuildNotFound, staticDir)
	}

	var chunks []analyzer.Chunk

	roots := []struct {
		dir    string
		prefix string
	}{
		{filepath.Join(staticDir, "chunks"), ""},
		{filepath.Join(staticDir, "css"), "css/"},
	}

	for _, root := range roots {
		found, err := walkRoot(buildDir, root.dir, root.prefix)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, found...)
	}

	sort.Slice(chunks, func(i, j int) bool {
		return chunks[i].ID < chunks[j].ID
	})

	if statsPath != "" {
		stats, err := LoadStats(statsPath)
		if err != nil {
			return nil, err
		}
		AttachModules(chunks, stats)
	}

	return chunks, nil
}

func walkRoot(buildDir, root, prefix string) ([]analyzer.Chunk, error) {
	if _, err := os.Stat(root); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}

	var chunks []analyzer.Chunk
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := filepath.Ext(path)
		if ext != ".js" && ext != ".css" {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("failed to stat %s: %w", path, err)
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		fromBuild, err := filepath.Rel(buildDir, path)
		if err != nil {
			return err
		}

		name := prefix + StripHash(filepath.ToSlash(rel))
		chunks = append(chunks, analyzer.Chunk{
			ID:    name,
			Name:  name,
			Size:  info.Size(),
			Files: []string{filepath.ToSlash(fromBuild)},
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}

	return chunks, nil
}

// StripHash removes the content hash from a chunk file name so the ID stays
// stable across builds.
func StripHash(name string) string {
	dir, base := "", name
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		dir, base = name[:idx+1], name[idx+1:]
	}
	if m := hashPattern.FindStringSubmatch(base); m != nil {
		return dir + m[1] + m[3]
	}
	return name
}

// LoadChunks reads a JSON chunk list
func LoadChunks(path string) ([]analyzer.Chunk, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read chunk file: %w", err)
	}

	var chunks []analyzer.Chunk
	if err := json.Unmarshal(data, &chunks); err != nil {
		return nil, fmt.Errorf("failed to parse chunk file %s: %w", path, err)
	}
	return chunks, nil
}

// WriteChunks writes a JSON chunk list
func WriteChunks(path string, chunks []analyzer.Chunk) error {
	data, err := json.MarshalIndent(chunks, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode chunks: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	return os.WriteFile(path, data, 0o644)
}
