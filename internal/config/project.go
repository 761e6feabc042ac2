// Package config loads the project budget file and process settings.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nahidhasan98/perfbudget/internal/analyzer"
)

// DefaultProjectFile is looked up in the working directory
const DefaultProjectFile = "perf-budget.yaml"

// ErrConfigNotFound is returned when the project file does not exist
var ErrConfigNotFound = errors.New("project config not found")

// Runtime metric names understood by the threshold engine
var RuntimeMetrics = []string{"lcp", "inp", "cls", "tbt", "fcp", "ttfb"}

// Project is the typed form of perf-budget.yaml
type Project struct {
	Build      BuildConfig       `yaml:"build"`
	Budgets    []analyzer.Budget `yaml:"budgets"`
	Thresholds Thresholds        `yaml:"thresholds"`
	Runtime    RuntimeLimits     `yaml:"runtime"`
	Lighthouse LighthouseConfig  `yaml:"lighthouse"`
	Storage    StorageConfig     `yaml:"storage"`
	GitHub     ProjectGitHub     `yaml:"github"`
}

// BuildConfig locates the build output
type BuildConfig struct {
	Dir   string `yaml:"dir"`
	Stats string `yaml:"stats,omitempty"` // optional webpack stats.json
}

// Thresholds are percentage limits for bundle growth
type Thresholds struct {
	Regression float64 `yaml:"regression"`
	Warning    float64 `yaml:"warning"`
}

// RuntimeLimits are absolute Core Web Vitals limits; nil means no limit
type RuntimeLimits struct {
	LCP  *float64 `yaml:"lcp,omitempty"`
	INP  *float64 `yaml:"inp,omitempty"`
	CLS  *float64 `yaml:"cls,omitempty"`
	TBT  *float64 `yaml:"tbt,omitempty"`
	FCP  *float64 `yaml:"fcp,omitempty"`
	TTFB *float64 `yaml:"ttfb,omitempty"`
}

// LighthouseConfig controls runtime checks
type LighthouseConfig struct {
	Enabled bool          `yaml:"enabled"`
	URLs    []string      `yaml:"urls"`
	Runs    int           `yaml:"runs"`
	Preset  string        `yaml:"preset"`
	Binary  string        `yaml:"binary"`
	Timeout time.Duration `yaml:"timeout"`
}

// StorageConfig controls run history
type StorageConfig struct {
	Path           string `yaml:"path"`
	RetentionDays  int    `yaml:"retention_days"`
	BaselineBranch string `yaml:"baseline_branch"`
}

// ProjectGitHub toggles GitHub reporting
type ProjectGitHub struct {
	Comment bool `yaml:"comment"`
	Status  bool `yaml:"status"`
}

// DefaultProject returns the configuration written by `perfbudget init`
func DefaultProject() *Project {
	lcp, inp, cls, tbt, fcp := 2500.0, 200.0, 0.1, 300.0, 1800.0
	return &Project{
		Build: BuildConfig{Dir: ".next"},
		Budgets: []analyzer.Budget{
			{Path: "pages/", Max: "250kb"},
			{Path: "^framework", Max: "150kb"},
		},
		Thresholds: Thresholds{Regression: 10, Warning: 5},
		Runtime: RuntimeLimits{
			LCP: &lcp,
			INP: &inp,
			CLS: &cls,
			TBT: &tbt,
			FCP: &fcp,
		},
		Lighthouse: LighthouseConfig{
			Enabled: false,
			URLs:    []string{"http://localhost:3000/"},
			Runs:    3,
			Preset:  "desktop",
			Binary:  "lighthouse",
			Timeout: 2 * time.Minute,
		},
		Storage: StorageConfig{
			Path:           ".perfbudget/history.db",
			RetentionDays:  90,
			BaselineBranch: "main",
		},
		GitHub: ProjectGitHub{Comment: true, Status: true},
	}
}

// LoadProject reads and validates a project file. Unknown keys are rejected.
func LoadProject(path string) (*Project, error) {
	if path == "" {
		path = DefaultProjectFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("failed to read project config: %w", err)
	}

	return ParseProject(data)
}

// ParseProject decodes YAML on top of the defaults and validates the result
func ParseProject(data []byte) (*Project, error) {
	project := DefaultProject()
	// Lists from the file replace the defaults instead of merging into them
	project.Budgets = nil
	project.Lighthouse.URLs = nil

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(project); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse project config: %w", err)
	}

	if err := project.Validate(); err != nil {
		return nil, fmt.Errorf("invalid project config: %w", err)
	}

	return project, nil
}

// Marshal renders the project as YAML
func (p *Project) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(p); err != nil {
		return nil, err
	}
	if err := encoder.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Validate checks field-level constraints. Budget max strings are left to
// the lenient size parser.
func (p *Project) Validate() error {
	if p.Build.Dir == "" {
		return fmt.Errorf("build.dir is required")
	}

	for i, b := range p.Budgets {
		if b.Path == "" {
			return fmt.Errorf("budgets[%d].path is required", i)
		}
		if b.Max == "" {
			return fmt.Errorf("budgets[%d].max is required", i)
		}
	}

	if err := p.Thresholds.Validate(); err != nil {
		return err
	}

	for name, value := range p.Runtime.Limits() {
		if value < 0 {
			return fmt.Errorf("runtime.%s must not be negative", name)
		}
	}

	if err := p.Lighthouse.Validate(); err != nil {
		return err
	}

	if p.Storage.Path == "" {
		return fmt.Errorf("storage.path is required")
	}
	if p.Storage.RetentionDays < 0 {
		return fmt.Errorf("storage.retention_days must not be negative")
	}
	if p.Storage.BaselineBranch == "" {
		return fmt.Errorf("storage.baseline_branch is required")
	}

	return nil
}

// Validate checks threshold ranges
func (t Thresholds) Validate() error {
	if t.Regression < 0 || t.Regression > 100 {
		return fmt.Errorf("thresholds.regression must be between 0 and 100")
	}
	if t.Warning < 0 || t.Warning > 100 {
		return fmt.Errorf("thresholds.warning must be between 0 and 100")
	}
	if t.Warning > t.Regression {
		return fmt.Errorf("thresholds.warning (%g) must not exceed thresholds.regression (%g)", t.Warning, t.Regression)
	}
	return nil
}

// Validate checks Lighthouse settings
func (l LighthouseConfig) Validate() error {
	if l.Runs < 1 || l.Runs > 10 {
		return fmt.Errorf("lighthouse.runs must be between 1 and 10")
	}
	if l.Preset != "desktop" && l.Preset != "mobile" {
		return fmt.Errorf("lighthouse.preset must be one of: desktop, mobile")
	}
	if l.Timeout <= 0 {
		return fmt.Errorf("lighthouse.timeout must be positive")
	}
	if !l.Enabled {
		return nil
	}
	if l.Binary == "" {
		return fmt.Errorf("lighthouse.binary is required")
	}
	if len(l.URLs) == 0 {
		return fmt.Errorf("lighthouse.urls requires at least one URL when enabled")
	}
	for _, raw := range l.URLs {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("lighthouse.urls contains invalid URL: %q", raw)
		}
	}
	return nil
}

// Limits returns the configured limits keyed by metric name
func (r RuntimeLimits) Limits() map[string]float64 {
	limits := make(map[string]float64)
	set := func(name string, v *float64) {
		if v != nil {
			limits[name] = *v
		}
	}
	set("lcp", r.LCP)
	set("inp", r.INP)
	set("cls", r.CLS)
	set("tbt", r.TBT)
	set("fcp", r.FCP)
	set("ttfb", r.TTFB)
	return limits
}
