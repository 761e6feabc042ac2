package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProject(t *testing.T) {
	data := []byte(`
build:
  dir: out/.next
  stats: out/stats.json
budgets:
  - path: "pages/.*"
    max: 200kb
thresholds:
  regression: 8
  warning: 3
runtime:
  lcp: 3000
lighthouse:
  enabled: true
  urls: ["https://example.com/"]
  runs: 5
  preset: mobile
  timeout: 90s
storage:
  path: history.db
  retention_days: 0
  baseline_branch: develop
github:
  comment: false
`)

	p, err := ParseProject(data)
	require.NoError(t, err)

	assert.Equal(t, "out/.next", p.Build.Dir)
	assert.Equal(t, "out/stats.json", p.Build.Stats)
	require.Len(t, p.Budgets, 1)
	assert.Equal(t, "pages/.*", p.Budgets[0].Path)
	assert.Equal(t, "200kb", p.Budgets[0].Max)
	assert.Equal(t, Thresholds{Regression: 8, Warning: 3}, p.Thresholds)
	assert.Equal(t, []string{"https://example.com/"}, p.Lighthouse.URLs)
	assert.Equal(t, 90*time.Second, p.Lighthouse.Timeout)
	assert.Equal(t, "mobile", p.Lighthouse.Preset)
	assert.Equal(t, "lighthouse", p.Lighthouse.Binary)
	assert.Equal(t, "develop", p.Storage.BaselineBranch)
	assert.False(t, p.GitHub.Comment)
	assert.Equal(t, 3000.0, p.Runtime.Limits()["lcp"])
}

func TestParseProject_EmptyUsesDefaults(t *testing.T) {
	p, err := ParseProject([]byte(""))
	require.NoError(t, err)
	assert.Equal(t, ".next", p.Build.Dir)
	assert.Empty(t, p.Budgets)
	assert.Equal(t, float64(10), p.Thresholds.Regression)
}

func TestParseProject_FailsClosed(t *testing.T) {
	tests := []struct {
		name   string
		yaml   string
		errMsg string
	}{
		{"unknown key", "budgetz: []", "budgetz"},
		{"wrong type", "thresholds:\n  regression: lots", "parse"},
		{"regression over 100", "thresholds:\n  regression: 150\n  warning: 5", "thresholds.regression"},
		{"warning above regression", "thresholds:\n  regression: 5\n  warning: 10", "must not exceed"},
		{"negative warning", "thresholds:\n  warning: -1", "thresholds.warning"},
		{"budget without path", "budgets:\n  - max: 1kb", "budgets[0].path"},
		{"budget without max", "budgets:\n  - path: x", "budgets[0].max"},
		{"negative runtime limit", "runtime:\n  cls: -0.1", "runtime.cls"},
		{"runs out of range", "lighthouse:\n  runs: 11", "lighthouse.runs"},
		{"bad preset", "lighthouse:\n  preset: tablet", "lighthouse.preset"},
		{"enabled without urls", "lighthouse:\n  enabled: true", "lighthouse.urls"},
		{"invalid url", "lighthouse:\n  enabled: true\n  urls: [\"localhost:3000\"]", "invalid URL"},
		{"empty build dir", "build:\n  dir: \"\"", "build.dir"},
		{"negative retention", "storage:\n  retention_days: -1", "retention_days"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseProject([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestParseProject_MalformedBudgetMaxIsAccepted(t *testing.T) {
	p, err := ParseProject([]byte("budgets:\n  - path: main\n    max: bogus\n"))
	require.NoError(t, err)
	assert.Equal(t, "bogus", p.Budgets[0].Max)
}

func TestLoadProject(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadProject(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, ErrConfigNotFound)

	path := filepath.Join(dir, "perf-budget.yaml")
	data, err := DefaultProject().Marshal()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	p, err := LoadProject(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultProject(), p)
}

func TestRuntimeLimits(t *testing.T) {
	lcp, cls := 2500.0, 0.1
	limits := RuntimeLimits{LCP: &lcp, CLS: &cls}.Limits()
	assert.Equal(t, map[string]float64{"lcp": 2500, "cls": 0.1}, limits)
	assert.Empty(t, RuntimeLimits{}.Limits())
}

func TestLoad_Environment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PERFBUDGET_SERVER_PORT", "9090")
	t.Setenv("PERFBUDGET_API_KEYS", " key-aaaaaaaa , ,key-bbbbbbbb")
	t.Setenv("PERFBUDGET_LOG_FORMAT", "json")
	t.Setenv("GITHUB_TOKEN", "ghs_token")
	t.Setenv("GITHUB_REPOSITORY", "acme/shop")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, ":9090", cfg.Server.Address())
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, []string{"key-aaaaaaaa", "key-bbbbbbbb"}, cfg.Security.APIKeys)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "ghs_token", cfg.GitHub.Token)
	assert.Equal(t, "https://api.github.com", cfg.GitHub.APIURL)

	owner, repo, err := cfg.GitHub.OwnerRepo()
	require.NoError(t, err)
	assert.Equal(t, "acme", owner)
	assert.Equal(t, "shop", repo)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server: ServerConfig{Port: 8080, RateLimit: 60},
			Log:    LogConfig{Level: "info", Format: "text"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"port zero", func(c *Config) { c.Server.Port = 0 }, "invalid server port"},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }, "invalid server port"},
		{"rate limit", func(c *Config) { c.Server.RateLimit = 0 }, "rate limit"},
		{"log format", func(c *Config) { c.Log.Format = "xml" }, "invalid log format"},
		{"repository", func(c *Config) { c.GitHub.Repository = "just-a-name" }, "owner/repo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_ValidateServe(t *testing.T) {
	c := &Config{}
	assert.ErrorContains(t, c.ValidateServe(), "at least one API key")

	c.Security.APIKeys = []string{"api-key-123"}
	assert.ErrorContains(t, c.ValidateServe(), "insecure")

	c.Security.APIKeys = []string{"short"}
	assert.ErrorContains(t, c.ValidateServe(), "insecure")

	c.Security.APIKeys = []string{"a-long-enough-key"}
	assert.NoError(t, c.ValidateServe())

	c.Security.IngestSecret = "tiny"
	assert.ErrorContains(t, c.ValidateServe(), "ingest secret")
}
