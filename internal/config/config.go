package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds process-level settings read from the environment
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// Logging configuration
	Log LogConfig

	// Security configuration
	Security SecurityConfig

	// GitHub configuration
	GitHub GitHubConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	RateLimit       int // requests per minute per client
}

// DatabaseConfig holds database-specific configuration. An empty DSN means
// the project config's storage path is used.
type DatabaseConfig struct {
	DSN string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string
	Format string // "json" or "text"
}

// SecurityConfig holds security-specific configuration
type SecurityConfig struct {
	// API Keys - sent by dashboard clients for authentication
	APIKeys []string

	// IngestSecret signs run uploads sent to /webhook/runs
	IngestSecret string
}

// GitHubConfig holds GitHub API access settings
type GitHubConfig struct {
	Token      string
	Repository string // owner/repo
	APIURL     string
	EventPath  string // path to the Actions event payload
}

// Load loads configuration from environment variables with sensible defaults
func Load() (*Config, error) {
	// Try to load .env file (ignore errors - it's optional)
	_ = godotenv.Load(".env")

	v := viper.New()
	v.SetEnvPrefix("PERFBUDGET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	// GitHub Actions provides these without our prefix
	_ = v.BindEnv("github.token", "PERFBUDGET_GITHUB_TOKEN", "GITHUB_TOKEN")
	_ = v.BindEnv("github.repository", "PERFBUDGET_GITHUB_REPOSITORY", "GITHUB_REPOSITORY")
	_ = v.BindEnv("github.api_url", "PERFBUDGET_GITHUB_API_URL", "GITHUB_API_URL")
	_ = v.BindEnv("github.event_path", "PERFBUDGET_GITHUB_EVENT_PATH", "GITHUB_EVENT_PATH")

	cfg := &Config{
		Server: ServerConfig{
			Host:            v.GetString("server.host"),
			Port:            v.GetInt("server.port"),
			ReadTimeout:     v.GetDuration("server.read_timeout"),
			WriteTimeout:    v.GetDuration("server.write_timeout"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
			RateLimit:       v.GetInt("server.rate_limit"),
		},
		Database: DatabaseConfig{
			DSN: v.GetString("db.dsn"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		Security: SecurityConfig{
			APIKeys:      splitList(v.GetString("api_keys")),
			IngestSecret: v.GetString("ingest_secret"),
		},
		GitHub: GitHubConfig{
			Token:      v.GetString("github.token"),
			Repository: v.GetString("github.repository"),
			APIURL:     v.GetString("github.api_url"),
			EventPath:  v.GetString("github.event_path"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.rate_limit", 60)
	v.SetDefault("db.dsn", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("api_keys", "")
	v.SetDefault("ingest_secret", "")
	v.SetDefault("github.api_url", "https://api.github.com")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.RateLimit < 1 {
		return fmt.Errorf("server rate limit must be positive: %d", c.Server.RateLimit)
	}

	if c.Log.Format != "json" && c.Log.Format != "text" {
		return fmt.Errorf("invalid log format: %q (valid: json, text)", c.Log.Format)
	}

	if c.GitHub.Repository != "" {
		if _, _, err := c.GitHub.OwnerRepo(); err != nil {
			return err
		}
	}

	return nil
}

// ValidateServe applies the stricter rules required to expose the dashboard API
func (c *Config) ValidateServe() error {
	// Security validation
	if len(c.Security.APIKeys) == 0 {
		return fmt.Errorf("at least one API key is required")
	}

	// Check for default/insecure API keys
	for _, key := range c.Security.APIKeys {
		if key == "default-api-key" || key == "api-key-123" || len(key) < 8 {
			return fmt.Errorf("insecure or default API key detected: '%s'. Please set secure API keys in environment variables", key)
		}
	}

	if c.Security.IngestSecret != "" && len(c.Security.IngestSecret) < 16 {
		return fmt.Errorf("ingest secret must be at least 16 characters")
	}

	return nil
}

// Address returns the server address in the format host:port
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// OwnerRepo splits the configured owner/repo pair
func (g *GitHubConfig) OwnerRepo() (string, string, error) {
	owner, repo, ok := strings.Cut(g.Repository, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", "", fmt.Errorf("invalid GitHub repository %q: expected owner/repo", g.Repository)
	}
	return owner, repo, nil
}

// splitList splits a comma separated value, dropping blanks
func splitList(value string) []string {
	values := make([]string, 0)
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
}
