package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// FileName is the config file looked up inside the base directory.
const FileName = "config.yaml"

// Config holds application configuration.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Log       LogConfig       `yaml:"log"`
	Server    ServerConfig    `yaml:"server"`
	Analyzer  AnalyzerConfig  `yaml:"analyzer"`
	Share     ShareConfig     `yaml:"share"`
	Reconcile ReconcileConfig `yaml:"reconcile"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `yaml:"disabled_tools" env:"LEXIS_DISABLED_TOOLS" env-separator:","`
}

// DatabaseConfig holds connection pool settings.
type DatabaseConfig struct {
	// MaxOpenConns limits open connections. 1 serializes all database access.
	// 0 means use the sql.DB default (unlimited).
	MaxOpenConns int `yaml:"max_open_conns" env:"LEXIS_DB_MAX_OPEN_CONNS" env-default:"0"`
	// MaxIdleConns limits idle connections. 0 means use the sql.DB default.
	MaxIdleConns int `yaml:"max_idle_conns" env:"LEXIS_DB_MAX_IDLE_CONNS" env-default:"0"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LEXIS_LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LEXIS_LOG_FORMAT" env-default:"text"`
}

// ServerConfig holds HTTP API settings for `lexis serve`.
type ServerConfig struct {
	Host            string        `yaml:"host"             env:"LEXIS_SERVER_HOST"             env-default:"127.0.0.1"`
	Port            int           `yaml:"port"             env:"LEXIS_SERVER_PORT"             env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"LEXIS_SERVER_READ_TIMEOUT"     env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"LEXIS_SERVER_WRITE_TIMEOUT"    env-default:"30s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"LEXIS_SERVER_SHUTDOWN_TIMEOUT" env-default:"5s"`
	AllowedOrigins  []string      `yaml:"allowed_origins"  env:"LEXIS_SERVER_ALLOWED_ORIGINS"  env-separator:","`
}

// AnalyzerConfig selects the analyzer backing the analyze operation.
type AnalyzerConfig struct {
	// Provider is "basic" (in-process) or "openai".
	Provider     string `yaml:"provider"       env:"LEXIS_ANALYZER_PROVIDER" env-default:"basic"`
	OpenAIAPIKey string `yaml:"openai_api_key" env:"OPENAI_API_KEY"`
	OpenAIModel  string `yaml:"openai_model"   env:"LEXIS_OPENAI_MODEL"      env-default:"gpt-4o-mini"`
}

// ShareConfig holds snapshot sharing policy.
type ShareConfig struct {
	// RequireConnection rejects recipients the sharer has no connection edge to.
	RequireConnection bool `yaml:"require_connection" env:"LEXIS_SHARE_REQUIRE_CONNECTION" env-default:"false"`
}

// ReconcileConfig controls the periodic consistency reconciler in `lexis serve`.
type ReconcileConfig struct {
	// Interval between runs. 0 disables the background loop.
	Interval time.Duration `yaml:"interval" env:"LEXIS_RECONCILE_INTERVAL" env-default:"15m"`

	// HTTPEnabled exposes POST /api/v1/reconcile. Off by default; the CLI
	// and MCP tool are always available.
	HTTPEnabled bool `yaml:"http_enabled" env:"LEXIS_RECONCILE_HTTP_ENABLED" env-default:"false"`
}

// DefaultConfig returns the configuration produced by defaults alone.
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{Level: "info", Format: "text"},
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            8080,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Analyzer:  AnalyzerConfig{Provider: "basic", OpenAIModel: "gpt-4o-mini"},
		Reconcile: ReconcileConfig{Interval: 15 * time.Minute},
	}
}

// Load reads configuration from baseDir/config.yaml and environment variables.
// Priority: ENV > YAML > defaults (via env-default tags).
// A missing file is not an error; configuration then comes from ENV + defaults.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.lexis.
func Load(baseDir string) (*Config, error) {
	var cfg Config

	path := filepath.Join(baseDir, FileName)
	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else if errors.Is(err, os.ErrNotExist) {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("config: read env: %w", err)
		}
	} else {
		return nil, fmt.Errorf("config: stat %s: %w", path, err)
	}

	cfg.DisabledTools = cleanStringSlice(cfg.DisabledTools)
	cfg.Server.AllowedOrigins = cleanStringSlice(cfg.Server.AllowedOrigins)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}

	return &cfg, nil
}

// Validate performs range and enum checks on the loaded configuration.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("log.format must be one of: json, text (got %q)", c.Log.Format)
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of: debug, info, warn, error (got %q)", c.Log.Level)
	}

	switch c.Analyzer.Provider {
	case "basic":
	case "openai":
		if c.Analyzer.OpenAIAPIKey == "" {
			return fmt.Errorf("analyzer.openai_api_key is required when provider is openai")
		}
	default:
		return fmt.Errorf("analyzer.provider must be one of: basic, openai (got %q)", c.Analyzer.Provider)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535 (got %d)", c.Server.Port)
	}
	if c.Database.MaxOpenConns < 0 || c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database connection limits must be >= 0")
	}
	if c.Reconcile.Interval < 0 {
		return fmt.Errorf("reconcile.interval must be >= 0 (got %s)", c.Reconcile.Interval)
	}

	return nil
}

// cleanStringSlice trims whitespace and removes empty and duplicate entries.
func cleanStringSlice(in []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(in))

	for _, s := range in {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
