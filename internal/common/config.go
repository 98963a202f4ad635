package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server"`
	Upstream    UpstreamConfig  `toml:"upstream"`
	Dashboard   DashboardConfig `toml:"dashboard"`
	Logging     LoggingConfig   `toml:"logging"`
}

type ServerConfig struct {
	Port int    `toml:"port" validate:"min=1,max=65535"`
	Host string `toml:"host" validate:"required"`
}

// UpstreamConfig points at the scraper backend that owns jobs and logs.
type UpstreamConfig struct {
	BaseURL   string  `toml:"base_url" validate:"required,url"` // e.g. "http://localhost:8000"
	Timeout   string  `toml:"timeout"`                          // per-request timeout, e.g. "10s"
	RateLimit float64 `toml:"rate_limit"`                       // outbound requests per second
	Burst     int     `toml:"burst"`                            // rate limiter burst size
}

// DashboardConfig controls the per-job view derivation cadence.
type DashboardConfig struct {
	PollInterval    string `toml:"poll_interval"`                    // network re-fetch cadence, e.g. "2s"
	ElapsedInterval string `toml:"elapsed_interval"`                 // local elapsed-time tick, e.g. "1s"
	ActivityLimit   int    `toml:"activity_limit" validate:"min=1"`  // entries shown in the activity feed
	LogFetchLimit   int    `toml:"log_fetch_limit" validate:"min=1"` // newest-first entries fetched per poll
	ViewTTL         string `toml:"view_ttl"`                         // idle views older than this are reaped
}

type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // time format for log lines
}

// DefaultConfig returns the built-in configuration defaults.
// Layering order: defaults -> config file(s) -> env -> CLI flags.
func DefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8090,
			Host: "localhost",
		},
		Upstream: UpstreamConfig{
			BaseURL:   "http://localhost:8000",
			Timeout:   "10s",
			RateLimit: 10,
			Burst:     5,
		},
		Dashboard: DashboardConfig{
			PollInterval:    "2s",
			ElapsedInterval: "1s",
			ActivityLimit:   35,
			LogFetchLimit:   200,
			ViewTTL:         "10m",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout"},
			TimeFormat: "15:04:05",
		},
	}
}

// LoadFromFiles loads configuration from one or more TOML files.
// Later files override earlier ones; environment variables override files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := DefaultConfig()

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if err := validator.New().Struct(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// applyEnvOverrides applies LEADWATCH_* environment variables over file values.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("LEADWATCH_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			config.Server.Port = port
		}
	}
	if v := os.Getenv("LEADWATCH_SERVER_HOST"); v != "" {
		config.Server.Host = v
	}
	if v := os.Getenv("LEADWATCH_UPSTREAM_URL"); v != "" {
		config.Upstream.BaseURL = v
	}
	if v := os.Getenv("LEADWATCH_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
	if v := os.Getenv("LEADWATCH_POLL_INTERVAL"); v != "" {
		config.Dashboard.PollInterval = v
	}
}

// ApplyFlagOverrides applies command-line flag values (highest priority).
// Zero values mean the flag was not provided.
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port != 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// durationOr parses s as a duration, falling back to def on empty or invalid input.
func durationOr(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// PollIntervalDuration returns the parsed network poll cadence.
func (c *DashboardConfig) PollIntervalDuration() time.Duration {
	return durationOr(c.PollInterval, 2*time.Second)
}

// ElapsedIntervalDuration returns the parsed elapsed-time tick cadence.
func (c *DashboardConfig) ElapsedIntervalDuration() time.Duration {
	return durationOr(c.ElapsedInterval, time.Second)
}

// ViewTTLDuration returns how long an idle job view is kept before reaping.
func (c *DashboardConfig) ViewTTLDuration() time.Duration {
	return durationOr(c.ViewTTL, 10*time.Minute)
}

// TimeoutDuration returns the per-request timeout for upstream calls.
func (c *UpstreamConfig) TimeoutDuration() time.Duration {
	return durationOr(c.Timeout, 10*time.Second)
}
