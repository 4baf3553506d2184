package config

import (
	"log/slog"
	"strings"
)

// ObservabilityConfig groups configuration that controls logging and metrics.
type ObservabilityConfig struct {
	Logging LoggingConfig
	Metrics MetricsConfig
	StatsD  StatsDConfig `envPrefix:"OBSERVABILITY_METRICS_STATSD_"`
}

// Sanitize applies guardrails to observability sub-configs.
func (c *ObservabilityConfig) Sanitize(isDev bool) {
	c.Logging.Sanitize(isDev)
	c.Metrics.Sanitize()
	c.StatsD.Sanitize()
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL"  envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:""`
}

// Sanitize normalises the level and picks a format when none is set.
func (c *LoggingConfig) Sanitize(isDev bool) {
	c.Level = strings.ToLower(strings.TrimSpace(c.Level))
	c.Format = strings.ToLower(strings.TrimSpace(c.Format))
	if c.Format != "json" && c.Format != "text" {
		c.Format = "json"
		if isDev {
			c.Format = "text"
		}
	}
}

// SlogLevel maps Level to a slog.Level, defaulting to info.
func (c *LoggingConfig) SlogLevel() slog.Level {
	switch c.Level {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `env:"METRICS_ENABLED" envDefault:"true"`
	Path    string `env:"METRICS_PATH"    envDefault:"/metrics"`
}

// Sanitize normalises derived fields and enforces safe defaults.
func (c *MetricsConfig) Sanitize() {
	c.Path = strings.TrimSpace(c.Path)
	if c.Path == "" || !strings.HasPrefix(c.Path, "/") {
		c.Path = "/metrics"
	}
}

// StatsDConfig controls emission of auth metrics to a StatsD agent alongside Prometheus.
type StatsDConfig struct {
	Enabled bool   `env:"ENABLED" envDefault:"false"`
	Address string `env:"ADDRESS" envDefault:"127.0.0.1:8125"`
	Prefix  string `env:"PREFIX"  envDefault:"admingate"`
}

// Sanitize disables emission when no address is set.
func (c *StatsDConfig) Sanitize() {
	c.Address = strings.TrimSpace(c.Address)
	if c.Address == "" {
		c.Enabled = false
	}
}
