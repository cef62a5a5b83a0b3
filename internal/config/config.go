// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load(ctx) layers defaults, optional .env, optional YAML file and env vars.
// - External errors are wrapped with this package's sentinel kinds.
package config

import "time"

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"omitempty,oneof=debug info warn warning error"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr" validate:"required"`

	// RosterPath points at the student CSV (or .xlsx) loaded at start-up.
	RosterPath string `koanf:"roster_path" validate:"required"`

	// FallbackPath points at the JSON dataset used when POST /api/latency
	// carries no body.
	FallbackPath string `koanf:"fallback_path" validate:"required"`

	// DefaultThresholdMS applies when a payload does not set threshold_ms.
	DefaultThresholdMS float64 `koanf:"default_threshold_ms" validate:"gt=0"`

	// MaxBodyBytes caps accepted request bodies.
	MaxBodyBytes int64 `koanf:"max_body_bytes" validate:"gt=0"`

	// Metrics configures the Prometheus series exposed on /metrics.
	MetricsNamespace       string            `koanf:"metrics_namespace" validate:"required"`
	MetricsSubsystem       string            `koanf:"metrics_subsystem" validate:"required"`
	MetricsEnabled         bool              `koanf:"metrics_enabled"`
	MetricsRefreshInterval time.Duration     `koanf:"metrics_refresh_interval" validate:"gt=0"`
	MetricsBuckets         []float64         `koanf:"metrics_buckets" validate:"omitempty,dive,gt=0"`
	MetricsLabels          map[string]string `koanf:"metrics_labels"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		Addr:               ":9080",
		RosterPath:         "q-fastapi.csv",
		FallbackPath:       "q-vercel-latency.json",
		DefaultThresholdMS: 180,
		MaxBodyBytes:       1 << 20,

		MetricsNamespace:       "vantage",
		MetricsSubsystem:       "api",
		MetricsEnabled:         true,
		MetricsRefreshInterval: 10 * time.Second,
	}
}
