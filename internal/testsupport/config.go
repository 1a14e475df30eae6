package testsupport

import (
	"path/filepath"
	"testing"

	"storyloom/internal/config"
)

// ConfigOption customizes the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Generator.APIKey = "test"

	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return &cfg
}

// WithAnchorInterval overrides the anchor point interval.
func WithAnchorInterval(interval int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Pipeline.AnchorPointInterval = interval
	}
}

// WithStrictMode enables strict continuity validation.
func WithStrictMode() ConfigOption {
	return func(cfg *config.Config) {
		cfg.Pipeline.StrictMode = true
	}
}

// WithSegmentTimeout overrides the per-segment deadline, in seconds.
func WithSegmentTimeout(seconds int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Pipeline.SegmentTimeoutSeconds = seconds
	}
}
