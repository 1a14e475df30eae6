package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if c.Pipeline.AnchorPointInterval < 2 || c.Pipeline.AnchorPointInterval > 5 {
		return fmt.Errorf("pipeline.anchor_point_interval must be between 2 and 5, got %d", c.Pipeline.AnchorPointInterval)
	}
	if c.Pipeline.MinSeconds <= 0 {
		return errors.New("pipeline.min_seconds must be positive")
	}
	if c.Pipeline.TargetSeconds < c.Pipeline.MinSeconds {
		return errors.New("pipeline.target_seconds must be at least pipeline.min_seconds")
	}
	if c.Pipeline.MaxSeconds < c.Pipeline.TargetSeconds {
		return errors.New("pipeline.max_seconds must be at least pipeline.target_seconds")
	}
	if c.Pipeline.SegmentTimeoutSeconds <= 0 {
		return errors.New("pipeline.segment_timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
