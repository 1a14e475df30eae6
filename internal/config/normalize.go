package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeGenerator()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeGenerator() {
	c.Generator.APIKey = strings.TrimSpace(c.Generator.APIKey)
	c.Generator.BaseURL = strings.TrimSpace(c.Generator.BaseURL)
	c.Generator.Model = strings.TrimSpace(c.Generator.Model)
	c.Generator.Platform = strings.ToLower(strings.TrimSpace(c.Generator.Platform))
	if c.Generator.BaseURL == "" {
		c.Generator.BaseURL = defaultGeneratorBaseURL
	}
	if c.Generator.Model == "" {
		c.Generator.Model = defaultGeneratorModel
	}
	if c.Generator.Platform == "" {
		c.Generator.Platform = defaultGeneratorPlatform
	}
	if c.Generator.TimeoutSeconds <= 0 {
		c.Generator.TimeoutSeconds = defaultGeneratorTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
