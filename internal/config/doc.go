// Package config loads, normalizes, and validates storyloom's TOML
// configuration. All path fields are expanded to absolute paths during
// Load, so downstream packages never see "~" or relative directories.
package config
