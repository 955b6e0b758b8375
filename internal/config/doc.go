// Package config loads, normalizes, and validates the TOML configuration that
// every Loom component receives by explicit reference.
//
// Load resolves the config path (flag value, ~/.config/loom/config.toml, or a
// project-local loom.toml), decodes it over the repository defaults, expands
// all path fields, and validates cross-field constraints. There is no
// process-wide settings object; constructors take *Config.
package config
