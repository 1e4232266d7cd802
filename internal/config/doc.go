// Package config loads, validates, and normalizes the demix configuration
// from TOML. All consumers receive an explicit *Config; there is no global
// settings singleton.
package config
