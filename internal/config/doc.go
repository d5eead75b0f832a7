// Package config loads, normalizes, and validates the TOML configuration
// shared by the platter daemon and CLI.
package config
