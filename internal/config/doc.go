// Package config loads, defaults, and validates the equirect configuration
// file.
//
// Configuration lives at ~/.config/equirect/config.toml (or an explicit path
// passed on the command line, or an equirect.toml in the working directory).
// Load returns a fully normalized Config with all paths expanded, so other
// packages never deal with ~ or relative segments.
package config
