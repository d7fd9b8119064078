// Package logging assembles the structured slog loggers used across equirect.
//
// It owns the console/JSON handlers and centralizes level and output plumbing
// so pipeline code emits data with a consistent shape. The package also
// provides a no-op logger for tests and wiring code that cannot fail.
//
// Prefer these constructors over hand-rolled slog setup.
package logging
