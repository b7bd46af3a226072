// Package logging builds the slog loggers used by the daemon and CLI. It
// provides a compact console handler for interactive use, a JSON handler for
// machine consumption, and shared attribute helpers so log fields stay
// consistent across components.
package logging
