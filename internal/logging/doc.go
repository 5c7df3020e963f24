// Package logging assembles structured slog loggers and formatting helpers used
// across rawwatch.
//
// It owns the console and JSON handlers, routes file output through a rotating
// writer, and exposes context helpers so every line emitted during a directory
// pass carries the same scan identifier. A no-op logger is provided for tests
// and wiring code that cannot fail.
package logging
