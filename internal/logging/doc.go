// Package logging assembles structured slog loggers and formatting helpers used
// across storyforge.
//
// It owns the console and JSON handlers, tees output into a rotating log file,
// and exposes context-aware helpers so pipeline code can tag log lines with
// job IDs, stages and correlation IDs. A no-op logger is provided for tests
// and wiring code that cannot fail.
package logging
