// Package logging assembles structured slog loggers and formatting helpers used
// across the vault daemon and CLI.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context helpers so ingestion code can tag log lines
// with chat ids, upload groups, and correlation ids. The package also provides
// a no-op logger for tests and wiring code that cannot fail.
package logging
