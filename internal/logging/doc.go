// Package logging assembles structured slog loggers and formatting helpers
// used across the splice daemon.
//
// It owns the configurable console/JSON handlers, centralizes level and
// output plumbing, and exposes context-aware helpers so collaborator code can
// automatically tag log lines with session, media, and correlation IDs. The
// package also provides a no-op logger for tests and wiring code that cannot
// fail, plus a bounded in-memory stream hub backing the log tail surfaces.
//
// Prefer these constructors over hand-rolled slog setup so new components
// emit data with the same shape and routing guarantees as the rest of the
// system.
package logging
