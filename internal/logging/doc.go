// Package logging assembles structured slog loggers and formatting helpers
// used across polyvox components.
//
// It owns the configurable console/JSON handlers, centralizes level and
// output plumbing, and exposes attribute helpers so pipeline code tags log
// lines with workflow IDs, job IDs, and stage names consistently. The package
// also provides a no-op logger for tests and wiring code that cannot fail.
//
// Prefer these constructors over hand-rolled slog setup so every component
// emits data with the same shape and routing guarantees.
package logging
