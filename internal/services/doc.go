// Package services defines shared utilities consumed by the workflow stage
// handlers and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, workflow IDs, and stage names for
//     logging and tracing.
//   - Structured error markers plus the Wrap helper that keep failure
//     classification uniform across engines, so the workflow manager can
//     decide between retrying and surfacing the error.
//
// Use these helpers when wiring new stage logic so operational behaviour
// stays uniform across the pipeline.
package services
