// Package wizard holds the in-memory stage configuration a user builds up
// before submitting a pipeline.
//
// Each stage carries an explicit tri-state status (pending, skipped,
// completed) that changes only through named transitions. Supplying enough
// configuration to make a stage actionable automatically un-skips it.
// Compilation consumes an immutable value snapshot of the session, never the
// session itself, so the compiler stays a pure function of its inputs.
package wizard
