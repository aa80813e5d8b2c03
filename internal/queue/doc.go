// Package queue persists compiled job plans in SQLite and tracks their
// lifecycle from submission through execution. Chain placeholders enter the
// queue blocked and are released by completion bindings, which the store
// records so each binding applies at most once per workflow.
package queue
