// Package catalog scans a project's stage directories and produces a typed
// inventory of the artifacts available as pipeline inputs.
//
// The scan is read-only and tolerant: stage directories that do not exist yet
// yield an empty inventory rather than an error, and files that do not match
// the naming conventions are ignored. Each snapshot carries a content
// fingerprint so a compile can detect when the inventory changed underneath
// it.
//
// The package also owns the canonical path layout of a project
// (source/, stages/01-cleanup/, stages/02-translate/, ...) used by every
// other component; path helpers here are the single source of truth for
// where a stage reads and writes.
package catalog
