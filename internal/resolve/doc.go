// Package resolve maps a stage plus a user-selected source token to the
// concrete artifact path a job should consume.
//
// The "latest" token walks a fixed fallback priority chain over the catalog
// snapshot, always preferring the most-processed available artifact. A miss
// is never an error: the resolver answers with the expected future path of
// the artifact an upstream job is supposed to produce, and leaves it to the
// compiler to warn when nothing upstream will plausibly produce it.
package resolve
