// Package workflow drives queued jobs through their stage handlers.
//
// A single worker loop claims the oldest pending job, runs its handler with a
// heartbeat, and on completion applies any chain bindings the job carries:
// activating placeholder targets, filling assembly sides, and materializing
// assemblies from solo synthesis runs. Bindings are recorded in the queue
// database so a crash between completion and activation cannot apply one
// twice.
package workflow
