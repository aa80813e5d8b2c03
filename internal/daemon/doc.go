// Package daemon ties the long-running pieces together: the queue store, the
// workflow manager, and the HTTP API. A file lock enforces a single instance
// per log directory.
package daemon
