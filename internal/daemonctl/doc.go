// Package daemonctl controls a polyvoxd process from the CLI.
//
// It speaks the daemon's HTTP API for queries and uses the pid file for
// termination, so the CLI works the same whether it launched the daemon
// itself or found one already running.
package daemonctl
