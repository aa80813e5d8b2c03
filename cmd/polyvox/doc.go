// Package main hosts the polyvox CLI entrypoint and command graph.
//
// The Cobra-based command tree compiles project recipes into job plans,
// submits them to the queue, inspects queue and workflow state, manages
// project directories and their artifacts, and controls the polyvoxd
// daemon over its HTTP API. It centralizes configuration resolution and
// daemon discovery so subcommands can focus on user experience.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
