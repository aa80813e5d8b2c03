// Package api exposes daemon state over HTTP: queue contents, workflow
// views, health, and the cancel operation. The server binds the address from
// Paths.APIBind and is meant for local tooling, not the open internet.
package api
