// Package notifications delivers workflow push notifications through ntfy.
// When no topic is configured every call is a no-op.
package notifications
