// Package retry provides retry execution with exponential backoff and
// PostgreSQL-aware error classification.
//
// The loader uses it for warehouse connection attempts: transient
// conditions (network hiccups, server starting up, resource pressure)
// are retried with backoff, while fatal errors (bad credentials, bad
// SQL) fail immediately.
package retry
