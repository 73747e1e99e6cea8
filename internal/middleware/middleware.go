// Package middleware holds the HTTP middleware shared by all routes:
// request IDs, request-scoped logging, and Prometheus HTTP metrics.
package middleware

// contextKey is a private type for context values set by this package.
type contextKey string
