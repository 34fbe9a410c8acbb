// Package middleware holds identifiers shared by the middleware packages.
package middleware

// ContextKey is a typed key for context values to avoid collisions
type ContextKey string

const (
	// RequestIDKey is the context.Context key for the request ID.
	RequestIDKey ContextKey = "request_id"

	// RequestIDStoreKey is the router.Context extension store key for the request ID.
	RequestIDStoreKey = "request_id"
)
