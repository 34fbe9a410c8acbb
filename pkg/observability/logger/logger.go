// Package logger provides the structured logger shared by the middleware and the servers.
package logger

import (
	"context"
)

// Logger is a leveled, structured logger. Every log method takes a message
// followed by alternating key-value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)

	// With returns a child logger that adds args to every entry.
	With(args ...any) Logger

	// WithContext returns a child logger carrying the request ID stored in ctx, if any.
	WithContext(ctx context.Context) Logger
}
