package requestid

import (
	"context"

	"github.com/nimburion/requestid/pkg/middleware"
	"github.com/nimburion/requestid/pkg/server/router"
)

// ID is an opaque per-request correlation token.
type ID string

// String returns the ID as a plain string.
func (id ID) String() string {
	return string(id)
}

// provisional marks an ID assigned by Extract before any middleware ran.
type provisional ID

// WithRequestID returns a copy of ctx carrying id.
func WithRequestID(ctx context.Context, id ID) context.Context {
	return context.WithValue(ctx, middleware.RequestIDKey, id)
}

// FromContext returns the request ID stored in ctx, if any.
func FromContext(ctx context.Context) (ID, bool) {
	if ctx == nil {
		return "", false
	}

	switch v := ctx.Value(middleware.RequestIDKey).(type) {
	case ID:
		return v, v != ""
	case provisional:
		return ID(v), v != ""
	case string:
		return ID(v), v != ""
	default:
		return "", false
	}
}

// assigned is FromContext without provisional IDs.
func assigned(ctx context.Context) (ID, bool) {
	if _, ok := ctx.Value(middleware.RequestIDKey).(provisional); ok {
		return "", false
	}
	return FromContext(ctx)
}

// GetRequestID extracts the request ID from a context.
// Returns empty string if no request ID is found.
func GetRequestID(ctx context.Context) string {
	id, _ := FromContext(ctx)
	return id.String()
}

// Extract returns the request ID of the request served by c.
//
// When no request ID middleware has run yet, Extract assigns a provisional ID
// with the default generator and stores it, so every call within the same
// request returns the same value. A request ID middleware further down the chain
// resolves the request normally and replaces the provisional ID.
func Extract(c router.Context) ID {
	if id, ok := c.Get(middleware.RequestIDStoreKey).(ID); ok && id != "" {
		return id
	}

	req := c.Request()
	if id, ok := FromContext(req.Context()); ok {
		c.Set(middleware.RequestIDStoreKey, id)
		return id
	}

	id := NewUUID()
	c.Set(middleware.RequestIDStoreKey, id)
	c.SetRequest(req.WithContext(context.WithValue(req.Context(), middleware.RequestIDKey, provisional(id))))
	return id
}
