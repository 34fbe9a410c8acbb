// Package router defines the extension points middleware binds to.
// Adapters for net/http, gin-gonic and gorilla/mux implement the same contract,
// so a middleware written against Context behaves identically on each of them.
package router

import (
	"fmt"
	"net/http"

	"github.com/nimburion/requestid/pkg/middleware"
)

// Router defines the interface for HTTP routing.
type Router interface {
	GET(path string, handler HandlerFunc, middleware ...MiddlewareFunc)
	POST(path string, handler HandlerFunc, middleware ...MiddlewareFunc)
	PUT(path string, handler HandlerFunc, middleware ...MiddlewareFunc)
	DELETE(path string, handler HandlerFunc, middleware ...MiddlewareFunc)
	PATCH(path string, handler HandlerFunc, middleware ...MiddlewareFunc)

	// Group creates a route group with common prefix and middleware.
	Group(prefix string, middleware ...MiddlewareFunc) Router

	// Use applies middleware to routes registered after the call.
	Use(middleware ...MiddlewareFunc)

	ServeHTTP(w http.ResponseWriter, r *http.Request)
}

// HandlerFunc is the function signature for route handlers.
type HandlerFunc func(Context) error

// MiddlewareFunc wraps a HandlerFunc and returns a new HandlerFunc.
type MiddlewareFunc func(HandlerFunc) HandlerFunc

// Chain applies middleware around h so that middleware[0] runs first.
func Chain(h HandlerFunc, middleware ...MiddlewareFunc) HandlerFunc {
	for i := len(middleware) - 1; i >= 0; i-- {
		h = middleware[i](h)
	}
	return h
}

// Context provides access to request and response in a router-agnostic way.
//
// Get and Set expose the per-request extension store. Values stored there live
// exactly as long as the request being served.
type Context interface {
	// Request returns the underlying HTTP request
	Request() *http.Request

	// SetRequest replaces the request, typically with one carrying a derived context
	SetRequest(r *http.Request)

	Response() ResponseWriter
	SetResponse(w ResponseWriter)

	// Param returns a URL parameter by name (e.g., /users/:id)
	Param(name string) string

	// Query returns the first query parameter value by name
	Query(name string) string

	JSON(code int, v interface{}) error
	String(code int, s string) error

	Get(key string) interface{}
	Set(key string, value interface{})
}

// ResponseWriter wraps http.ResponseWriter to track response status.
type ResponseWriter interface {
	http.ResponseWriter

	// Status returns the HTTP status code of the response
	Status() int

	// Written returns whether the status line has been sent
	Written() bool
}

// ErrorResponse is the body written for a handler error that left the response unwritten.
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// WriteError answers err with a JSON 500 unless a response was already written.
// The request ID found in the extension store, if any, is included in the body.
func WriteError(c Context, err error) {
	if err == nil || c.Response().Written() {
		return
	}
	body := ErrorResponse{Error: "internal_server_error", Message: err.Error()}
	if id, ok := c.Get(middleware.RequestIDStoreKey).(fmt.Stringer); ok {
		body.RequestID = id.String()
	}
	_ = c.JSON(http.StatusInternalServerError, body)
}
