package router

import (
	"net/http"
	"sync"
)

// Routes implements the per-method registration half of Router on top of one
// Handle function. Adapters embed it.
type Routes struct {
	Handle func(method, path string, handler HandlerFunc, middleware []MiddlewareFunc)
}

func (rs Routes) GET(path string, handler HandlerFunc, middleware ...MiddlewareFunc) {
	rs.Handle(http.MethodGet, path, handler, middleware)
}

func (rs Routes) POST(path string, handler HandlerFunc, middleware ...MiddlewareFunc) {
	rs.Handle(http.MethodPost, path, handler, middleware)
}

func (rs Routes) PUT(path string, handler HandlerFunc, middleware ...MiddlewareFunc) {
	rs.Handle(http.MethodPut, path, handler, middleware)
}

func (rs Routes) DELETE(path string, handler HandlerFunc, middleware ...MiddlewareFunc) {
	rs.Handle(http.MethodDelete, path, handler, middleware)
}

func (rs Routes) PATCH(path string, handler HandlerFunc, middleware ...MiddlewareFunc) {
	rs.Handle(http.MethodPatch, path, handler, middleware)
}

// Stack holds the middleware of a router or group. Routes capture the stack
// when they are registered, so Use only affects later registrations.
type Stack struct {
	mu  sync.RWMutex
	fns []MiddlewareFunc
}

// Use appends middleware for routes registered after the call.
func (s *Stack) Use(middleware ...MiddlewareFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fns = append(s.fns, middleware...)
}

// Build chains handler behind the current stack and the route's own middleware.
func (s *Stack) Build(handler HandlerFunc, route []MiddlewareFunc) HandlerFunc {
	return Chain(handler, s.with(route)...)
}

// Fork returns a stack for a group: the current middleware followed by extra.
func (s *Stack) Fork(extra ...MiddlewareFunc) *Stack {
	return &Stack{fns: s.with(extra)}
}

func (s *Stack) with(extra []MiddlewareFunc) []MiddlewareFunc {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := make([]MiddlewareFunc, 0, len(s.fns)+len(extra))
	all = append(all, s.fns...)
	return append(all, extra...)
}
