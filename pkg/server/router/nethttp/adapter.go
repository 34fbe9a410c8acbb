// Package nethttp provides a net/http-based implementation of the router.Router interface.
package nethttp

import (
	"net/http"
	"strings"
	"sync"

	"github.com/nimburion/requestid/pkg/server/router"
)

// NetHTTPRouter implements router.Router using net/http and a simple pattern matcher.
// Groups share the route table of the router they were created from.
type NetHTTPRouter struct {
	router.Routes
	*router.Stack

	table  *routeTable
	prefix string
}

type routeTable struct {
	mu     sync.RWMutex
	routes []route
}

type route struct {
	method  string
	pattern []string
	handler router.HandlerFunc
}

// NewRouter creates a new NetHTTPRouter.
func NewRouter() *NetHTTPRouter {
	return newRouter(&routeTable{}, &router.Stack{}, "")
}

func newRouter(table *routeTable, stack *router.Stack, prefix string) *NetHTTPRouter {
	r := &NetHTTPRouter{Stack: stack, table: table, prefix: prefix}
	r.Routes = router.Routes{Handle: r.addRoute}
	return r
}

// Group creates a route group with common prefix and middleware.
func (r *NetHTTPRouter) Group(prefix string, middleware ...router.MiddlewareFunc) router.Router {
	return newRouter(r.table, r.Fork(middleware...), r.prefix+prefix)
}

// ServeHTTP dispatches to the first route whose method and pattern match.
func (r *NetHTTPRouter) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.table.mu.RLock()
	routes := r.table.routes
	r.table.mu.RUnlock()

	path := splitPath(req.URL.Path)
	for _, rt := range routes {
		if rt.method != req.Method {
			continue
		}
		params, ok := match(rt.pattern, path)
		if !ok {
			continue
		}

		ctx := router.NewContext(w, req, func(_ *http.Request, name string) string { return params[name] })
		router.WriteError(ctx, rt.handler(ctx))
		return
	}

	http.NotFound(w, req)
}

func (r *NetHTTPRouter) addRoute(method, path string, handler router.HandlerFunc, middleware []router.MiddlewareFunc) {
	rt := route{
		method:  method,
		pattern: splitPath(r.prefix + path),
		handler: r.Build(handler, middleware),
	}

	r.table.mu.Lock()
	defer r.table.mu.Unlock()
	r.table.routes = append(r.table.routes, rt)
}

func splitPath(path string) []string {
	return strings.Split(strings.Trim(path, "/"), "/")
}

// match compares pre-split segments; ":name" segments capture the path segment.
func match(pattern, path []string) (map[string]string, bool) {
	if len(pattern) != len(path) {
		return nil, false
	}

	var params map[string]string
	for i, segment := range pattern {
		if name, ok := strings.CutPrefix(segment, ":"); ok {
			if params == nil {
				params = make(map[string]string, 1)
			}
			params[name] = path[i]
			continue
		}
		if segment != path[i] {
			return nil, false
		}
	}
	return params, true
}
