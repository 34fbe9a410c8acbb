// Package gorilla provides a gorilla/mux based implementation of the router.Router interface.
package gorilla

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/nimburion/requestid/pkg/server/router"
)

// GorillaRouter implements router.Router using gorilla/mux.
type GorillaRouter struct {
	router.Routes
	*router.Stack

	mux *mux.Router
}

// NewRouter creates a new GorillaRouter.
func NewRouter() *GorillaRouter {
	return newRouter(mux.NewRouter(), &router.Stack{})
}

func newRouter(m *mux.Router, stack *router.Stack) *GorillaRouter {
	r := &GorillaRouter{Stack: stack, mux: m}
	r.Routes = router.Routes{Handle: r.handle}
	return r
}

// Group creates a route group backed by a mux subrouter.
func (r *GorillaRouter) Group(prefix string, middleware ...router.MiddlewareFunc) router.Router {
	return newRouter(r.mux.PathPrefix(prefix).Subrouter(), r.Fork(middleware...))
}

// ServeHTTP implements http.Handler.
func (r *GorillaRouter) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

func (r *GorillaRouter) handle(method, path string, h router.HandlerFunc, routeMiddleware []router.MiddlewareFunc) {
	handler := r.Build(h, routeMiddleware)
	r.mux.HandleFunc(toMuxPath(path), func(w http.ResponseWriter, req *http.Request) {
		ctx := router.NewContext(w, req, muxParam)
		router.WriteError(ctx, handler(ctx))
	}).Methods(method)
}

// muxParam reads mux route variables; mux keeps them in the request context,
// so they survive SetRequest.
func muxParam(req *http.Request, name string) string {
	return mux.Vars(req)[name]
}

// toMuxPath rewrites :name segments into gorilla's {name} form.
func toMuxPath(path string) string {
	parts := strings.Split(path, "/")
	for i, p := range parts {
		if name, ok := strings.CutPrefix(p, ":"); ok {
			parts[i] = "{" + name + "}"
		}
	}
	return strings.Join(parts, "/")
}
