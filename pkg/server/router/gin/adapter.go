// Package gin provides a gin-gonic based implementation of the router.Router interface.
package gin

import (
	"net/http"

	ginpkg "github.com/gin-gonic/gin"

	"github.com/nimburion/requestid/pkg/server/router"
)

// GinRouter implements router.Router using gin-gonic/gin.
type GinRouter struct {
	router.Routes
	*router.Stack

	engine *ginpkg.Engine
	routes ginpkg.IRoutes
}

// NewRouter creates a new GinRouter with gin in release mode and no default middleware.
func NewRouter() *GinRouter {
	ginpkg.SetMode(ginpkg.ReleaseMode)
	engine := ginpkg.New()
	return newRouter(engine, engine, &router.Stack{})
}

func newRouter(engine *ginpkg.Engine, routes ginpkg.IRoutes, stack *router.Stack) *GinRouter {
	r := &GinRouter{Stack: stack, engine: engine, routes: routes}
	r.Routes = router.Routes{Handle: r.handle}
	return r
}

// Engine exposes the underlying gin engine for gin-specific configuration.
func (r *GinRouter) Engine() *ginpkg.Engine {
	return r.engine
}

// Group creates a route group backed by a gin router group.
func (r *GinRouter) Group(prefix string, middleware ...router.MiddlewareFunc) router.Router {
	parent := &r.engine.RouterGroup
	if group, ok := r.routes.(*ginpkg.RouterGroup); ok {
		parent = group
	}
	return newRouter(r.engine, parent.Group(prefix), r.Fork(middleware...))
}

// ServeHTTP implements http.Handler.
func (r *GinRouter) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.engine.ServeHTTP(w, req)
}

func (r *GinRouter) handle(method, path string, h router.HandlerFunc, routeMiddleware []router.MiddlewareFunc) {
	handler := r.Build(h, routeMiddleware)
	r.routes.Handle(method, path, func(gc *ginpkg.Context) {
		ctx := &ginContext{gc: gc, response: router.NewResponseWriter(gc.Writer)}
		router.WriteError(ctx, handler(ctx))
	})
}

// ginContext adapts gin.Context to router.Context. The extension store is gin's
// own key map, so values set by router middleware are visible to native gin code
// through gc.Get and the other way around.
type ginContext struct {
	gc       *ginpkg.Context
	response router.ResponseWriter
}

func (c *ginContext) Request() *http.Request { return c.gc.Request }
func (c *ginContext) SetRequest(r *http.Request) { c.gc.Request = r }
func (c *ginContext) Response() router.ResponseWriter { return c.response }
func (c *ginContext) SetResponse(w router.ResponseWriter) { c.response = w }
func (c *ginContext) Param(name string) string { return c.gc.Param(name) }
func (c *ginContext) Query(name string) string { return c.gc.Query(name) }

func (c *ginContext) JSON(code int, v interface{}) error {
	return router.WriteJSON(c.response, code, v)
}

func (c *ginContext) String(code int, s string) error {
	return router.WriteText(c.response, code, s)
}

func (c *ginContext) Get(key string) interface{} {
	v, _ := c.gc.Get(key)
	return v
}

func (c *ginContext) Set(key string, value interface{}) {
	c.gc.Set(key, value)
}
