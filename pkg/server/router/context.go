package router

import (
	"encoding/json"
	"io"
	"net/http"
	"sync"
)

// ParamFunc resolves a path parameter of r.
type ParamFunc func(r *http.Request, name string) string

// NewContext returns a Context over a plain net/http exchange. Adapters that
// have no extension store of their own use it; params resolves path parameters.
func NewContext(w http.ResponseWriter, r *http.Request, params ParamFunc) Context {
	return &httpContext{request: r, response: NewResponseWriter(w), params: params}
}

type httpContext struct {
	request  *http.Request
	response ResponseWriter
	params   ParamFunc

	mu    sync.RWMutex
	store map[string]interface{}
}

func (c *httpContext) Request() *http.Request { return c.request }
func (c *httpContext) SetRequest(r *http.Request) { c.request = r }
func (c *httpContext) Response() ResponseWriter { return c.response }
func (c *httpContext) SetResponse(w ResponseWriter) { c.response = w }
func (c *httpContext) Query(name string) string { return c.request.URL.Query().Get(name) }
func (c *httpContext) JSON(code int, v interface{}) error { return WriteJSON(c.response, code, v) }
func (c *httpContext) String(code int, s string) error { return WriteText(c.response, code, s) }

// Param reads from the current request so parameters kept in the request
// context survive SetRequest.
func (c *httpContext) Param(name string) string {
	if c.params == nil {
		return ""
	}
	return c.params(c.request, name)
}

func (c *httpContext) Get(key string) interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.store[key]
}

func (c *httpContext) Set(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		c.store = make(map[string]interface{})
	}
	c.store[key] = value
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, code int, v interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(v)
}

// WriteText writes s as a plain text response with the given status.
func WriteText(w http.ResponseWriter, code int, s string) error {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(code)
	_, err := io.WriteString(w, s)
	return err
}
