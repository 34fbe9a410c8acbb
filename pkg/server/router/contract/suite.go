// Package contract holds the conformance suite every router adapter must pass.
package contract

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nimburion/requestid/pkg/middleware"
	"github.com/nimburion/requestid/pkg/server/router"
)

type markerKey struct{}

type fixedID string

func (id fixedID) String() string { return string(id) }

// TestRouterContract runs the shared router conformance suite.
func TestRouterContract(t *testing.T, createRouter func() router.Router) {
	t.Helper()

	t.Run("http_methods", func(t *testing.T) {
		tests := []struct {
			method string
			path   string
			add    func(r router.Router, h router.HandlerFunc)
		}{
			{method: http.MethodGet, path: "/m/get", add: func(r router.Router, h router.HandlerFunc) { r.GET("/m/get", h) }},
			{method: http.MethodPost, path: "/m/post", add: func(r router.Router, h router.HandlerFunc) { r.POST("/m/post", h) }},
			{method: http.MethodPut, path: "/m/put", add: func(r router.Router, h router.HandlerFunc) { r.PUT("/m/put", h) }},
			{method: http.MethodDelete, path: "/m/delete", add: func(r router.Router, h router.HandlerFunc) { r.DELETE("/m/delete", h) }},
			{method: http.MethodPatch, path: "/m/patch", add: func(r router.Router, h router.HandlerFunc) { r.PATCH("/m/patch", h) }},
		}

		for _, tt := range tests {
			t.Run(tt.method, func(t *testing.T) {
				r := createRouter()
				tt.add(r, func(c router.Context) error {
					return c.String(http.StatusOK, tt.method)
				})

				res := performRequest(r, tt.method, tt.path, nil)
				if res.Code != http.StatusOK {
					t.Fatalf("expected 200, got %d", res.Code)
				}
				if res.Body.String() != tt.method {
					t.Fatalf("expected body %q, got %q", tt.method, res.Body.String())
				}
			})
		}

		r := createRouter()
		res := performRequest(r, http.MethodGet, "/not-registered", nil)
		if res.Code != http.StatusNotFound {
			t.Fatalf("expected 404 for unregistered route, got %d", res.Code)
		}
	})

	t.Run("groups", func(t *testing.T) {
		r := createRouter()
		api := r.Group("/api")
		api.GET("/users", func(c router.Context) error { return c.String(http.StatusOK, "ok") })

		if res := performRequest(r, http.MethodGet, "/api/users", nil); res.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", res.Code)
		}

		v1 := api.Group("/v1")
		v1.GET("/posts", func(c router.Context) error { return c.String(http.StatusOK, "nested") })

		if res := performRequest(r, http.MethodGet, "/api/v1/posts", nil); res.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", res.Code)
		}

		secured := r.Group("/secured", func(next router.HandlerFunc) router.HandlerFunc {
			return func(c router.Context) error {
				c.Set("group_mw", "on")
				return next(c)
			}
		})
		secured.GET("/hello", func(c router.Context) error {
			return c.String(http.StatusOK, c.Get("group_mw").(string))
		})

		res := performRequest(r, http.MethodGet, "/secured/hello", nil)
		if res.Body.String() != "on" {
			t.Fatalf("expected middleware value, got %q", res.Body.String())
		}
	})

	t.Run("middleware_order", func(t *testing.T) {
		r := createRouter()
		order := make([]string, 0, 3)

		r.Use(func(next router.HandlerFunc) router.HandlerFunc {
			return func(c router.Context) error {
				order = append(order, "global")
				return next(c)
			}
		})

		r.GET("/m", func(c router.Context) error {
			order = append(order, "handler")
			return c.String(http.StatusOK, "ok")
		}, func(next router.HandlerFunc) router.HandlerFunc {
			return func(c router.Context) error {
				order = append(order, "route")
				return next(c)
			}
		})

		performRequest(r, http.MethodGet, "/m", nil)

		expected := []string{"global", "route", "handler"}
		if strings.Join(order, ",") != strings.Join(expected, ",") {
			t.Fatalf("unexpected middleware order: %v", order)
		}

		r = createRouter()
		handlerCalled := false
		r.GET("/stop", func(c router.Context) error {
			handlerCalled = true
			return c.String(http.StatusOK, "never")
		}, func(next router.HandlerFunc) router.HandlerFunc {
			return func(c router.Context) error {
				return errors.New("stop")
			}
		})

		res := performRequest(r, http.MethodGet, "/stop", nil)
		if handlerCalled {
			t.Fatal("handler should not be called when middleware returns error")
		}
		if res.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", res.Code)
		}
	})

	t.Run("request_context_propagation", func(t *testing.T) {
		r := createRouter()
		r.Use(func(next router.HandlerFunc) router.HandlerFunc {
			return func(c router.Context) error {
				ctx := context.WithValue(c.Request().Context(), markerKey{}, "propagated")
				c.SetRequest(c.Request().WithContext(ctx))
				return next(c)
			}
		})
		r.GET("/items/:id", func(c router.Context) error {
			v, _ := c.Request().Context().Value(markerKey{}).(string)
			return c.String(http.StatusOK, v+":"+c.Param("id"))
		})

		res := performRequest(r, http.MethodGet, "/items/7", nil)
		if res.Body.String() != "propagated:7" {
			t.Fatalf("expected context value and param to survive SetRequest, got %q", res.Body.String())
		}
	})

	t.Run("headers_set_before_next", func(t *testing.T) {
		r := createRouter()
		r.Use(func(next router.HandlerFunc) router.HandlerFunc {
			return func(c router.Context) error {
				c.Response().Header().Set("X-Marker", "before")
				return next(c)
			}
		})
		r.GET("/h", func(c router.Context) error { return c.String(http.StatusAccepted, "ok") })
		r.GET("/h-err", func(c router.Context) error { return errors.New("boom") })

		if res := performRequest(r, http.MethodGet, "/h", nil); res.Header().Get("X-Marker") != "before" {
			t.Fatalf("expected header set by middleware, got %q", res.Header().Get("X-Marker"))
		}
		if res := performRequest(r, http.MethodGet, "/h-err", nil); res.Header().Get("X-Marker") != "before" {
			t.Fatalf("expected header on error response, got %q", res.Header().Get("X-Marker"))
		}
	})

	t.Run("path_and_query_params", func(t *testing.T) {
		r := createRouter()
		r.GET("/users/:userId/posts/:postId", func(c router.Context) error {
			return c.String(http.StatusOK, c.Param("userId")+":"+c.Param("postId")+":"+c.Param("missing"))
		})
		r.GET("/q", func(c router.Context) error { return c.String(http.StatusOK, c.Query("q")) })

		if res := performRequest(r, http.MethodGet, "/users/u1/posts/p9", nil); res.Body.String() != "u1:p9:" {
			t.Fatalf("unexpected params result: %q", res.Body.String())
		}
		if res := performRequest(r, http.MethodGet, "/q?q=first&q=second", nil); res.Body.String() != "first" {
			t.Fatalf("expected first, got %q", res.Body.String())
		}
	})

	t.Run("responses", func(t *testing.T) {
		r := createRouter()
		r.GET("/json", func(c router.Context) error {
			return c.JSON(http.StatusCreated, map[string]string{"x": "y"})
		})
		r.GET("/string", func(c router.Context) error {
			return c.String(http.StatusAccepted, "hello")
		})

		res := performRequest(r, http.MethodGet, "/json", nil)
		if res.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d", res.Code)
		}
		if !strings.Contains(res.Header().Get("Content-Type"), "application/json") {
			t.Fatalf("expected json content-type, got %q", res.Header().Get("Content-Type"))
		}

		res = performRequest(r, http.MethodGet, "/string", nil)
		if res.Code != http.StatusAccepted || res.Body.String() != "hello" {
			t.Fatalf("expected 202 hello, got %d %q", res.Code, res.Body.String())
		}
	})

	t.Run("context_storage", func(t *testing.T) {
		r := createRouter()
		r.Use(func(next router.HandlerFunc) router.HandlerFunc {
			return func(c router.Context) error {
				c.Set("from_mw", "yes")
				return next(c)
			}
		})
		r.GET("/ctx", func(c router.Context) error {
			if c.Get("missing") != nil {
				t.Fatal("expected nil for missing key")
			}
			if c.Get("from_mw") != "yes" {
				t.Fatal("expected value set by middleware")
			}
			return c.String(http.StatusOK, "ok")
		})

		if res := performRequest(r, http.MethodGet, "/ctx", nil); res.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", res.Code)
		}

		// values must not leak between requests
		r = createRouter()
		r.GET("/leak", func(c router.Context) error {
			prev := c.Get("seen")
			c.Set("seen", true)
			if prev != nil {
				return c.String(http.StatusConflict, "leaked")
			}
			return c.String(http.StatusOK, "fresh")
		})
		performRequest(r, http.MethodGet, "/leak", nil)
		if res := performRequest(r, http.MethodGet, "/leak", nil); res.Code != http.StatusOK {
			t.Fatalf("expected fresh store per request, got %d", res.Code)
		}
	})

	t.Run("error_handling", func(t *testing.T) {
		r := createRouter()
		r.GET("/err1", func(c router.Context) error { return errors.New("boom") })
		if res := performRequest(r, http.MethodGet, "/err1", nil); res.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", res.Code)
		}

		r = createRouter()
		r.GET("/err2", func(c router.Context) error {
			if err := c.String(http.StatusBadRequest, "bad"); err != nil {
				return err
			}
			return errors.New("ignored")
		})
		res := performRequest(r, http.MethodGet, "/err2", nil)
		if res.Code != http.StatusBadRequest || res.Body.String() != "bad" {
			t.Fatalf("expected 400 bad, got %d %q", res.Code, res.Body.String())
		}
	})

	t.Run("error_carries_request_id", func(t *testing.T) {
		r := createRouter()
		r.GET("/err", func(c router.Context) error {
			c.Set(middleware.RequestIDStoreKey, fixedID("err-req-1"))
			return errors.New("boom")
		})
		res := performRequest(r, http.MethodGet, "/err", nil)
		if res.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", res.Code)
		}
		var body router.ErrorResponse
		if err := json.Unmarshal(res.Body.Bytes(), &body); err != nil {
			t.Fatalf("expected JSON error body, got %q", res.Body.String())
		}
		if body.RequestID != "err-req-1" || body.Message != "boom" {
			t.Fatalf("unexpected error body %+v", body)
		}
	})

	t.Run("response_writer", func(t *testing.T) {
		r := createRouter()
		r.GET("/rw", func(c router.Context) error {
			rw := c.Response()
			if rw.Written() {
				t.Fatal("Written must be false before writes")
			}
			rw.WriteHeader(http.StatusCreated)
			if rw.Status() != http.StatusCreated {
				t.Fatalf("expected status 201, got %d", rw.Status())
			}
			if !rw.Written() {
				t.Fatal("Written must be true after WriteHeader")
			}
			return nil
		})
		if res := performRequest(r, http.MethodGet, "/rw", nil); res.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d", res.Code)
		}
	})
}

func performRequest(r router.Router, method, path string, body io.Reader) *httptest.ResponseRecorder {
	if body == nil {
		body = http.NoBody
	}
	req := httptest.NewRequest(method, path, body)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}
