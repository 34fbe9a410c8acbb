package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nimburion/requestid/pkg/middleware/logging"
	"github.com/nimburion/requestid/pkg/middleware/recovery"
	"github.com/nimburion/requestid/pkg/middleware/requestid"
	"github.com/nimburion/requestid/pkg/middleware/testutil"
	"github.com/nimburion/requestid/pkg/server/router"
	"github.com/nimburion/requestid/pkg/server/router/nethttp"
)

func recordingMiddleware(name string, order *[]string) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			_, hasID := requestid.FromContext(c.Request().Context())
			if hasID {
				*order = append(*order, name+"-with-id")
			} else {
				*order = append(*order, name+"-without-id")
			}
			err := next(c)
			*order = append(*order, name+"-after")
			return err
		}
	}
}

func assertOrder(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("execution order mismatch at step %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

// TestMiddlewareOrdering_ExecutionOrder verifies that only middleware installed
// after RequestID observes the request ID.
func TestMiddlewareOrdering_ExecutionOrder(t *testing.T) {
	// Given: outer -> RequestID -> inner
	r := nethttp.NewRouter()
	var order []string
	r.Use(recordingMiddleware("outer", &order), requestid.RequestID(), recordingMiddleware("inner", &order))

	r.GET("/test", func(c router.Context) error {
		order = append(order, "handler")
		return c.String(http.StatusOK, "ok")
	})

	// When: A request is made
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/test", nil))

	// Then: Requests travel first to last, responses last to first
	assertOrder(t, order, []string{
		"outer-without-id",
		"inner-with-id",
		"handler",
		"inner-after",
		"outer-after",
	})
}

// TestMiddlewareOrdering_RouteSpecific verifies that a request ID installed
// globally is visible to route-specific middleware.
func TestMiddlewareOrdering_RouteSpecific(t *testing.T) {
	r := nethttp.NewRouter()
	var order []string
	r.Use(requestid.RequestID())
	r.GET("/test", func(c router.Context) error {
		order = append(order, "handler")
		return c.String(http.StatusOK, "ok")
	}, recordingMiddleware("route", &order))

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/test", nil))

	assertOrder(t, order, []string{"route-with-id", "handler", "route-after"})
}

// TestMiddlewareOrdering_ShortCircuit verifies that a response written by a
// middleware that never calls next still carries the request ID.
func TestMiddlewareOrdering_ShortCircuit(t *testing.T) {
	// Given: RequestID -> a middleware that rejects every request
	r := nethttp.NewRouter()
	var order []string
	reject := func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			order = append(order, "reject")
			return c.String(http.StatusUnauthorized, "unauthorized")
		}
	}
	r.Use(requestid.RequestID(), reject)
	r.GET("/test", func(c router.Context) error {
		order = append(order, "handler")
		return c.String(http.StatusOK, "ok")
	})

	// When: A request is made
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(requestid.DefaultHeader, "short-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	// Then: The handler never runs but the header is echoed
	assertOrder(t, order, []string{"reject"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", w.Code)
	}
	if got := w.Header().Get(requestid.DefaultHeader); got != "short-1" {
		t.Errorf("expected echoed header short-1, got %q", got)
	}
}

// TestMiddlewareOrdering_MultipleRoutes verifies that each request gets its own ID.
func TestMiddlewareOrdering_MultipleRoutes(t *testing.T) {
	r := nethttp.NewRouter()
	r.Use(requestid.RequestID())

	seen := map[string]string{}
	for _, path := range []string{"/a", "/b"} {
		path := path
		r.GET(path, func(c router.Context) error {
			seen[path] = requestid.Extract(c).String()
			return c.String(http.StatusOK, "ok")
		})
	}

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/a", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/b", nil))

	if seen["/a"] == "" || seen["/b"] == "" {
		t.Fatalf("expected IDs on both routes, got %v", seen)
	}
	if seen["/a"] == seen["/b"] {
		t.Errorf("expected distinct IDs per request, both were %s", seen["/a"])
	}
}

// TestMiddlewareOrdering_RealWorldStack verifies the stack used by the public server.
func TestMiddlewareOrdering_RealWorldStack(t *testing.T) {
	log := &testutil.MockLogger{}
	r := nethttp.NewRouter()
	var order []string

	// RequestID -> Logging -> Recovery -> Custom
	r.Use(requestid.RequestID(), logging.Logging(log), recovery.Recovery(log), recordingMiddleware("custom", &order))
	r.GET("/test", func(c router.Context) error {
		order = append(order, "handler")
		return c.String(http.StatusOK, "ok")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	assertOrder(t, order, []string{"custom-with-id", "handler", "custom-after"})
	if w.Header().Get(requestid.DefaultHeader) == "" {
		t.Error("expected X-Request-ID header in response")
	}
	if entries := log.Entries(); len(entries) < 1 {
		t.Errorf("expected the request to be logged, got %d entries", len(entries))
	}
}

// TestMiddlewareOrdering_LoggingBeforeRequestID verifies that mounting logging
// ahead of the request ID middleware does not cost the caller its inbound ID.
func TestMiddlewareOrdering_LoggingBeforeRequestID(t *testing.T) {
	log := &testutil.MockLogger{}
	r := nethttp.NewRouter()
	r.Use(logging.Logging(log), requestid.RequestID())

	var handlerID string
	r.GET("/test", func(c router.Context) error {
		handlerID = requestid.Extract(c).String()
		return c.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(requestid.DefaultHeader, "caller-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if handlerID != "caller-123" {
		t.Errorf("expected handler to see caller-123, got %q", handlerID)
	}
	if got := w.Header().Get(requestid.DefaultHeader); got != "caller-123" {
		t.Errorf("expected echoed caller-123, got %q", got)
	}
	if got := completedEntry(t, log).Fields["request_id"]; got != "caller-123" {
		t.Errorf("expected access log request_id caller-123, got %v", got)
	}
}
