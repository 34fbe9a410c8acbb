package requestid

import (
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/nimburion/requestid/pkg/server/router"
	"github.com/nimburion/requestid/pkg/server/router/nethttp"
)

// TestProperty_RequestIDPropagation checks that an inbound ID reaches both the
// context and the response, and that a missing one is replaced by a fresh UUID.
func TestProperty_RequestIDPropagation(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	uuidPattern := regexp.MustCompile(`^[a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12}$`)

	// Printable ASCII including spaces, with no upper length bound.
	genRequestID := gen.SliceOf(gen.IntRange(0x20, 0x7E)).Map(func(codes []int) string {
		b := make([]byte, len(codes))
		for i, code := range codes {
			b[i] = byte(code)
		}
		return strings.TrimSpace(string(b))
	}).SuchThat(func(s string) bool { return s != "" })

	properties.Property("preserves inbound header in response and context", prop.ForAll(
		func(existingID string) bool {
			r := nethttp.NewRouter()
			r.Use(RequestID())

			var captured string
			r.GET("/test", func(c router.Context) error {
				captured = GetRequestID(c.Request().Context())
				return c.String(http.StatusOK, "ok")
			})

			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			req.Header.Set(DefaultHeader, existingID)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if got := w.Header().Get(DefaultHeader); got != existingID {
				t.Logf("response header mismatch: expected %s, got %s", existingID, got)
				return false
			}
			if captured != existingID {
				t.Logf("context mismatch: expected %s, got %s", existingID, captured)
				return false
			}
			return true
		},
		genRequestID,
	))

	properties.Property("generates a UUID when the header is absent", prop.ForAll(
		func(path string) bool {
			r := nethttp.NewRouter()
			r.Use(RequestID())

			var captured string
			r.GET("/"+path, func(c router.Context) error {
				captured = GetRequestID(c.Request().Context())
				return c.String(http.StatusOK, "ok")
			})

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/"+path, nil))

			responseID := w.Header().Get(DefaultHeader)
			if !uuidPattern.MatchString(responseID) {
				t.Logf("generated ID is not a valid UUID: %q", responseID)
				return false
			}
			return captured == responseID
		},
		gen.Identifier(),
	))

	properties.TestingRun(t)
}

// TestProperty_ReplacedValuesNeverEchoed checks that values failing validation
// never appear in the response.
func TestProperty_ReplacedValuesNeverEchoed(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	cfg := DefaultConfig()
	cfg.MaxLength = 8
	m := MustNew(cfg)

	properties.Property("oversized inbound values are replaced", prop.ForAll(
		func(value string) bool {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set(DefaultHeader, value)
			id, source := m.resolve(req)
			return source == SourceReplaced && id.String() != value
		},
		gen.AlphaString().SuchThat(func(s string) bool { return len(s) > 8 }),
	))

	properties.Property("trust never replaces every inbound value", prop.ForAll(
		func(value string) bool {
			never := MustNew(Config{Trust: TrustNever, EchoHeader: true})
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set(DefaultHeader, value)
			id, source := never.resolve(req)
			return source == SourceReplaced && id.String() != value
		},
		gen.Identifier(),
	))

	properties.TestingRun(t)
}
