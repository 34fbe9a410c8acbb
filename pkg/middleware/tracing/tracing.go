// Package tracing starts an OpenTelemetry server span per request and tags it with the request ID.
package tracing

import (
	"context"
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/nimburion/requestid/pkg/middleware/pathpolicy"
	"github.com/nimburion/requestid/pkg/middleware/requestid"
	"github.com/nimburion/requestid/pkg/server/router"
)

// AttributeRequestID is the span attribute carrying the request ID.
const AttributeRequestID = "request.id"

// Config holds configuration for the tracing middleware.
type Config struct {
	// TracerName identifies the tracer (e.g., "http-server")
	TracerName string

	// SpanNameFormatter formats the span name from the request.
	// If nil, defaults to "HTTP {method} {path}"
	SpanNameFormatter func(router.Context) string

	// ExcludedPathPrefixes disables tracing for matching path prefixes.
	ExcludedPathPrefixes []string

	// PathPolicies applies mode by best-matching path prefix.
	PathPolicies []PathPolicy
}

// Mode defines tracing verbosity for matching request paths.
type Mode = pathpolicy.Mode

const (
	// ModeOff disables tracing
	ModeOff = pathpolicy.Off
	// ModeMinimal records the method, target and request ID only
	ModeMinimal = pathpolicy.Minimal
	// ModeFull adds URL, host and client attributes
	ModeFull = pathpolicy.Full
)

// PathPolicy configures tracing mode for a path prefix.
type PathPolicy = pathpolicy.Policy

// Tracing creates middleware that starts a server span for each request,
// continues any trace found in the incoming headers and records the request ID.
func Tracing(cfg Config) router.MiddlewareFunc {
	if cfg.TracerName == "" {
		cfg.TracerName = "http-server"
	}
	if cfg.SpanNameFormatter == nil {
		cfg.SpanNameFormatter = defaultSpanNameFormatter
	}
	paths := pathpolicy.NewMatcher(cfg.ExcludedPathPrefixes, cfg.PathPolicies)

	tracer := otel.Tracer(cfg.TracerName)
	propagator := otel.GetTextMapPropagator()

	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			req := c.Request()
			mode := paths.ModeFor(req.URL.Path)
			if mode == ModeOff {
				return next(c)
			}

			requestID := requestid.Extract(c).String()
			req = c.Request()

			ctx := propagator.Extract(req.Context(), propagation.HeaderCarrier(req.Header))
			ctx, span := tracer.Start(ctx, cfg.SpanNameFormatter(c), trace.WithSpanKind(trace.SpanKindServer))
			defer span.End()

			span.SetAttributes(
				attribute.String("http.method", req.Method),
				attribute.String("http.target", req.URL.Path),
				attribute.String(AttributeRequestID, requestID),
			)
			if mode == ModeFull {
				span.SetAttributes(
					attribute.String("http.url", req.URL.String()),
					attribute.String("http.scheme", req.URL.Scheme),
					attribute.String("http.host", req.Host),
					attribute.String("http.user_agent", req.UserAgent()),
					attribute.String("http.remote_addr", req.RemoteAddr),
				)
			}

			c.SetRequest(req.WithContext(ctx))

			err := next(c)
			if final := requestid.Extract(c).String(); final != requestID {
				span.SetAttributes(attribute.String(AttributeRequestID, final))
			}

			// An error takes precedence over the HTTP status.
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return err
			}

			status := c.Response().Status()
			span.SetAttributes(attribute.Int("http.status_code", status))
			if status >= 500 {
				span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", status))
			} else {
				span.SetStatus(codes.Ok, "")
			}
			return nil
		}
	}
}

func defaultSpanNameFormatter(c router.Context) string {
	return fmt.Sprintf("HTTP %s %s", c.Request().Method, c.Request().URL.Path)
}

// PropagateTraceContext injects the trace context and, when ctx carries one,
// the request ID under requestIDHeader into outgoing request headers.
// An empty requestIDHeader selects requestid.DefaultHeader.
func PropagateTraceContext(ctx context.Context, headers http.Header, requestIDHeader string) {
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(headers))

	if requestIDHeader == "" {
		requestIDHeader = requestid.DefaultHeader
	}
	if id, ok := requestid.FromContext(ctx); ok {
		headers.Set(requestIDHeader, id.String())
	}
}
