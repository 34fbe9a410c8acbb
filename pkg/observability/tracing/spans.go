package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/nimburion/requestid/pkg/middleware/requestid"
)

// InstrumentationName is the tracer scope used by StartSpan.
const InstrumentationName = "github.com/nimburion/requestid"

// StartSpan starts an internal span as a child of ctx. When ctx carries a
// request ID it is recorded as the request.id attribute so handler-level spans
// can be joined to access logs.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if id, ok := requestid.FromContext(ctx); ok {
		attrs = append(attrs, attribute.String("request.id", id.String()))
	}
	return otel.Tracer(InstrumentationName).Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
}

// RecordError records err on span and marks the span as failed. A nil err is ignored.
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// RecordSuccess sets the span status to OK.
func RecordSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}
