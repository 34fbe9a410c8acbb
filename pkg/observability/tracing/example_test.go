package tracing_test

import (
	"context"
	"fmt"

	"github.com/nimburion/requestid/pkg/middleware/requestid"
	"github.com/nimburion/requestid/pkg/observability/tracing"
)

// ExampleStartSpan traces a unit of work inside a handler.
func ExampleStartSpan() {
	ctx := requestid.WithRequestID(context.Background(), "req-123")

	_, span := tracing.StartSpan(ctx, "load-profile")
	defer span.End()

	tracing.RecordSuccess(span)
	fmt.Println("span started")
	// Output: span started
}
