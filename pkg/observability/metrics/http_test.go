package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/nimburion/requestid/pkg/middleware/requestid"
)

func TestRecordHTTPMetrics(t *testing.T) {
	registry := NewRegistry()

	registry.RecordHTTPMetrics("GET", "/api/users", 200, 100*time.Millisecond)
	registry.RecordHTTPMetrics("GET", "/api/users", 200, 50*time.Millisecond)
	registry.RecordHTTPMetrics("POST", "/api/users", 500, 10*time.Millisecond)

	if got := testutil.ToFloat64(registry.http.total.WithLabelValues("GET", "/api/users", "200")); got != 2 {
		t.Errorf("expected 2 GET 200 requests, got %v", got)
	}
	if got := testutil.ToFloat64(registry.http.total.WithLabelValues("POST", "/api/users", "500")); got != 1 {
		t.Errorf("expected 1 POST 500 request, got %v", got)
	}
	if got := testutil.CollectAndCount(registry.http.duration); got != 2 {
		t.Errorf("expected 2 histogram series, got %d", got)
	}
}

func TestInFlight(t *testing.T) {
	registry := NewRegistry()

	registry.IncrementInFlight()
	registry.IncrementInFlight()
	registry.DecrementInFlight()

	if got := testutil.ToFloat64(registry.http.inFlight); got != 1 {
		t.Errorf("expected 1 in flight, got %v", got)
	}
}

func TestRequestIDObserver(t *testing.T) {
	registry := NewRegistry()
	observe := registry.RequestIDObserver()

	observe("a", requestid.SourceGenerated)
	observe("b", requestid.SourceGenerated)
	observe("c", requestid.SourceInbound)
	registry.RecordRequestID(requestid.SourceReplaced)

	tests := map[requestid.Source]float64{
		requestid.SourceGenerated: 2,
		requestid.SourceInbound:   1,
		requestid.SourceReplaced:  1,
		requestid.SourceExisting:  0,
	}
	for source, want := range tests {
		if got := testutil.ToFloat64(registry.http.requestIDs.WithLabelValues(string(source))); got != want {
			t.Errorf("source %s: expected %v, got %v", source, want, got)
		}
	}
}
