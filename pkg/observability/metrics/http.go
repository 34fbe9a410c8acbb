package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nimburion/requestid/pkg/middleware/requestid"
)

type httpCollectors struct {
	duration   *prometheus.HistogramVec
	total      *prometheus.CounterVec
	inFlight   prometheus.Gauge
	requestIDs *prometheus.CounterVec
}

func newHTTPCollectors() *httpCollectors {
	return &httpCollectors{
		// Labels: method, path, status
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		total: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		inFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Current number of HTTP requests being processed",
			},
		),
		requestIDs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "request_ids_assigned_total",
				Help: "Request IDs assigned, by how the ID was obtained",
			},
			[]string{"source"},
		),
	}
}

// RecordHTTPMetrics updates the duration histogram and request counter.
func (r *Registry) RecordHTTPMetrics(method, path string, status int, duration time.Duration) {
	statusStr := strconv.Itoa(status)
	r.http.duration.WithLabelValues(method, path, statusStr).Observe(duration.Seconds())
	r.http.total.WithLabelValues(method, path, statusStr).Inc()
}

// IncrementInFlight increments the in-flight requests gauge.
func (r *Registry) IncrementInFlight() {
	r.http.inFlight.Inc()
}

// DecrementInFlight decrements the in-flight requests gauge.
func (r *Registry) DecrementInFlight() {
	r.http.inFlight.Dec()
}

// RecordRequestID counts one request ID assignment.
func (r *Registry) RecordRequestID(source requestid.Source) {
	r.http.requestIDs.WithLabelValues(string(source)).Inc()
}

// RequestIDObserver returns a requestid.Observer feeding request_ids_assigned_total.
func (r *Registry) RequestIDObserver() requestid.Observer {
	return func(_ requestid.ID, source requestid.Source) {
		r.RecordRequestID(source)
	}
}
