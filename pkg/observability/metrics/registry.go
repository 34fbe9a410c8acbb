// Package metrics provides the Prometheus registry used by the HTTP servers.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry owns the HTTP and request ID collectors together with the Go runtime
// and process collectors. Each Registry is independent.
type Registry struct {
	registry *prometheus.Registry
	http     *httpCollectors
}

// NewRegistry creates a registry with the HTTP, request ID and runtime collectors registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	hc := newHTTPCollectors()

	reg.MustRegister(hc.duration, hc.total, hc.inFlight, hc.requestIDs)
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return &Registry{registry: reg, http: hc}
}

// Register registers a custom Prometheus collector.
func (r *Registry) Register(collector prometheus.Collector) error {
	return r.registry.Register(collector)
}

// MustRegister registers custom collectors and panics on error.
func (r *Registry) MustRegister(collectors ...prometheus.Collector) {
	r.registry.MustRegister(collectors...)
}

// Unregister removes a collector from the registry.
func (r *Registry) Unregister(collector prometheus.Collector) bool {
	return r.registry.Unregister(collector)
}

// Handler exposes the registry in Prometheus text or OpenMetrics format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Gatherer returns the underlying prometheus.Gatherer.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}
