// Package metrics records Prometheus HTTP metrics for each request.
package metrics

import (
	"time"

	"github.com/nimburion/requestid/pkg/observability/metrics"
	"github.com/nimburion/requestid/pkg/server/router"
)

// RouteLabel is the router store key a handler or middleware may set to replace
// the raw path in metric labels, keeping label cardinality bounded.
const RouteLabel = "metrics.route"

// Metrics creates middleware that records request duration, request count and
// the in-flight gauge on registry.
func Metrics(registry *metrics.Registry) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			registry.IncrementInFlight()
			defer registry.DecrementInFlight()

			start := time.Now()
			err := next(c)

			path := c.Request().URL.Path
			if route, ok := c.Get(RouteLabel).(string); ok && route != "" {
				path = route
			}
			registry.RecordHTTPMetrics(c.Request().Method, path, c.Response().Status(), time.Since(start))

			return err
		}
	}
}
