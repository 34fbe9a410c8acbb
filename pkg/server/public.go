package server

import (
	"fmt"
	"strings"

	"github.com/nimburion/requestid/pkg/config"
	"github.com/nimburion/requestid/pkg/middleware/logging"
	"github.com/nimburion/requestid/pkg/middleware/metrics"
	"github.com/nimburion/requestid/pkg/middleware/recovery"
	"github.com/nimburion/requestid/pkg/middleware/requestid"
	"github.com/nimburion/requestid/pkg/middleware/tracing"
	"github.com/nimburion/requestid/pkg/observability/logger"
	metricsregistry "github.com/nimburion/requestid/pkg/observability/metrics"
	"github.com/nimburion/requestid/pkg/server/router"
)

// PublicAPIServer wraps Server for application traffic.
type PublicAPIServer struct {
	*Server
	requestID *requestid.Middleware
}

// NewPublicAPIServer creates the public server and installs the middleware stack on r:
//
//  1. request ID, so every later middleware and the handler see the same ID
//  2. access logging
//  3. recovery
//  4. tracing, when observability.tracing.enabled is set
//  5. metrics, when observability.metrics_enabled is set
//
// When registry is non-nil the request ID middleware reports every resolved ID to it.
func NewPublicAPIServer(cfg *config.Config, r router.Router, log logger.Logger, registry *metricsregistry.Registry) (*PublicAPIServer, error) {
	ridCfg := cfg.RequestID.Middleware()
	if registry != nil {
		ridCfg.Observer = registry.RequestIDObserver()
	}
	rid, err := requestid.New(ridCfg)
	if err != nil {
		return nil, fmt.Errorf("create request id middleware: %w", err)
	}

	type middlewareEntry struct {
		name string
		fn   router.MiddlewareFunc
	}
	namedMiddlewares := []middlewareEntry{
		{name: "request_id", fn: rid.Handler()},
		{name: "logging", fn: logging.WithConfig(log, accessLogConfig(cfg.Observability.AccessLog, rid))},
		{name: "recovery", fn: recovery.Recovery(log)},
	}
	if cfg.Observability.Tracing.Enabled {
		namedMiddlewares = append(namedMiddlewares, middlewareEntry{
			name: "tracing",
			fn:   tracing.Tracing(tracingConfig(cfg.Observability.Tracing)),
		})
	}
	if cfg.Observability.MetricsEnabled && registry != nil {
		namedMiddlewares = append(namedMiddlewares, middlewareEntry{name: "metrics", fn: metrics.Metrics(registry)})
	}

	middlewareFuncs := make([]router.MiddlewareFunc, 0, len(namedMiddlewares))
	middlewareNames := make([]string, 0, len(namedMiddlewares))
	for _, entry := range namedMiddlewares {
		middlewareFuncs = append(middlewareFuncs, entry.fn)
		middlewareNames = append(middlewareNames, entry.name)
	}
	log.Debug("active middleware stack", "middlewares", strings.Join(middlewareNames, ", "))
	r.Use(middlewareFuncs...)

	serverCfg := Config{
		Port:         cfg.HTTP.Port,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	return &PublicAPIServer{
		Server:    NewServer(serverCfg, r, log),
		requestID: rid,
	}, nil
}

// RequestID returns the compiled request ID middleware installed on the server.
func (s *PublicAPIServer) RequestID() *requestid.Middleware {
	return s.requestID
}

func accessLogConfig(cfg config.AccessLogConfig, rid *requestid.Middleware) logging.Config {
	loggingCfg := logging.Config{
		Enabled:              cfg.Enabled,
		LogStart:             cfg.LogStart,
		Output:               logging.ParseOutput(cfg.Output),
		Fields:               cfg.Fields,
		Format:               cfg.Format,
		ExcludedPathPrefixes: cfg.ExcludedPathPrefixes,
		PathPolicies:         make([]logging.PathPolicy, 0, len(cfg.PathPolicies)),
	}
	if strings.EqualFold(strings.TrimSpace(loggingCfg.Format), "default") {
		loggingCfg.Format = rid.LogFormat()
	}
	for _, policy := range cfg.PathPolicies {
		loggingCfg.PathPolicies = append(loggingCfg.PathPolicies, logging.PathPolicy{
			Prefix: policy.PathPrefix,
			Mode:   logging.ParseMode(policy.Mode),
		})
	}
	return loggingCfg
}

func tracingConfig(cfg config.TracingConfig) tracing.Config {
	tracingCfg := tracing.Config{
		TracerName:           "http-server",
		ExcludedPathPrefixes: cfg.ExcludedPathPrefixes,
		PathPolicies:         make([]tracing.PathPolicy, 0, len(cfg.PathPolicies)),
	}
	for _, policy := range cfg.PathPolicies {
		tracingCfg.PathPolicies = append(tracingCfg.PathPolicies, tracing.PathPolicy{
			Prefix: policy.PathPrefix,
			Mode:   tracing.Mode(strings.ToLower(strings.TrimSpace(policy.Mode))),
		})
	}
	return tracingCfg
}
