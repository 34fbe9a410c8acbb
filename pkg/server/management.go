package server

import (
	"net/http"
	"time"

	"github.com/nimburion/requestid/pkg/config"
	"github.com/nimburion/requestid/pkg/middleware/logging"
	"github.com/nimburion/requestid/pkg/middleware/recovery"
	"github.com/nimburion/requestid/pkg/middleware/requestid"
	"github.com/nimburion/requestid/pkg/observability/logger"
	"github.com/nimburion/requestid/pkg/observability/metrics"
	"github.com/nimburion/requestid/pkg/server/router"
	"github.com/nimburion/requestid/pkg/version"
)

// ManagementServer wraps Server for operational traffic on a separate port:
//
//	/health   liveness, always 200
//	/metrics  Prometheus exposition
//	/version  build metadata
type ManagementServer struct {
	*Server
	metricsRegistry *metrics.Registry
	versionInfo     version.Info
}

// NewManagementServer creates the management server. Its requests get their own
// request IDs from rid, so the operator's header, trust policy and generator apply
// on the management port too. A nil rid uses requestid.DefaultConfig.
func NewManagementServer(
	cfg config.ManagementConfig,
	rid *requestid.Middleware,
	r router.Router,
	log logger.Logger,
	metricsRegistry *metrics.Registry,
	info version.Info,
) *ManagementServer {
	if rid == nil {
		rid = requestid.MustNew(requestid.DefaultConfig())
	}
	r.Use(
		rid.Handler(),
		logging.WithConfig(log, logging.Config{
			Enabled:      true,
			Output:       logging.OutputLogger,
			PathPolicies: []logging.PathPolicy{{Prefix: "/health", Mode: logging.ModeOff}},
		}),
		recovery.Recovery(log),
	)

	serverCfg := Config{
		Port:         cfg.Port,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	s := &ManagementServer{
		Server:          NewServer(serverCfg, r, log),
		metricsRegistry: metricsRegistry,
		versionInfo:     info,
	}
	s.registerEndpoints(r)
	return s
}

func (s *ManagementServer) registerEndpoints(r router.Router) {
	r.GET("/health", s.handleHealth)
	r.GET("/version", s.handleVersion)
	if s.metricsRegistry != nil {
		r.GET("/metrics", s.handleMetrics)
	}
}

func (s *ManagementServer) handleHealth(c router.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":     "healthy",
		"request_id": requestid.Extract(c).String(),
	})
}

func (s *ManagementServer) handleVersion(c router.Context) error {
	return c.JSON(http.StatusOK, s.versionInfo)
}

func (s *ManagementServer) handleMetrics(c router.Context) error {
	s.metricsRegistry.Handler().ServeHTTP(c.Response(), c.Request())
	return nil
}
