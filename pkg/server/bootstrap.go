package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/nimburion/requestid/pkg/config"
	"github.com/nimburion/requestid/pkg/middleware/requestid"
	"github.com/nimburion/requestid/pkg/observability/logger"
	"github.com/nimburion/requestid/pkg/observability/metrics"
	"github.com/nimburion/requestid/pkg/observability/tracing"
	"github.com/nimburion/requestid/pkg/server/router"
	"github.com/nimburion/requestid/pkg/server/router/factory"
	"github.com/nimburion/requestid/pkg/version"
)

// RunHTTPServersOptions defines inputs for building and running the HTTP servers.
type RunHTTPServersOptions struct {
	Config *config.Config

	// PublicRouter is optional. If nil, a router is created from Config.RouterType.
	PublicRouter router.Router
	// ManagementRouter is optional. If nil and management is enabled, a router is created.
	ManagementRouter router.Router

	Logger          logger.Logger
	MetricsRegistry *metrics.Registry
}

// HTTPServers groups the runtime public and management servers.
type HTTPServers struct {
	Public     *PublicAPIServer
	Management *ManagementServer
}

// BuildHTTPServers constructs the HTTP servers from opts, filling in defaults for
// every nil option.
func BuildHTTPServers(opts *RunHTTPServersOptions) (*HTTPServers, error) {
	if opts.Config == nil {
		opts.Config = config.DefaultConfig()
	}
	if opts.Logger == nil {
		httpLogger, err := logger.NewZapLogger(logger.DefaultConfig())
		if err != nil {
			return nil, err
		}
		opts.Logger = httpLogger
	}
	if opts.MetricsRegistry == nil && opts.Config.Observability.MetricsEnabled {
		opts.MetricsRegistry = metrics.NewRegistry()
	}

	if opts.PublicRouter == nil {
		r, err := factory.NewRouter(opts.Config.RouterType)
		if err != nil {
			return nil, fmt.Errorf("create public router: %w", err)
		}
		opts.PublicRouter = r
	}

	publicServer, err := NewPublicAPIServer(opts.Config, opts.PublicRouter, opts.Logger, opts.MetricsRegistry)
	if err != nil {
		return nil, fmt.Errorf("create public server: %w", err)
	}

	servers := &HTTPServers{Public: publicServer}
	if !opts.Config.Management.Enabled {
		return servers, nil
	}

	if opts.ManagementRouter == nil {
		r, err := factory.NewRouter(opts.Config.RouterType)
		if err != nil {
			return nil, fmt.Errorf("create management router: %w", err)
		}
		opts.ManagementRouter = r
	}

	// Management IDs are not reported to the registry so the counter reflects public traffic.
	managementRID, err := requestid.New(opts.Config.RequestID.Middleware())
	if err != nil {
		return nil, fmt.Errorf("create management request id middleware: %w", err)
	}

	servers.Management = NewManagementServer(
		opts.Config.Management,
		managementRID,
		opts.ManagementRouter,
		opts.Logger,
		opts.MetricsRegistry,
		version.Current(resolveServiceName(opts.Config)),
	)
	return servers, nil
}

// RunHTTPServers initializes tracing, starts every server and blocks until ctx is
// cancelled or a server fails. The first failure stops the remaining servers.
func RunHTTPServers(ctx context.Context, servers *HTTPServers, opts *RunHTTPServersOptions) error {
	if servers == nil || servers.Public == nil {
		return errors.New("servers and public server are required")
	}
	if opts.Logger == nil {
		return errors.New("logger is required")
	}
	if opts.Config == nil {
		return errors.New("config is required")
	}

	versionInfo := version.Current(resolveServiceName(opts.Config))
	opts.Logger.Info("application version metadata",
		"service", versionInfo.Service,
		"version", versionInfo.Version,
		"commit", versionInfo.Commit,
		"build_time", versionInfo.BuildTime,
	)

	tracerProvider, err := initTracerProvider(ctx, opts.Config, versionInfo)
	if err != nil {
		return fmt.Errorf("initialize tracing provider: %w", err)
	}
	defer shutdownTracerProvider(tracerProvider, opts.Logger)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	serverCount := 1
	if servers.Management != nil {
		serverCount = 2
	}

	errCh := make(chan error, serverCount)
	go func() { errCh <- servers.Public.Start(runCtx) }()
	if servers.Management != nil {
		go func() { errCh <- servers.Management.Start(runCtx) }()
	}

	var firstErr error
	for idx := 0; idx < serverCount; idx++ {
		currentErr := <-errCh
		if currentErr != nil && firstErr == nil {
			firstErr = currentErr
			cancel()
		}
	}
	return firstErr
}

// RunHTTPServersWithSignals runs servers until one of signals (default SIGINT, SIGTERM) arrives.
func RunHTTPServersWithSignals(servers *HTTPServers, opts *RunHTTPServersOptions, signals ...os.Signal) error {
	if len(signals) == 0 {
		signals = []os.Signal{os.Interrupt, syscall.SIGTERM}
	}
	ctx, stop := signal.NotifyContext(context.Background(), signals...)
	defer stop()
	return RunHTTPServers(ctx, servers, opts)
}

func initTracerProvider(ctx context.Context, cfg *config.Config, info version.Info) (*tracing.TracerProvider, error) {
	return tracing.NewTracerProvider(ctx, tracing.TracerConfig{
		ServiceName:    info.Service,
		ServiceVersion: info.Version,
		Environment:    normalizeEnvironment(cfg.Service.Environment),
		Endpoint:       cfg.Observability.Tracing.Endpoint,
		Insecure:       cfg.Observability.Tracing.Insecure,
		SampleRate:     cfg.Observability.Tracing.SampleRate,
		Enabled:        cfg.Observability.Tracing.Enabled,
	})
}

func shutdownTracerProvider(provider *tracing.TracerProvider, log logger.Logger) {
	if provider == nil {
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := provider.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to shutdown tracing provider", "error", err)
	}
}

func normalizeEnvironment(env string) string {
	trimmed := strings.TrimSpace(env)
	if trimmed == "" {
		return version.Unknown
	}
	return trimmed
}

func resolveServiceName(cfg *config.Config) string {
	if cfg != nil {
		if trimmed := strings.TrimSpace(cfg.Service.Name); trimmed != "" {
			return trimmed
		}
	}
	return version.Unknown
}
