// Package tracing manages the OpenTelemetry tracer provider and request-scoped spans.
package tracing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
)

// TracerProvider wraps the OpenTelemetry SDK provider with lifecycle management.
type TracerProvider struct {
	provider *sdktrace.TracerProvider
	config   TracerConfig
}

// TracerConfig holds configuration for the tracer provider.
type TracerConfig struct {
	// ServiceName identifies the service in traces
	ServiceName string

	// ServiceVersion is the version of the service
	ServiceVersion string

	// Environment identifies the deployment environment (dev, staging, prod)
	Environment string

	// Endpoint is the OTLP/gRPC collector endpoint (e.g., "localhost:4317")
	Endpoint string

	// Insecure disables TLS towards the collector.
	Insecure bool

	// SampleRate is the fraction of root traces to sample (0.0 to 1.0)
	SampleRate float64

	// Enabled controls whether spans are exported
	Enabled bool
}

// Validate reports every configuration problem at once. Disabled configs are always valid.
func (cfg TracerConfig) Validate() error {
	if !cfg.Enabled {
		return nil
	}

	var errs []error
	if cfg.ServiceName == "" {
		errs = append(errs, errors.New("service name is required"))
	}
	if cfg.Endpoint == "" {
		errs = append(errs, errors.New("OTLP endpoint is required"))
	}
	if cfg.SampleRate < 0 || cfg.SampleRate > 1 {
		errs = append(errs, errors.New("sample rate must be between 0 and 1"))
	}
	return errors.Join(errs...)
}

// NewTracerProvider creates a provider exporting over OTLP/gRPC and installs it,
// together with the W3C trace context and baggage propagators, as the global default.
// When cfg.Enabled is false the provider records nothing and globals are left untouched.
func NewTracerProvider(ctx context.Context, cfg TracerConfig) (*TracerProvider, error) {
	if !cfg.Enabled {
		return &TracerProvider{
			provider: sdktrace.NewTracerProvider(sdktrace.WithSampler(sdktrace.NeverSample())),
			config:   cfg,
		}, nil
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	clientOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		clientOpts = append(clientOpts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptrace.New(ctx, otlptracegrpc.NewClient(clientOpts...))
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	res, err := resource.New(
		ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRate))),
	)

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(
		propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		),
	)

	return &TracerProvider{
		provider: provider,
		config:   cfg,
	}, nil
}

// Tracer returns a tracer for the given instrumentation scope.
func (tp *TracerProvider) Tracer(name string) trace.Tracer {
	return tp.provider.Tracer(name)
}

// Shutdown flushes pending spans and stops the exporter, waiting at most 10 seconds.
func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	if tp.provider == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := tp.provider.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown tracer provider: %w", err)
	}
	return nil
}

// ForceFlush exports any pending spans.
func (tp *TracerProvider) ForceFlush(ctx context.Context) error {
	if tp.provider == nil {
		return nil
	}
	if err := tp.provider.ForceFlush(ctx); err != nil {
		return fmt.Errorf("failed to flush tracer provider: %w", err)
	}
	return nil
}
