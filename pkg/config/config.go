// Package config loads service configuration from defaults, a config file,
// environment variables and command-line flags.
package config

import (
	"time"

	"github.com/nimburion/requestid/pkg/middleware/requestid"
)

// Router type constants
const (
	RouterNetHTTP = "nethttp"
	RouterGin     = "gin"
	RouterGorilla = "gorilla"
)

// Config is the root configuration structure for the service.
type Config struct {
	RouterType    string              `mapstructure:"router_type" yaml:"router_type"`
	Service       ServiceConfig       `mapstructure:"service" yaml:"service"`
	HTTP          HTTPConfig          `mapstructure:"http" yaml:"http"`
	Management    ManagementConfig    `mapstructure:"management" yaml:"management"`
	RequestID     RequestIDConfig     `mapstructure:"request_id" yaml:"request_id"`
	Observability ObservabilityConfig `mapstructure:"observability" yaml:"observability"`
}

// ServiceConfig configures service identity metadata.
type ServiceConfig struct {
	Name        string `mapstructure:"name" yaml:"name"`
	Environment string `mapstructure:"environment" yaml:"environment"`
}

// HTTPConfig configures the public API server
type HTTPConfig struct {
	Port         int           `mapstructure:"port" yaml:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
}

// ManagementConfig configures the management server
type ManagementConfig struct {
	Enabled      bool          `mapstructure:"enabled" yaml:"enabled"`
	Port         int           `mapstructure:"port" yaml:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
}

// RequestIDConfig configures the request ID middleware.
type RequestIDConfig struct {
	Header          string   `mapstructure:"header" yaml:"header"`
	EchoHeader      bool     `mapstructure:"echo_header" yaml:"echo_header"`
	Trust           string   `mapstructure:"trust" yaml:"trust"` // always, never, trusted_networks
	TrustedNetworks []string `mapstructure:"trusted_networks" yaml:"trusted_networks"`
	Generator       string   `mapstructure:"generator" yaml:"generator"` // uuid, uuidv7, alphanumeric
	MaxLength       int      `mapstructure:"max_length" yaml:"max_length"`           // 0 = unbounded
	AllowedPattern  string   `mapstructure:"allowed_pattern" yaml:"allowed_pattern"` // empty = any header value
}

// Middleware converts the loaded settings into a middleware configuration.
func (c RequestIDConfig) Middleware() requestid.Config {
	return requestid.Config{
		Header:          c.Header,
		EchoHeader:      c.EchoHeader,
		Trust:           requestid.TrustPolicy(c.Trust),
		TrustedNetworks: append([]string(nil), c.TrustedNetworks...),
		Generator:       c.Generator,
		MaxLength:       c.MaxLength,
		AllowedPattern:  c.AllowedPattern,
	}
}

// ObservabilityConfig configures logging, metrics, and tracing
type ObservabilityConfig struct {
	LogLevel       string          `mapstructure:"log_level" yaml:"log_level"`
	LogFormat      string          `mapstructure:"log_format" yaml:"log_format"` // json, text
	MetricsEnabled bool            `mapstructure:"metrics_enabled" yaml:"metrics_enabled"`
	AccessLog      AccessLogConfig `mapstructure:"access_log" yaml:"access_log"`
	Tracing        TracingConfig   `mapstructure:"tracing" yaml:"tracing"`
}

// AccessLogConfig configures HTTP request logging middleware behavior.
type AccessLogConfig struct {
	Enabled              bool         `mapstructure:"enabled" yaml:"enabled"`
	LogStart             bool         `mapstructure:"log_start" yaml:"log_start"`
	Output               string       `mapstructure:"output" yaml:"output"` // logger, stdout, stderr
	Fields               []string     `mapstructure:"fields" yaml:"fields"`
	Format               string       `mapstructure:"format" yaml:"format"`
	ExcludedPathPrefixes []string     `mapstructure:"excluded_path_prefixes" yaml:"excluded_path_prefixes"`
	PathPolicies         []PathPolicy `mapstructure:"path_policies" yaml:"path_policies"`
}

// TracingConfig configures the tracer provider and the HTTP tracing middleware.
type TracingConfig struct {
	Enabled              bool         `mapstructure:"enabled" yaml:"enabled"`
	Endpoint             string       `mapstructure:"endpoint" yaml:"endpoint"`
	Insecure             bool         `mapstructure:"insecure" yaml:"insecure"`
	SampleRate           float64      `mapstructure:"sample_rate" yaml:"sample_rate"`
	ExcludedPathPrefixes []string     `mapstructure:"excluded_path_prefixes" yaml:"excluded_path_prefixes"`
	PathPolicies         []PathPolicy `mapstructure:"path_policies" yaml:"path_policies"`
}

// PathPolicy configures a logging or tracing mode for a path prefix.
type PathPolicy struct {
	PathPrefix string `mapstructure:"path_prefix" yaml:"path_prefix"`
	Mode       string `mapstructure:"mode" yaml:"mode"` // off, minimal, full
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		RouterType: RouterNetHTTP,
		Service: ServiceConfig{
			Name:        "requestid-demo",
			Environment: "development",
		},
		HTTP: HTTPConfig{
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		Management: ManagementConfig{
			Enabled:      true,
			Port:         9090,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		RequestID: RequestIDConfig{
			Header:          requestid.DefaultHeader,
			EchoHeader:      true,
			Trust:           string(requestid.TrustAlways),
			TrustedNetworks: []string{},
			Generator:       requestid.GeneratorUUID,
		},
		Observability: ObservabilityConfig{
			LogLevel:       "info",
			LogFormat:      "json",
			MetricsEnabled: true,
			AccessLog: AccessLogConfig{
				Enabled:              true,
				LogStart:             false,
				Output:               "logger",
				Fields:               []string{},
				ExcludedPathPrefixes: []string{},
				PathPolicies:         []PathPolicy{},
			},
			Tracing: TracingConfig{
				Enabled:              false,
				Endpoint:             "localhost:4317",
				SampleRate:           1.0,
				ExcludedPathPrefixes: []string{},
				PathPolicies:         []PathPolicy{},
			},
		},
	}
}
