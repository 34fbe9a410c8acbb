package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Loader defines the interface for loading configuration
type Loader interface {
	Load() (*Config, error)
	Validate(*Config) error
}

// ViperLoader implements Loader using Viper for configuration management.
// Precedence, lowest first: defaults, config file, environment, flags.
type ViperLoader struct {
	configFile         string
	envPrefix          string
	serviceNameDefault string
	flags              *pflag.FlagSet
	v                  *viper.Viper
}

// flagBindings maps command-line flags to configuration keys.
var flagBindings = map[string]string{
	"router":            "router_type",
	"port":              "http.port",
	"management-port":   "management.port",
	"log-level":         "observability.log_level",
	"log-format":        "observability.log_format",
	"request-id-header": "request_id.header",
	"generator":         "request_id.generator",
	"trust":             "request_id.trust",
}

// NewViperLoader creates a new ViperLoader
// configFile: path to configuration file (optional, can be empty)
// envPrefix: prefix for environment variables (defaults to "APP")
func NewViperLoader(configFile, envPrefix string) *ViperLoader {
	return &ViperLoader{
		configFile: configFile,
		envPrefix:  envPrefix,
	}
}

// WithServiceNameDefault sets the default service.name used when no config/env override is provided.
func (l *ViperLoader) WithServiceNameDefault(serviceName string) *ViperLoader {
	if l == nil {
		return l
	}
	l.serviceNameDefault = strings.TrimSpace(serviceName)
	return l
}

// WithFlags binds the flags registered by RegisterFlags. Only flags changed on
// the command line override lower-precedence sources.
func (l *ViperLoader) WithFlags(flags *pflag.FlagSet) *ViperLoader {
	if l == nil {
		return l
	}
	l.flags = flags
	return l
}

// ConfigFile returns the configured config file path, or "" when none.
func (l *ViperLoader) ConfigFile() string {
	return l.configFile
}

// RegisterFlags adds the configuration override flags to flags.
func RegisterFlags(flags *pflag.FlagSet) {
	defaults := DefaultConfig()
	flags.String("router", defaults.RouterType, "router adapter (nethttp, gin, gorilla)")
	flags.Int("port", defaults.HTTP.Port, "public HTTP port")
	flags.Int("management-port", defaults.Management.Port, "management HTTP port")
	flags.String("log-level", defaults.Observability.LogLevel, "log level (debug, info, warn, error)")
	flags.String("log-format", defaults.Observability.LogFormat, "log format (json, text)")
	flags.String("request-id-header", defaults.RequestID.Header, "request ID header name")
	flags.String("generator", defaults.RequestID.Generator, "request ID generator (uuid, uuidv7, alphanumeric)")
	flags.String("trust", defaults.RequestID.Trust, "inbound request ID trust policy (always, never, trusted_networks)")
}

// Load loads and validates the configuration.
func (l *ViperLoader) Load() (*Config, error) {
	v := viper.New()

	l.setDefaults(v, DefaultConfig())

	if l.configFile != "" {
		v.SetConfigFile(l.configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", l.configFile, err)
		}
	}

	v.SetEnvPrefix(l.resolvedPrefix())
	if err := l.bindEnvVars(v); err != nil {
		return nil, fmt.Errorf("failed to bind environment: %w", err)
	}
	if err := l.bindFlags(v); err != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := l.Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	l.v = v
	return &cfg, nil
}

// AllSettings returns the merged settings of the last successful Load.
func (l *ViperLoader) AllSettings() map[string]any {
	if l == nil || l.v == nil {
		return map[string]any{}
	}
	return l.v.AllSettings()
}

// Validate normalizes cfg in place and reports every problem found.
func (l *ViperLoader) Validate(cfg *Config) error {
	return cfg.Validate()
}

// bindEnvVars explicitly binds environment variables for nested structs
func (l *ViperLoader) bindEnvVars(v *viper.Viper) error {
	bindings := map[string]string{
		"router_type":         "ROUTER_TYPE",
		"service.name":        "SERVICE_NAME",
		"service.environment": "SERVICE_ENVIRONMENT",

		"http.port":          "HTTP_PORT",
		"http.read_timeout":  "HTTP_READ_TIMEOUT",
		"http.write_timeout": "HTTP_WRITE_TIMEOUT",
		"http.idle_timeout":  "HTTP_IDLE_TIMEOUT",

		"management.enabled":       "MGMT_ENABLED",
		"management.port":          "MGMT_PORT",
		"management.read_timeout":  "MGMT_READ_TIMEOUT",
		"management.write_timeout": "MGMT_WRITE_TIMEOUT",

		"request_id.header":           "REQUEST_ID_HEADER",
		"request_id.echo_header":      "REQUEST_ID_ECHO_HEADER",
		"request_id.trust":            "REQUEST_ID_TRUST",
		"request_id.trusted_networks": "REQUEST_ID_TRUSTED_NETWORKS",
		"request_id.generator":        "REQUEST_ID_GENERATOR",
		"request_id.max_length":       "REQUEST_ID_MAX_LENGTH",
		"request_id.allowed_pattern":  "REQUEST_ID_ALLOWED_PATTERN",

		"observability.log_level":                         "OBSERVABILITY_LOG_LEVEL",
		"observability.log_format":                        "OBSERVABILITY_LOG_FORMAT",
		"observability.metrics_enabled":                   "OBSERVABILITY_METRICS_ENABLED",
		"observability.access_log.enabled":                "OBSERVABILITY_ACCESS_LOG_ENABLED",
		"observability.access_log.log_start":              "OBSERVABILITY_ACCESS_LOG_LOG_START",
		"observability.access_log.output":                 "OBSERVABILITY_ACCESS_LOG_OUTPUT",
		"observability.access_log.fields":                 "OBSERVABILITY_ACCESS_LOG_FIELDS",
		"observability.access_log.format":                 "OBSERVABILITY_ACCESS_LOG_FORMAT",
		"observability.access_log.excluded_path_prefixes": "OBSERVABILITY_ACCESS_LOG_EXCLUDED_PATH_PREFIXES",
		"observability.tracing.enabled":                   "OBSERVABILITY_TRACING_ENABLED",
		"observability.tracing.endpoint":                  "OBSERVABILITY_TRACING_ENDPOINT",
		"observability.tracing.insecure":                  "OBSERVABILITY_TRACING_INSECURE",
		"observability.tracing.sample_rate":               "OBSERVABILITY_TRACING_SAMPLE_RATE",
		"observability.tracing.excluded_path_prefixes":    "OBSERVABILITY_TRACING_EXCLUDED_PATH_PREFIXES",
	}

	for key, suffix := range bindings {
		if err := v.BindEnv(key, l.prefixedEnv(suffix)); err != nil {
			return err
		}
	}
	return nil
}

func (l *ViperLoader) bindFlags(v *viper.Viper) error {
	if l.flags == nil {
		return nil
	}
	for name, key := range flagBindings {
		flag := l.flags.Lookup(name)
		if flag == nil || !flag.Changed {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return err
		}
	}
	return nil
}

func (l *ViperLoader) resolvedPrefix() string {
	prefix := strings.TrimSpace(l.envPrefix)
	if prefix == "" {
		prefix = "APP"
	}
	return strings.ToUpper(prefix)
}

func (l *ViperLoader) prefixedEnv(suffix string) string {
	return fmt.Sprintf("%s_%s", l.resolvedPrefix(), suffix)
}

func (l *ViperLoader) defaultServiceName(fallback string) string {
	if l != nil {
		if configured := strings.TrimSpace(l.serviceNameDefault); configured != "" {
			return configured
		}
	}
	return strings.TrimSpace(fallback)
}

// setDefaults sets default values in Viper from the default config
func (l *ViperLoader) setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("router_type", cfg.RouterType)
	v.SetDefault("service.name", l.defaultServiceName(cfg.Service.Name))
	v.SetDefault("service.environment", cfg.Service.Environment)

	v.SetDefault("http.port", cfg.HTTP.Port)
	v.SetDefault("http.read_timeout", cfg.HTTP.ReadTimeout)
	v.SetDefault("http.write_timeout", cfg.HTTP.WriteTimeout)
	v.SetDefault("http.idle_timeout", cfg.HTTP.IdleTimeout)

	v.SetDefault("management.enabled", cfg.Management.Enabled)
	v.SetDefault("management.port", cfg.Management.Port)
	v.SetDefault("management.read_timeout", cfg.Management.ReadTimeout)
	v.SetDefault("management.write_timeout", cfg.Management.WriteTimeout)

	v.SetDefault("request_id.header", cfg.RequestID.Header)
	v.SetDefault("request_id.echo_header", cfg.RequestID.EchoHeader)
	v.SetDefault("request_id.trust", cfg.RequestID.Trust)
	v.SetDefault("request_id.trusted_networks", cfg.RequestID.TrustedNetworks)
	v.SetDefault("request_id.generator", cfg.RequestID.Generator)
	v.SetDefault("request_id.max_length", cfg.RequestID.MaxLength)
	v.SetDefault("request_id.allowed_pattern", cfg.RequestID.AllowedPattern)

	v.SetDefault("observability.log_level", cfg.Observability.LogLevel)
	v.SetDefault("observability.log_format", cfg.Observability.LogFormat)
	v.SetDefault("observability.metrics_enabled", cfg.Observability.MetricsEnabled)
	v.SetDefault("observability.access_log.enabled", cfg.Observability.AccessLog.Enabled)
	v.SetDefault("observability.access_log.log_start", cfg.Observability.AccessLog.LogStart)
	v.SetDefault("observability.access_log.output", cfg.Observability.AccessLog.Output)
	v.SetDefault("observability.access_log.fields", cfg.Observability.AccessLog.Fields)
	v.SetDefault("observability.access_log.format", cfg.Observability.AccessLog.Format)
	v.SetDefault("observability.access_log.excluded_path_prefixes", cfg.Observability.AccessLog.ExcludedPathPrefixes)
	v.SetDefault("observability.access_log.path_policies", cfg.Observability.AccessLog.PathPolicies)
	v.SetDefault("observability.tracing.enabled", cfg.Observability.Tracing.Enabled)
	v.SetDefault("observability.tracing.endpoint", cfg.Observability.Tracing.Endpoint)
	v.SetDefault("observability.tracing.insecure", cfg.Observability.Tracing.Insecure)
	v.SetDefault("observability.tracing.sample_rate", cfg.Observability.Tracing.SampleRate)
	v.SetDefault("observability.tracing.excluded_path_prefixes", cfg.Observability.Tracing.ExcludedPathPrefixes)
	v.SetDefault("observability.tracing.path_policies", cfg.Observability.Tracing.PathPolicies)
}
