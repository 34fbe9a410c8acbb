package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/nimburion/requestid/pkg/middleware/logging"
	"github.com/nimburion/requestid/pkg/middleware/requestid"
	"github.com/nimburion/requestid/pkg/observability/logger"
)

var (
	validRouterTypes = []string{RouterNetHTTP, RouterGin, RouterGorilla}
	validModes       = []string{"off", "minimal", "full"}
	validOutputs     = []string{"logger", "stdout", "stderr"}
)

// Validate normalizes enumerated values in place and reports every problem found.
func (c *Config) Validate() error {
	var errs []error

	c.RouterType = strings.ToLower(strings.TrimSpace(c.RouterType))
	if !slices.Contains(validRouterTypes, c.RouterType) {
		errs = append(errs, fmt.Errorf("invalid router_type: %s (must be one of: %v)", c.RouterType, validRouterTypes))
	}

	if !validPort(c.HTTP.Port) {
		errs = append(errs, fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port))
	}
	if c.Management.Enabled {
		if !validPort(c.Management.Port) {
			errs = append(errs, fmt.Errorf("management.port must be between 1 and 65535, got %d", c.Management.Port))
		} else if c.Management.Port == c.HTTP.Port {
			errs = append(errs, errors.New("management.port must differ from http.port"))
		}
	}

	if err := requestid.Validate(c.RequestID.Middleware()); err != nil {
		errs = append(errs, fmt.Errorf("request_id: %w", err))
	}

	if _, err := logger.ParseLogLevel(c.Observability.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("observability.log_level: %w", err))
	}
	if _, err := logger.ParseLogFormat(c.Observability.LogFormat); err != nil {
		errs = append(errs, fmt.Errorf("observability.log_format: %w", err))
	}

	errs = append(errs, c.Observability.AccessLog.validate()...)
	errs = append(errs, c.Observability.Tracing.validate()...)

	return errors.Join(errs...)
}

func (a *AccessLogConfig) validate() []error {
	var errs []error

	a.Fields = normalizeStringSlice(a.Fields)
	output := strings.ToLower(strings.TrimSpace(a.Output))
	if output == "" {
		output = "logger"
	}
	if !slices.Contains(validOutputs, output) {
		errs = append(errs, fmt.Errorf("observability.access_log.output must be one of %v", validOutputs))
	}
	for index, field := range a.Fields {
		if !logging.ValidField(field) {
			errs = append(errs, fmt.Errorf("observability.access_log.fields[%d]: unknown field %q", index, field))
		}
	}
	return append(errs, validatePolicies("observability.access_log", a.PathPolicies)...)
}

func (t *TracingConfig) validate() []error {
	var errs []error

	if t.Enabled && strings.TrimSpace(t.Endpoint) == "" {
		errs = append(errs, errors.New("observability.tracing.endpoint is required when tracing is enabled"))
	}
	if t.SampleRate < 0 || t.SampleRate > 1 {
		errs = append(errs, errors.New("observability.tracing.sample_rate must be between 0 and 1"))
	}
	return append(errs, validatePolicies("observability.tracing", t.PathPolicies)...)
}

func validatePolicies(prefix string, policies []PathPolicy) []error {
	var errs []error
	for index, policy := range policies {
		if strings.TrimSpace(policy.PathPrefix) == "" {
			errs = append(errs, fmt.Errorf("%s.path_policies[%d].path_prefix is required", prefix, index))
		}
		if !slices.Contains(validModes, strings.ToLower(strings.TrimSpace(policy.Mode))) {
			errs = append(errs, fmt.Errorf("%s.path_policies[%d].mode must be one of %v", prefix, index, validModes))
		}
	}
	return errs
}

func validPort(port int) bool {
	return port > 0 && port <= 65535
}

func normalizeStringSlice(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
