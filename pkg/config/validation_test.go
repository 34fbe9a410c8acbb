package config

import (
	"strings"
	"testing"

	"github.com/nimburion/requestid/pkg/middleware/requestid"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr []string
	}{
		{
			name:   "defaults",
			mutate: func(*Config) {},
		},
		{
			name:   "router type is case insensitive",
			mutate: func(c *Config) { c.RouterType = " Gin " },
		},
		{
			name:    "unknown router",
			mutate:  func(c *Config) { c.RouterType = "chi" },
			wantErr: []string{"invalid router_type"},
		},
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.HTTP.Port = 70000 },
			wantErr: []string{"http.port"},
		},
		{
			name:    "management port collides",
			mutate:  func(c *Config) { c.Management.Port = c.HTTP.Port },
			wantErr: []string{"management.port must differ"},
		},
		{
			name: "management port ignored when disabled",
			mutate: func(c *Config) {
				c.Management.Enabled = false
				c.Management.Port = 0
			},
		},
		{
			name:    "invalid header name",
			mutate:  func(c *Config) { c.RequestID.Header = "bad header" },
			wantErr: []string{"request_id", "invalid header name"},
		},
		{
			name: "trusted networks without networks",
			mutate: func(c *Config) {
				c.RequestID.Trust = string(requestid.TrustNetworks)
			},
			wantErr: []string{"at least one trusted network"},
		},
		{
			name:    "unknown generator",
			mutate:  func(c *Config) { c.RequestID.Generator = "snowflake" },
			wantErr: []string{"unknown generator"},
		},
		{
			name:    "bad pattern",
			mutate:  func(c *Config) { c.RequestID.AllowedPattern = "([" },
			wantErr: []string{"invalid allowed pattern"},
		},
		{
			name:    "log level",
			mutate:  func(c *Config) { c.Observability.LogLevel = "verbose" },
			wantErr: []string{"observability.log_level"},
		},
		{
			name:    "access log output",
			mutate:  func(c *Config) { c.Observability.AccessLog.Output = "syslog" },
			wantErr: []string{"observability.access_log.output"},
		},
		{
			name:    "access log field",
			mutate:  func(c *Config) { c.Observability.AccessLog.Fields = []string{"request_id", "bogus"} },
			wantErr: []string{`fields[1]: unknown field "bogus"`},
		},
		{
			name: "access log field alias",
			mutate: func(c *Config) {
				c.Observability.AccessLog.Fields = []string{"user_agent", " ", "request_id"}
			},
		},
		{
			name: "policy mode",
			mutate: func(c *Config) {
				c.Observability.Tracing.PathPolicies = []PathPolicy{{PathPrefix: "", Mode: "verbose"}}
			},
			wantErr: []string{"tracing.path_policies[0].path_prefix", "tracing.path_policies[0].mode"},
		},
		{
			name: "tracing endpoint required",
			mutate: func(c *Config) {
				c.Observability.Tracing.Enabled = true
				c.Observability.Tracing.Endpoint = ""
			},
			wantErr: []string{"observability.tracing.endpoint"},
		},
		{
			name:    "sample rate",
			mutate:  func(c *Config) { c.Observability.Tracing.SampleRate = 2 },
			wantErr: []string{"sample_rate"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if len(tt.wantErr) == 0 {
				if err != nil {
					t.Fatalf("expected no error, got: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			for _, want := range tt.wantErr {
				if !strings.Contains(err.Error(), want) {
					t.Errorf("expected %q in %q", want, err.Error())
				}
			}
		})
	}
}

func TestConfig_ValidateReportsAllProblems(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RouterType = "chi"
	cfg.RequestID.Generator = "snowflake"
	cfg.Observability.LogFormat = "xml"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"router_type", "unknown generator", "log_format"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %q in %q", want, err.Error())
		}
	}
}

func TestRequestIDConfig_Middleware(t *testing.T) {
	cfg := RequestIDConfig{
		Header:          "X-Trace-Token",
		EchoHeader:      true,
		Trust:           "trusted_networks",
		TrustedNetworks: []string{"10.0.0.0/8"},
		Generator:       "alphanumeric",
		MaxLength:       64,
		AllowedPattern:  `^[a-z0-9-]+$`,
	}

	mw := cfg.Middleware()
	if mw.Header != cfg.Header || !mw.EchoHeader || mw.Trust != requestid.TrustNetworks {
		t.Errorf("unexpected conversion %+v", mw)
	}
	if mw.Generator != cfg.Generator || mw.MaxLength != 64 || mw.AllowedPattern != cfg.AllowedPattern {
		t.Errorf("unexpected conversion %+v", mw)
	}

	mw.TrustedNetworks[0] = "0.0.0.0/0"
	if cfg.TrustedNetworks[0] != "10.0.0.0/8" {
		t.Error("expected trusted networks to be copied")
	}

	if _, err := requestid.New(mw); err != nil {
		t.Errorf("expected converted config to build a middleware, got: %v", err)
	}
}
