package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/spf13/pflag"

	"github.com/nimburion/requestid/pkg/middleware/requestid"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.RouterType != RouterNetHTTP {
		t.Errorf("expected router type nethttp, got %s", cfg.RouterType)
	}
	if cfg.HTTP.Port != 8080 {
		t.Errorf("expected HTTP port 8080, got %d", cfg.HTTP.Port)
	}
	if cfg.Management.Port != 9090 {
		t.Errorf("expected Management port 9090, got %d", cfg.Management.Port)
	}
	if cfg.RequestID.Header != "X-Request-ID" {
		t.Errorf("expected header X-Request-ID, got %s", cfg.RequestID.Header)
	}
	if !cfg.RequestID.EchoHeader {
		t.Error("expected echo header enabled by default")
	}
	if cfg.RequestID.Trust != "always" {
		t.Errorf("expected trust always, got %s", cfg.RequestID.Trust)
	}
	if cfg.RequestID.MaxLength != 0 || cfg.RequestID.AllowedPattern != "" {
		t.Errorf("expected inbound content checks off by default, got %d %q", cfg.RequestID.MaxLength, cfg.RequestID.AllowedPattern)
	}
	if cfg.Observability.Tracing.Enabled {
		t.Error("expected tracing disabled by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected defaults to validate, got: %v", err)
	}
}

func TestViperLoader_LoadDefaults(t *testing.T) {
	cfg, err := NewViperLoader("", "APP").Load()
	if err != nil {
		t.Fatalf("expected no error loading defaults, got: %v", err)
	}

	want := DefaultConfig()
	if cfg.HTTP.ReadTimeout != want.HTTP.ReadTimeout {
		t.Errorf("expected read timeout %v, got %v", want.HTTP.ReadTimeout, cfg.HTTP.ReadTimeout)
	}
	if cfg.RequestID.Generator != requestid.GeneratorUUID {
		t.Errorf("expected uuid generator, got %s", cfg.RequestID.Generator)
	}
	if cfg.RequestID.AllowedPattern != "" {
		t.Errorf("unexpected allowed pattern %q", cfg.RequestID.AllowedPattern)
	}
}

func TestViperLoader_ServiceNameDefault(t *testing.T) {
	cfg, err := NewViperLoader("", "APP").WithServiceNameDefault("orders").Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Service.Name != "orders" {
		t.Errorf("expected service name orders, got %s", cfg.Service.Name)
	}
}

func TestViperLoader_LoadFromFile(t *testing.T) {
	path := writeConfigFile(t, `
router_type: gin
http:
  port: 8181
  read_timeout: 5s
request_id:
  header: X-Correlation-ID
  echo_header: false
  trust: trusted_networks
  trusted_networks:
    - 10.0.0.0/8
    - 192.168.1.10
  generator: uuidv7
observability:
  access_log:
    format: '${request_method} ${uri} ${request_id}'
    path_policies:
      - path_prefix: /health
        mode: "off"
`)

	cfg, err := NewViperLoader(path, "APP").Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.RouterType != RouterGin {
		t.Errorf("expected gin, got %s", cfg.RouterType)
	}
	if cfg.HTTP.Port != 8181 || cfg.HTTP.ReadTimeout != 5*time.Second {
		t.Errorf("unexpected http config %+v", cfg.HTTP)
	}
	if cfg.RequestID.Header != "X-Correlation-ID" || cfg.RequestID.EchoHeader {
		t.Errorf("unexpected request id config %+v", cfg.RequestID)
	}
	if len(cfg.RequestID.TrustedNetworks) != 2 {
		t.Errorf("expected 2 trusted networks, got %v", cfg.RequestID.TrustedNetworks)
	}
	if cfg.RequestID.Generator != requestid.GeneratorUUIDv7 {
		t.Errorf("expected uuidv7, got %s", cfg.RequestID.Generator)
	}
	if !strings.Contains(cfg.Observability.AccessLog.Format, "${request_id}") {
		t.Errorf("expected access log format, got %q", cfg.Observability.AccessLog.Format)
	}
	if len(cfg.Observability.AccessLog.PathPolicies) != 1 || cfg.Observability.AccessLog.PathPolicies[0].Mode != "off" {
		t.Errorf("unexpected path policies %+v", cfg.Observability.AccessLog.PathPolicies)
	}
}

func TestViperLoader_MissingFile(t *testing.T) {
	_, err := NewViperLoader(filepath.Join(t.TempDir(), "missing.yaml"), "APP").Load()
	if err == nil || !strings.Contains(err.Error(), "failed to read config file") {
		t.Fatalf("expected read error, got %v", err)
	}
}

func TestViperLoader_EnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, `
request_id:
  header: X-From-File
  generator: alphanumeric
`)
	t.Setenv("SVC_REQUEST_ID_HEADER", "X-From-Env")
	t.Setenv("SVC_REQUEST_ID_TRUSTED_NETWORKS", "10.0.0.0/8,172.16.0.0/12")
	t.Setenv("SVC_HTTP_WRITE_TIMEOUT", "45s")

	cfg, err := NewViperLoader(path, "svc").Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.RequestID.Header != "X-From-Env" {
		t.Errorf("expected env to override file, got %s", cfg.RequestID.Header)
	}
	if cfg.RequestID.Generator != requestid.GeneratorAlphanumeric {
		t.Errorf("expected file value to survive, got %s", cfg.RequestID.Generator)
	}
	if len(cfg.RequestID.TrustedNetworks) != 2 {
		t.Errorf("expected comma separated env list, got %v", cfg.RequestID.TrustedNetworks)
	}
	if cfg.HTTP.WriteTimeout != 45*time.Second {
		t.Errorf("expected 45s, got %v", cfg.HTTP.WriteTimeout)
	}
}

func TestViperLoader_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("APP_REQUEST_ID_GENERATOR", "alphanumeric")
	t.Setenv("APP_HTTP_PORT", "8282")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(flags)
	if err := flags.Parse([]string{"--generator=uuidv7", "--router=gorilla"}); err != nil {
		t.Fatalf("failed to parse flags: %v", err)
	}

	cfg, err := NewViperLoader("", "APP").WithFlags(flags).Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.RequestID.Generator != requestid.GeneratorUUIDv7 {
		t.Errorf("expected flag to override env, got %s", cfg.RequestID.Generator)
	}
	if cfg.RouterType != RouterGorilla {
		t.Errorf("expected gorilla, got %s", cfg.RouterType)
	}
	if cfg.HTTP.Port != 8282 {
		t.Errorf("unchanged flag must not mask env, got port %d", cfg.HTTP.Port)
	}
}

func TestViperLoader_InvalidConfig(t *testing.T) {
	t.Setenv("APP_REQUEST_ID_TRUST", "sometimes")
	t.Setenv("APP_ROUTER_TYPE", "echo")

	_, err := NewViperLoader("", "APP").Load()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"config validation failed", "router_type", "trust policy"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %q in %q", want, err.Error())
		}
	}
}

func TestViperLoader_AllSettings(t *testing.T) {
	loader := NewViperLoader("", "APP")
	if len(loader.AllSettings()) != 0 {
		t.Error("expected no settings before Load")
	}
	if _, err := loader.Load(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	settings := loader.AllSettings()
	section, ok := settings["request_id"].(map[string]any)
	if !ok {
		t.Fatalf("expected request_id section, got %v", settings)
	}
	if section["header"] != "X-Request-ID" {
		t.Errorf("expected default header in settings, got %v", section["header"])
	}
}

// Any valid header supplied through the environment reaches the middleware config unchanged.
func TestProperty_EnvHeaderPropagates(t *testing.T) {
	properties := gopter.NewProperties(nil)

	genHeader := gen.Identifier().Map(func(s string) string { return "X-" + s })

	properties.Property("env header survives loading", prop.ForAll(
		func(header string) bool {
			t.Setenv("PROP_REQUEST_ID_HEADER", header)
			cfg, err := NewViperLoader("", "PROP").Load()
			if err != nil {
				return false
			}
			return cfg.RequestID.Middleware().Header == header
		},
		genHeader,
	))

	properties.TestingRun(t)
}
