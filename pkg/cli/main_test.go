package cli

import (
	"bytes"
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/nimburion/requestid/pkg/config"
	"github.com/nimburion/requestid/pkg/observability/logger"
)

func runCommand(t *testing.T, opts ServiceCommandOptions, args ...string) (string, error) {
	t.Helper()

	cmd := NewServiceCommand(opts)
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestResolveServiceNameValue(t *testing.T) {
	tests := []struct {
		name              string
		currentConfigName string
		defaultService    string
		override          string
		want              string
	}{
		{
			name:              "override wins",
			currentConfigName: "from-config",
			defaultService:    "from-cli",
			override:          "from-flag",
			want:              "from-flag",
		},
		{
			name:              "configured value wins over default",
			currentConfigName: "from-config",
			defaultService:    "from-cli",
			want:              "from-config",
		},
		{
			name:           "default used when config missing",
			defaultService: "from-cli",
			want:           "from-cli",
		},
		{
			name: "app fallback",
			want: "app",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resolveServiceNameValue(tt.currentConfigName, tt.defaultService, tt.override)
			if got != tt.want {
				t.Fatalf("resolveServiceNameValue() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewServiceCommand_Policies(t *testing.T) {
	cmd := NewServiceCommand(ServiceCommandOptions{Name: "testsvc"})

	tests := map[string]CommandPolicy{
		"serve":      PolicyRun,
		"version":    PolicyAlways,
		"config":     PolicyAlways,
		"genid":      PolicyOnDemand,
		"completion": PolicyAlways,
	}
	for name, want := range tests {
		sub, _, err := cmd.Find([]string{name})
		if err != nil || sub.Name() != name {
			t.Fatalf("expected %s command, got %v (%v)", name, sub, err)
		}
		if got := GetCommandPolicies(sub)[defaultPolicyContext]; got != string(want) {
			t.Errorf("%s: expected policy %q, got %q", name, want, got)
		}
	}
}

func TestNewServiceCommand_CustomCommandGetsDefaultPolicy(t *testing.T) {
	custom := &cobra.Command{Use: "ping", Run: func(*cobra.Command, []string) {}}
	cmd := NewServiceCommand(ServiceCommandOptions{Name: "testsvc", CustomCommands: []*cobra.Command{custom}})

	found, _, err := cmd.Find([]string{"ping"})
	if err != nil || found != custom {
		t.Fatalf("expected custom command, got %v (%v)", found, err)
	}
	if got := GetCommandPolicies(custom)[defaultPolicyContext]; got != string(PolicyAlways) {
		t.Errorf("expected default policy, got %q", got)
	}
}

func TestServeIsDefault(t *testing.T) {
	var got *config.Config
	opts := ServiceCommandOptions{
		Name: "testsvc",
		RunServer: func(ctx context.Context, cfg *config.Config, log logger.Logger) error {
			got = cfg
			return nil
		},
	}

	if _, err := runCommand(t, opts, "--generator", "alphanumeric", "--service-name", "orders"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil {
		t.Fatal("expected RunServer to be called")
	}
	if got.RequestID.Generator != "alphanumeric" {
		t.Errorf("expected flag override, got %s", got.RequestID.Generator)
	}
	if got.Service.Name != "orders" {
		t.Errorf("expected service name override, got %s", got.Service.Name)
	}
}

func TestServe_InvalidConfig(t *testing.T) {
	opts := ServiceCommandOptions{
		Name: "testsvc",
		RunServer: func(ctx context.Context, cfg *config.Config, log logger.Logger) error {
			t.Error("RunServer must not run with invalid config")
			return nil
		},
	}

	_, err := runCommand(t, opts, "serve", "--trust", "sometimes")
	if err == nil || !strings.Contains(err.Error(), "load config") {
		t.Fatalf("expected load error, got %v", err)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := runCommand(t, ServiceCommandOptions{Name: "testsvc"}, "version")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "Service:    testsvc") {
		t.Errorf("unexpected version output:\n%s", out)
	}
}

func TestConfigShow(t *testing.T) {
	out, err := runCommand(t, ServiceCommandOptions{Name: "testsvc"}, "config", "show", "--request-id-header", "X-Trace-Ref")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"header: X-Trace-Ref", "name: testsvc", "request_id:"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in:\n%s", want, out)
		}
	}
}

func TestConfigValidate(t *testing.T) {
	out, err := runCommand(t, ServiceCommandOptions{Name: "testsvc"}, "config", "validate")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "configuration is valid") {
		t.Errorf("unexpected output %q", out)
	}

	t.Setenv("APP_REQUEST_ID_MAX_LENGTH", "-1")
	if _, err := runCommand(t, ServiceCommandOptions{Name: "testsvc"}, "config", "validate"); err == nil {
		t.Error("expected validation error")
	}
}

func TestConfigValidate_CustomValidator(t *testing.T) {
	opts := ServiceCommandOptions{
		Name: "testsvc",
		ValidateConfig: func(cfg *config.Config) error {
			if cfg.RequestID.Generator != "uuidv7" {
				return errors.New("uuidv7 required")
			}
			return nil
		},
	}

	_, err := runCommand(t, opts, "config", "validate")
	if err == nil || !strings.Contains(err.Error(), "custom validation failed") {
		t.Fatalf("expected custom validation error, got %v", err)
	}
	if _, err := runCommand(t, opts, "config", "validate", "--generator", "uuidv7"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestGenID(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		pattern *regexp.Regexp
		lines   int
	}{
		{
			name:    "uuid default",
			args:    []string{"genid"},
			pattern: regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`),
			lines:   1,
		},
		{
			name:    "uuidv7",
			args:    []string{"genid", "-n", "3", "--generator", "uuidv7"},
			pattern: regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-7[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`),
			lines:   3,
		},
		{
			name:    "alphanumeric",
			args:    []string{"genid", "--count", "5", "--generator", "alphanumeric"},
			pattern: regexp.MustCompile(`^[A-Za-z0-9]{10}$`),
			lines:   5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := runCommand(t, ServiceCommandOptions{Name: "testsvc"}, tt.args...)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			lines := strings.Split(strings.TrimSpace(out), "\n")
			if len(lines) != tt.lines {
				t.Fatalf("expected %d ids, got %d:\n%s", tt.lines, len(lines), out)
			}
			seen := map[string]bool{}
			for _, line := range lines {
				if !tt.pattern.MatchString(line) {
					t.Errorf("unexpected id %q", line)
				}
				if seen[line] {
					t.Errorf("duplicate id %q", line)
				}
				seen[line] = true
			}
		})
	}
}

func TestGenID_InvalidCount(t *testing.T) {
	_, err := runCommand(t, ServiceCommandOptions{Name: "testsvc"}, "genid", "--count", "0")
	if err == nil || !strings.Contains(err.Error(), "count must be at least 1") {
		t.Fatalf("expected count error, got %v", err)
	}
}

func TestFormatSettings(t *testing.T) {
	got, err := formatSettings(nil)
	if err != nil || got != "{}\n" {
		t.Fatalf("formatSettings(nil) = %q, %v", got, err)
	}

	got, err = formatSettings(setServiceNameSetting(nil, "orders"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "service:\n    name: orders\n" {
		t.Errorf("unexpected yaml %q", got)
	}
}
