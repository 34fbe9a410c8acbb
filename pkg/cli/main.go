package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/nimburion/requestid/pkg/config"
	"github.com/nimburion/requestid/pkg/middleware/requestid"
	"github.com/nimburion/requestid/pkg/observability/logger"
	"github.com/nimburion/requestid/pkg/server"
	"github.com/nimburion/requestid/pkg/server/router"
	"github.com/nimburion/requestid/pkg/version"
)

const (
	policiesAnnotationPrefix = "policies."
	defaultPolicyContext     = "run"
)

// CommandPolicy defines the supported command policy values.
type CommandPolicy string

const (
	PolicyAlways   CommandPolicy = "always"
	PolicyRun      CommandPolicy = "run"
	PolicyOnDemand CommandPolicy = "on_demand"
)

// ServiceCommandOptions defines callbacks for service-specific logic.
type ServiceCommandOptions struct {
	Name        string
	Description string
	ConfigPath  string
	EnvPrefix   string

	// Optional: registers application routes on the public router before serving.
	RegisterRoutes func(r router.Router, cfg *config.Config)

	// Optional: replaces the default server startup, which runs the public and
	// management servers until SIGINT or SIGTERM.
	RunServer func(ctx context.Context, cfg *config.Config, log logger.Logger) error

	// Optional: custom config validation (runs after the built-in validation)
	ValidateConfig func(cfg *config.Config) error

	// Optional: additional custom commands
	CustomCommands []*cobra.Command
}

// NewServiceCommand creates a CLI with serve (the default), version, config and genid subcommands.
func NewServiceCommand(opts ServiceCommandOptions) *cobra.Command {
	if opts.EnvPrefix == "" {
		opts.EnvPrefix = "APP"
	}
	if opts.RunServer == nil {
		opts.RunServer = DefaultRunServer(opts.RegisterRoutes)
	}

	rootCmd := &cobra.Command{
		Use:           opts.Name,
		Short:         opts.Description,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	SetCommandPolicies(rootCmd, map[string]CommandPolicy{defaultPolicyContext: PolicyAlways})

	var cfgPath string
	var serviceNameOverride string
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config-file", "c", opts.ConfigPath, "config file path")
	rootCmd.PersistentFlags().StringVar(&serviceNameOverride, "service-name", "", "service name override")
	config.RegisterFlags(rootCmd.PersistentFlags())

	newLoader := func(flags *pflag.FlagSet) *config.ViperLoader {
		return config.NewViperLoader(cfgPath, opts.EnvPrefix).
			WithServiceNameDefault(opts.Name).
			WithFlags(flags)
	}
	loadConfig := func(flags *pflag.FlagSet) (*config.Config, error) {
		cfg, err := newLoader(flags).Load()
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		applyResolvedServiceName(cfg, opts.Name, serviceNameOverride)
		if opts.ValidateConfig != nil {
			if err := opts.ValidateConfig(cfg); err != nil {
				return nil, fmt.Errorf("custom validation failed: %w", err)
			}
		}
		return cfg, nil
	}

	// serve command
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the public and management HTTP servers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Flags())
			if err != nil {
				return err
			}
			log, err := NewLogger(cfg)
			if err != nil {
				return err
			}
			return opts.RunServer(cmd.Context(), cfg, log)
		},
	}
	SetCommandPolicies(serveCmd, map[string]CommandPolicy{defaultPolicyContext: PolicyRun})
	rootCmd.AddCommand(serveCmd)
	rootCmd.RunE = serveCmd.RunE

	// version command
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			info := version.Current(resolveServiceNameValue("", opts.Name, serviceNameOverride))
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Service:    %s\n", info.Service)
			fmt.Fprintf(out, "Version:    %s\n", info.Version)
			fmt.Fprintf(out, "Commit:     %s\n", info.Commit)
			fmt.Fprintf(out, "Build Time: %s\n", info.BuildTime)
			fmt.Fprintf(out, "Go:         %s\n", info.GoVersion)
		},
	}
	SetCommandPolicies(versionCmd, map[string]CommandPolicy{defaultPolicyContext: PolicyAlways})
	rootCmd.AddCommand(versionCmd)

	// config command
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management commands",
	}
	SetCommandPolicies(configCmd, map[string]CommandPolicy{defaultPolicyContext: PolicyAlways})

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := loadConfig(cmd.Flags()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "configuration is valid")
			return nil
		},
	}
	SetCommandPolicies(validateCmd, map[string]CommandPolicy{defaultPolicyContext: PolicyAlways})
	configCmd.AddCommand(validateCmd)

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			loader := newLoader(cmd.Flags())
			cfg, err := loader.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			applyResolvedServiceName(cfg, opts.Name, serviceNameOverride)

			settings := setServiceNameSetting(loader.AllSettings(), cfg.Service.Name)
			formatted, err := formatSettings(settings)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatted)
			return nil
		},
	}
	SetCommandPolicies(showCmd, map[string]CommandPolicy{defaultPolicyContext: PolicyAlways})
	configCmd.AddCommand(showCmd)
	rootCmd.AddCommand(configCmd)

	// genid command
	var count int
	genidCmd := &cobra.Command{
		Use:   "genid",
		Short: "Print request IDs from the configured generator",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if count < 1 {
				return errors.New("count must be at least 1")
			}
			cfg, err := loadConfig(cmd.Flags())
			if err != nil {
				return err
			}
			return writeIDs(cmd.OutOrStdout(), cfg.RequestID.Middleware(), count)
		},
	}
	genidCmd.Flags().IntVarP(&count, "count", "n", 1, "number of IDs to print")
	SetCommandPolicies(genidCmd, map[string]CommandPolicy{defaultPolicyContext: PolicyOnDemand})
	rootCmd.AddCommand(genidCmd)

	// Add custom service-specific commands
	for _, customCmd := range opts.CustomCommands {
		ensureDefaultPolicy(customCmd)
		rootCmd.AddCommand(customCmd)
	}

	rootCmd.CompletionOptions.DisableDefaultCmd = false
	rootCmd.InitDefaultCompletionCmd()
	for _, subCmd := range rootCmd.Commands() {
		if subCmd != nil && subCmd.Name() == "completion" {
			SetCommandPolicies(subCmd, map[string]CommandPolicy{defaultPolicyContext: PolicyAlways})
			break
		}
	}

	return rootCmd
}

// DefaultRunServer builds the public and management servers, lets registerRoutes
// add application routes and serves until ctx is cancelled or a termination
// signal arrives.
func DefaultRunServer(registerRoutes func(r router.Router, cfg *config.Config)) func(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	return func(ctx context.Context, cfg *config.Config, log logger.Logger) error {
		opts := &server.RunHTTPServersOptions{Config: cfg, Logger: log}
		servers, err := server.BuildHTTPServers(opts)
		if err != nil {
			return err
		}
		if registerRoutes != nil {
			registerRoutes(opts.PublicRouter, cfg)
		}

		if ctx == nil {
			ctx = context.Background()
		}
		runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()
		return server.RunHTTPServers(runCtx, servers, opts)
	}
}

// NewLogger creates the zap logger described by cfg.Observability.
func NewLogger(cfg *config.Config) (logger.Logger, error) {
	level, err := logger.ParseLogLevel(cfg.Observability.LogLevel)
	if err != nil {
		return nil, err
	}
	format, err := logger.ParseLogFormat(cfg.Observability.LogFormat)
	if err != nil {
		return nil, err
	}

	log, err := logger.NewZapLogger(logger.Config{Level: level, Format: format})
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	logConfigIfDebug(log, cfg)
	return log, nil
}

// SetCommandPolicies stores policies as a map[string]string on command annotations using the "policies." prefix.
func SetCommandPolicies(cmd *cobra.Command, policies map[string]CommandPolicy) {
	if cmd == nil {
		return
	}
	if cmd.Annotations == nil {
		cmd.Annotations = map[string]string{}
	}
	for _, key := range policyAnnotationKeys(cmd.Annotations) {
		delete(cmd.Annotations, key)
	}
	for ctxName, policy := range policies {
		cmd.Annotations[policiesAnnotationPrefix+ctxName] = string(policy)
	}
}

// GetCommandPolicies returns the policies stored on cmd, keyed by context.
func GetCommandPolicies(cmd *cobra.Command) map[string]string {
	policies := map[string]string{}
	if cmd == nil {
		return policies
	}
	for _, key := range policyAnnotationKeys(cmd.Annotations) {
		policies[strings.TrimPrefix(key, policiesAnnotationPrefix)] = cmd.Annotations[key]
	}
	return policies
}

// Execute runs the command and exits with appropriate code.
func Execute(cmd *cobra.Command) {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func writeIDs(out io.Writer, cfg requestid.Config, count int) error {
	mw, err := requestid.New(cfg)
	if err != nil {
		return fmt.Errorf("create request id middleware: %w", err)
	}
	for i := 0; i < count; i++ {
		if _, err := fmt.Fprintln(out, mw.Generate()); err != nil {
			return err
		}
	}
	return nil
}

func ensureDefaultPolicy(cmd *cobra.Command) {
	if cmd == nil {
		return
	}
	for _, sub := range cmd.Commands() {
		ensureDefaultPolicy(sub)
	}
	if len(GetCommandPolicies(cmd)) == 0 {
		SetCommandPolicies(cmd, map[string]CommandPolicy{defaultPolicyContext: PolicyAlways})
	}
}

func policyAnnotationKeys(annotations map[string]string) []string {
	keys := make([]string, 0, len(annotations))
	for key := range annotations {
		if strings.HasPrefix(key, policiesAnnotationPrefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

func formatSettings(settings map[string]any) (string, error) {
	if settings == nil {
		return "{}\n", nil
	}
	data, err := yaml.Marshal(settings)
	if err != nil {
		return "", fmt.Errorf("marshal config: %w", err)
	}
	return string(data), nil
}

func logConfigIfDebug(log logger.Logger, cfg *config.Config) {
	if log == nil || cfg == nil {
		return
	}
	if !strings.EqualFold(cfg.Observability.LogLevel, string(logger.DebugLevel)) {
		return
	}
	log.Debug("effective configuration", "config", fmt.Sprintf("%+v", cfg))
}

func applyResolvedServiceName(cfg *config.Config, defaultServiceName, serviceNameOverride string) {
	if cfg == nil {
		return
	}
	cfg.Service.Name = resolveServiceNameValue(cfg.Service.Name, defaultServiceName, serviceNameOverride)
}

func resolveServiceNameValue(currentConfigName, defaultServiceName, serviceNameOverride string) string {
	if override := strings.TrimSpace(serviceNameOverride); override != "" {
		return override
	}
	if configured := strings.TrimSpace(currentConfigName); configured != "" {
		return configured
	}
	if fallback := strings.TrimSpace(defaultServiceName); fallback != "" {
		return fallback
	}
	return "app"
}

func setServiceNameSetting(settings map[string]any, serviceName string) map[string]any {
	if settings == nil {
		settings = map[string]any{}
	}
	service, ok := settings["service"].(map[string]any)
	if !ok || service == nil {
		service = map[string]any{}
	}
	service["name"] = serviceName
	settings["service"] = service
	return settings
}
