// Package logging provides the access log middleware.
//
// Every entry carries the request ID resolved by the requestid package, so a
// log line can be joined with the X-Request-ID header the client received.
package logging

import (
	"net/http"
	"strings"
	"time"

	"github.com/nimburion/requestid/pkg/middleware/pathpolicy"
	"github.com/nimburion/requestid/pkg/middleware/requestid"
	"github.com/nimburion/requestid/pkg/observability/logger"
	"github.com/nimburion/requestid/pkg/server/router"
)

// Mode defines logging verbosity for matching request paths.
type Mode = pathpolicy.Mode

const (
	// ModeOff disables request logging
	ModeOff = pathpolicy.Off
	// ModeMinimal logs only the completion event
	ModeMinimal = pathpolicy.Minimal
	// ModeFull logs start and completion events
	ModeFull = pathpolicy.Full
)

// Output defines where request logs are written.
type Output string

const (
	// OutputLogger writes to the configured logger
	OutputLogger Output = "logger"
	// OutputStdout writes JSON lines to standard output
	OutputStdout Output = "stdout"
	// OutputStderr writes JSON lines to standard error
	OutputStderr Output = "stderr"
)

// Config configures request logging middleware behavior.
type Config struct {
	Enabled              bool
	LogStart             bool
	Output               Output
	Fields               []string
	ExcludedPathPrefixes []string
	PathPolicies         []PathPolicy

	// Format is an optional line template, e.g. `${request_method} ${uri} ${status} ${request_id}`.
	// ${header:Name} and ${resp_header:Name} read request and response headers.
	// Unknown placeholders render as "-".
	Format string
}

// PathPolicy configures a logging mode for a path prefix.
type PathPolicy = pathpolicy.Policy

// DefaultConfig returns default request logging behavior.
func DefaultConfig() Config {
	return Config{
		Enabled:  true,
		LogStart: true,
		Output:   OutputLogger,
		Fields:   append([]string{}, defaultFields...),
	}
}

// Logging creates middleware with default configuration.
func Logging(log logger.Logger) router.MiddlewareFunc {
	return WithConfig(log, DefaultConfig())
}

// WithConfig creates request logging middleware with custom configuration.
// Fields, policies and the line template are resolved once here.
func WithConfig(log logger.Logger, cfg Config) router.MiddlewareFunc {
	a := newAccessLog(log, cfg)

	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			req := c.Request()
			mode := a.modeFor(req.URL.Path)
			if mode == ModeOff {
				return next(c)
			}

			ev := &event{
				req:       req,
				requestID: requestid.Extract(c).String(),
				start:     time.Now(),
				isStart:   true,
			}
			if a.logStart && mode == ModeFull {
				a.sink.Info("request started", a.fields(ev)...)
			}

			err := next(c)
			// A request ID middleware mounted after this one may have replaced the ID.
			ev.requestID = requestid.Extract(c).String()
			ev.isStart = false
			ev.respHdr = c.Response().Header()
			ev.status = c.Response().Status()
			ev.duration = time.Since(ev.start)
			ev.err = err

			if err != nil {
				a.sink.Error("request failed", a.fields(ev)...)
				return err
			}
			a.sink.Info("request completed", a.fields(ev)...)
			return nil
		}
	}
}

// event is a snapshot of one request used to resolve fields and placeholders.
type event struct {
	req       *http.Request
	respHdr   http.Header
	requestID string
	start     time.Time
	status    int
	duration  time.Duration
	err       error
	isStart   bool
}

// accessLog is the compiled form of Config.
type accessLog struct {
	enabled  bool
	logStart bool
	paths    *pathpolicy.Matcher
	fieldSet []string
	line     lineTemplate
	sink     logger.Logger
}

func newAccessLog(log logger.Logger, cfg Config) *accessLog {
	a := &accessLog{enabled: cfg.Enabled}
	if !cfg.Enabled {
		return a
	}

	a.logStart = cfg.LogStart
	a.paths = pathpolicy.NewMatcher(cfg.ExcludedPathPrefixes, cfg.PathPolicies)
	a.fieldSet = normalizeFields(cfg.Fields)
	a.line = compileTemplate(cfg.Format)
	a.sink = newSink(log, parseOutput(cfg.Output))
	return a
}

// modeFor is ModeOff for every path when the access log is disabled.
func (a *accessLog) modeFor(path string) Mode {
	if !a.enabled {
		return ModeOff
	}
	return a.paths.ModeFor(path)
}

func (a *accessLog) fields(ev *event) []any {
	args := make([]any, 0, len(a.fieldSet)*2+2)
	for _, name := range a.fieldSet {
		if value, ok := resolvers[name](ev); ok {
			args = append(args, name, value)
		}
	}
	if a.line != nil && !ev.isStart {
		args = append(args, FieldLine, a.line.render(ev))
	}
	return args
}

// ParseMode converts a string into a Mode, defaulting to ModeFull.
func ParseMode(value string) Mode {
	return pathpolicy.ParseMode(value)
}

// ParseOutput converts a string into an Output, defaulting to OutputLogger.
func ParseOutput(value string) Output {
	return parseOutput(Output(value))
}

func parseOutput(output Output) Output {
	switch Output(strings.ToLower(strings.TrimSpace(string(output)))) {
	case OutputStdout:
		return OutputStdout
	case OutputStderr:
		return OutputStderr
	default:
		return OutputLogger
	}
}
