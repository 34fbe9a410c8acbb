package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/nimburion/requestid/pkg/middleware/requestid"
)

// RequestIDField is the key under which WithContext records the request ID.
const RequestIDField = "request_id"

// ZapLogger is a Logger implementation using uber-go/zap for structured logging.
type ZapLogger struct {
	logger *zap.Logger
	sugar  *zap.SugaredLogger
}

// LogLevel represents the logging level
type LogLevel string

// Log level constants
const (
	DebugLevel LogLevel = "debug"
	InfoLevel  LogLevel = "info"
	WarnLevel  LogLevel = "warn"
	ErrorLevel LogLevel = "error"
)

// LogFormat represents the output format for logs
type LogFormat string

// Log format constants
const (
	// JSONFormat outputs one JSON object per line.
	JSONFormat LogFormat = "json"
	// TextFormat outputs human-readable console lines.
	TextFormat LogFormat = "text"
)

// Config holds configuration for the logger
type Config struct {
	Level  LogLevel
	Format LogFormat

	// Output receives encoded entries. Defaults to os.Stdout.
	Output io.Writer
}

// DefaultConfig returns the default logger configuration
func DefaultConfig() Config {
	return Config{
		Level:  InfoLevel,
		Format: JSONFormat,
	}
}

// zapLevel maps lvl onto zap; anything unparseable logs at info.
func (lvl LogLevel) zapLevel() zapcore.Level {
	level, err := zapcore.ParseLevel(string(lvl))
	if err != nil {
		return zapcore.InfoLevel
	}
	return level
}

// encoderConfig is zap's production layout with the keys the access log and
// the request ID tooling read: timestamp, level, message.
func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "timestamp"
	cfg.MessageKey = "message"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg
}

// NewZapLogger creates a ZapLogger writing JSON or console entries to cfg.Output.
// Unknown levels fall back to info.
func NewZapLogger(cfg Config) (*ZapLogger, error) {
	var encoder zapcore.Encoder
	switch cfg.Format {
	case JSONFormat, "":
		encoder = zapcore.NewJSONEncoder(encoderConfig())
	case TextFormat:
		encoder = zapcore.NewConsoleEncoder(encoderConfig())
	default:
		return nil, fmt.Errorf("invalid log format: %s", cfg.Format)
	}

	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(out)), zap.NewAtomicLevelAt(cfg.Level.zapLevel()))
	return newZapLogger(zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))), nil
}

func newZapLogger(z *zap.Logger) *ZapLogger {
	return &ZapLogger{logger: z, sugar: z.Sugar()}
}

// Debug logs a debug-level message with optional key-value pairs
func (l *ZapLogger) Debug(msg string, args ...any) {
	l.sugar.Debugw(msg, args...)
}

// Info logs an info-level message with optional key-value pairs
func (l *ZapLogger) Info(msg string, args ...any) {
	l.sugar.Infow(msg, args...)
}

// Warn logs a warning-level message with optional key-value pairs
func (l *ZapLogger) Warn(msg string, args ...any) {
	l.sugar.Warnw(msg, args...)
}

// Error logs an error-level message with optional key-value pairs
func (l *ZapLogger) Error(msg string, args ...any) {
	l.sugar.Errorw(msg, args...)
}

// With creates a child logger with additional key-value pairs.
func (l *ZapLogger) With(args ...any) Logger {
	return newZapLogger(l.sugar.With(args...).Desugar())
}

// WithContext returns a child logger tagged with the request ID found in ctx.
// Without one, l is returned unchanged.
func (l *ZapLogger) WithContext(ctx context.Context) Logger {
	if ctx == nil {
		return l
	}
	if id, ok := requestid.FromContext(ctx); ok {
		return newZapLogger(l.logger.With(zap.Stringer(RequestIDField, id)))
	}
	return l
}

// Sync flushes any buffered log entries. Applications should call this before exiting.
func (l *ZapLogger) Sync() error {
	return l.logger.Sync()
}

// ParseLogLevel converts a string to a LogLevel. Only debug through error are
// accepted; "warning" is an alias for warn.
func ParseLogLevel(level string) (LogLevel, error) {
	normalized := strings.ToLower(strings.TrimSpace(level))
	if normalized == "warning" {
		normalized = "warn"
	}
	parsed, err := zapcore.ParseLevel(normalized)
	if normalized == "" || err != nil || parsed > zapcore.ErrorLevel {
		return "", fmt.Errorf("invalid log level: %s", level)
	}
	return LogLevel(parsed.String()), nil
}

// ParseLogFormat converts a string to a LogFormat
func ParseLogFormat(format string) (LogFormat, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		return JSONFormat, nil
	case "text", "console":
		return TextFormat, nil
	default:
		return "", fmt.Errorf("invalid log format: %s", format)
	}
}
