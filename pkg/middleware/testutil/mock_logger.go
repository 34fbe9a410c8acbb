// Package testutil provides test doubles shared by middleware tests.
package testutil

import (
	"context"
	"sync"

	"github.com/nimburion/requestid/pkg/middleware/requestid"
	"github.com/nimburion/requestid/pkg/observability/logger"
)

// MockLogger is a test logger that captures log entries for assertion in tests.
// Children created by With and WithContext append to the same Logs slice.
type MockLogger struct {
	Logs []LogEntry

	mu     sync.Mutex
	root   *MockLogger
	fields []any
}

// LogEntry represents a single log entry captured by MockLogger.
type LogEntry struct {
	Level  string
	Msg    string
	Fields map[string]interface{}
}

// Debug records a debug-level log entry.
func (m *MockLogger) Debug(msg string, args ...any) { m.record("debug", msg, args) }

// Info records an info-level log entry.
func (m *MockLogger) Info(msg string, args ...any) { m.record("info", msg, args) }

// Warn records a warn-level log entry.
func (m *MockLogger) Warn(msg string, args ...any) { m.record("warn", msg, args) }

// Error records an error-level log entry.
func (m *MockLogger) Error(msg string, args ...any) { m.record("error", msg, args) }

// With returns a child logger that adds args to every entry.
func (m *MockLogger) With(args ...any) logger.Logger {
	fields := append(append([]any{}, m.fields...), args...)
	return &MockLogger{root: m.base(), fields: fields}
}

// WithContext returns a child logger carrying the request ID found in ctx, if any.
func (m *MockLogger) WithContext(ctx context.Context) logger.Logger {
	if id, ok := requestid.FromContext(ctx); ok {
		return m.With("request_id", id.String())
	}
	return m
}

// Entries returns a snapshot of the captured entries.
func (m *MockLogger) Entries() []LogEntry {
	base := m.base()
	base.mu.Lock()
	defer base.mu.Unlock()
	return append([]LogEntry{}, base.Logs...)
}

func (m *MockLogger) base() *MockLogger {
	if m.root != nil {
		return m.root
	}
	return m
}

func (m *MockLogger) record(level, msg string, args []any) {
	fields := argsToMap(append(append([]any{}, m.fields...), args...))
	base := m.base()
	base.mu.Lock()
	defer base.mu.Unlock()
	base.Logs = append(base.Logs, LogEntry{Level: level, Msg: msg, Fields: fields})
}

func argsToMap(args []any) map[string]interface{} {
	fields := make(map[string]interface{})
	for i := 0; i < len(args)-1; i += 2 {
		if key, ok := args[i].(string); ok {
			fields[key] = args[i+1]
		}
	}
	return fields
}
