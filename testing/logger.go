package testing

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/arloliu/pulse/types"
)

// NewTestLogger creates a new logger instance that writes to the testing.T logger.
// This is useful for seeing log output during test runs.
func NewTestLogger(t *testing.T) types.Logger {
	return &testLogger{t: t}
}

type testLogger struct {
	t *testing.T
}

var _ types.Logger = (*testLogger)(nil)

func (l *testLogger) Debug(msg string, keysAndValues ...any) {
	l.t.Logf("DEBUG: %s %s", msg, formatKeyValues(keysAndValues))
}

func (l *testLogger) Info(msg string, keysAndValues ...any) {
	l.t.Logf("INFO: %s %s", msg, formatKeyValues(keysAndValues))
}

func (l *testLogger) Warn(msg string, keysAndValues ...any) {
	l.t.Logf("WARN: %s %s", msg, formatKeyValues(keysAndValues))
}

func (l *testLogger) Error(msg string, keysAndValues ...any) {
	l.t.Logf("ERROR: %s %s", msg, formatKeyValues(keysAndValues))
}

func (l *testLogger) Fatal(msg string, keysAndValues ...any) {
	l.t.Fatalf("FATAL: %s %s", msg, formatKeyValues(keysAndValues))
}

func formatKeyValues(keysAndValues []any) string {
	var b strings.Builder
	for i := 0; i < len(keysAndValues); i += 2 {
		if i+1 < len(keysAndValues) {
			fmt.Fprintf(&b, "%v=%v ", keysAndValues[i], keysAndValues[i+1])
		} else {
			fmt.Fprintf(&b, "%v=<missing> ", keysAndValues[i])
		}
	}

	return b.String()
}

// Log levels recorded by RecordingLogger.
const (
	LevelDebug = "DEBUG"
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
	LevelFatal = "FATAL"
)

// LogEntry is a single message captured by RecordingLogger.
type LogEntry struct {
	Level         string
	Msg           string
	KeysAndValues []any
}

// Field returns the value logged under key, or nil when absent.
func (e LogEntry) Field(key string) any {
	for i := 0; i+1 < len(e.KeysAndValues); i += 2 {
		if k, ok := e.KeysAndValues[i].(string); ok && k == key {
			return e.KeysAndValues[i+1]
		}
	}

	return nil
}

// RecordingLogger captures every log call so tests can assert on them.
//
// It is safe for concurrent use.
//
// Example:
//
//	rec := pulsetest.NewRecordingLogger()
//	runScan(rec)
//	require.Equal(t, 3, rec.Count(pulsetest.LevelWarn, "notification failed, retrying"))
type RecordingLogger struct {
	mu      sync.Mutex
	entries []LogEntry
}

var _ types.Logger = (*RecordingLogger)(nil)

// NewRecordingLogger creates an empty RecordingLogger.
func NewRecordingLogger() *RecordingLogger {
	return &RecordingLogger{}
}

func (l *RecordingLogger) record(level, msg string, keysAndValues []any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	kv := make([]any, len(keysAndValues))
	copy(kv, keysAndValues)
	l.entries = append(l.entries, LogEntry{Level: level, Msg: msg, KeysAndValues: kv})
}

func (l *RecordingLogger) Debug(msg string, keysAndValues ...any) {
	l.record(LevelDebug, msg, keysAndValues)
}

func (l *RecordingLogger) Info(msg string, keysAndValues ...any) {
	l.record(LevelInfo, msg, keysAndValues)
}

func (l *RecordingLogger) Warn(msg string, keysAndValues ...any) {
	l.record(LevelWarn, msg, keysAndValues)
}

func (l *RecordingLogger) Error(msg string, keysAndValues ...any) {
	l.record(LevelError, msg, keysAndValues)
}

// Fatal records the message without exiting the process.
func (l *RecordingLogger) Fatal(msg string, keysAndValues ...any) {
	l.record(LevelFatal, msg, keysAndValues)
}

// Entries returns a copy of every captured entry in call order.
func (l *RecordingLogger) Entries() []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]LogEntry, len(l.entries))
	copy(out, l.entries)

	return out
}

// Filter returns the entries at level whose message equals msg.
// An empty msg matches every message at that level.
func (l *RecordingLogger) Filter(level, msg string) []LogEntry {
	var out []LogEntry
	for _, e := range l.Entries() {
		if e.Level == level && (msg == "" || e.Msg == msg) {
			out = append(out, e)
		}
	}

	return out
}

// Count returns the number of entries at level whose message equals msg.
// An empty msg counts every message at that level.
func (l *RecordingLogger) Count(level, msg string) int {
	return len(l.Filter(level, msg))
}

// Reset discards all captured entries.
func (l *RecordingLogger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = nil
}
