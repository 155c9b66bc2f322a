package logging

import (
	"go.uber.org/zap"

	"github.com/arloliu/pulse/types"
)

// ZapLogger implements types.Logger on top of a zap.SugaredLogger.
//
// The sugared logger's plain Debug/Info/... methods concatenate their
// arguments, so the adapter routes every call through the "w" variants
// which treat the variadic arguments as key-value pairs.
type ZapLogger struct {
	logger *zap.SugaredLogger
}

// Compile-time assertion that ZapLogger implements Logger.
var _ types.Logger = (*ZapLogger)(nil)

// NewZap creates a logger backed by the given zap logger.
//
// Parameters:
//   - logger: The zap.Logger to wrap (a no-op logger is used if nil)
//
// Returns:
//   - *ZapLogger: A new logger instance
//
// Example:
//
//	zl, _ := zap.NewProduction()
//	logger := logging.NewZap(zl)
//	logger.Info("detector started", "nodes", 42)
func NewZap(logger *zap.Logger) *ZapLogger {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ZapLogger{logger: logger.Sugar()}
}

// With returns a child logger that adds keysAndValues to every entry.
func (l *ZapLogger) With(keysAndValues ...any) types.Logger {
	return &ZapLogger{logger: l.logger.With(keysAndValues...)}
}

// Debug logs a debug-level message with optional key-value pairs.
func (l *ZapLogger) Debug(msg string, keysAndValues ...any) {
	l.logger.Debugw(msg, keysAndValues...)
}

// Info logs an info-level message with optional key-value pairs.
func (l *ZapLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Infow(msg, keysAndValues...)
}

// Warn logs a warning-level message with optional key-value pairs.
func (l *ZapLogger) Warn(msg string, keysAndValues ...any) {
	l.logger.Warnw(msg, keysAndValues...)
}

// Error logs an error-level message with optional key-value pairs.
func (l *ZapLogger) Error(msg string, keysAndValues ...any) {
	l.logger.Errorw(msg, keysAndValues...)
}

// Fatal logs a fatal-level message with optional key-value pairs and exits.
func (l *ZapLogger) Fatal(msg string, keysAndValues ...any) {
	l.logger.Fatalw(msg, keysAndValues...)
}

// Sync flushes any buffered log entries.
func (l *ZapLogger) Sync() error {
	return l.logger.Sync()
}
