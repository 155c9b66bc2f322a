package types

// Logger is the structured logging sink used by every detector component.
//
// Arguments after msg are alternating keys and values, e.g.
// logger.Warn("notification failed, retrying", "node", name, "attempt", 2).
// Detector events use the keys "node", "notifier", "state", "from", "to",
// "retries" and "error". The internal/logging package adapts slog and zap;
// the default discards everything.
type Logger interface {
	// Debug records high-volume detail such as stale heap entries and skipped refreshes.
	Debug(msg string, keysAndValues ...any)

	// Info records state transitions and lifecycle events.
	Info(msg string, keysAndValues ...any)

	// Warn records recoverable trouble: notifier retries, probe errors,
	// missing notifiers or failure callback.
	Warn(msg string, keysAndValues ...any)

	// Error records exhausted notification retries, hook failures and
	// invalid state transitions. The detector keeps running afterwards.
	Error(msg string, keysAndValues ...any)

	// Fatal logs and terminates the process. The detector itself never calls it.
	Fatal(msg string, keysAndValues ...any)
}
