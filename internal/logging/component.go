package logging

import "github.com/arloliu/pulse/types"

// ComponentKey is the log key naming the detector component that emitted a record.
const ComponentKey = "component"

// Component names used by the detector.
const (
	ComponentTracker  = "tracker"
	ComponentEmitter  = "emitter"
	ComponentNotifier = "notifier"
)

// withLogger is implemented by adapters that can derive child loggers.
type withLogger interface {
	With(keysAndValues ...any) types.Logger
}

// ForComponent scopes logger to a detector component.
//
// Adapters that support child loggers (slog, zap) tag every record with
// ComponentKey; any other logger is returned unchanged.
//
// Parameters:
//   - logger: Base logger
//   - component: Component name, e.g. ComponentTracker
//
// Returns:
//   - types.Logger: The scoped logger
func ForComponent(logger types.Logger, component string) types.Logger {
	if wl, ok := logger.(withLogger); ok {
		return wl.With(ComponentKey, component)
	}

	return logger
}
