package types

import (
	"errors"
	"strings"
)

// Sentinel errors for the Pulse library.
//
// These errors provide type-safe error checking using errors.Is() and errors.As().
// All components should use these sentinel errors for known error conditions
// and wrap external errors with context using fmt.Errorf("%s: %w", msg, err).
//
// Error Naming Convention:
//   - Use descriptive names with Err prefix
//   - Group by component (Detector, Tracker, Emitter, etc.)
//   - Use consistent messages across similar error types

// Detector errors - Public API errors returned by the Detector.
var (
	// ErrInvalidConfig is returned when the configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrAlreadyStarted is returned when Start is called on an already running detector.
	ErrAlreadyStarted = errors.New("detector already started")

	// ErrNotStarted is returned when Stop is called on a detector that hasn't been started.
	ErrNotStarted = errors.New("detector not started")
)

// Tracker errors - Node registry errors.
var (
	// ErrNodeExists is returned when registering a name that is already tracked.
	ErrNodeExists = errors.New("node already registered")

	// ErrNodeNotFound is returned when an operation references an unknown node.
	ErrNodeNotFound = errors.New("node not found")

	// ErrInvalidNodeName is returned when a node name is empty.
	ErrInvalidNodeName = errors.New("invalid node name")
)

// Liveness errors - State machine errors.
var (
	// ErrInvalidTransition is returned when an event is not defined for the current state.
	ErrInvalidTransition = errors.New("invalid state transition")
)

// Emitter errors - Internal emitter loop lifecycle errors.
var (
	// ErrEmitterAlreadyStarted is returned when Start is called on a running emitter.
	ErrEmitterAlreadyStarted = errors.New("emitter already started")

	// ErrEmitterNotStarted is returned when Stop is called before Start.
	ErrEmitterNotStarted = errors.New("emitter not started")

	// ErrEmitterAlreadyStopped is returned when Stop is called twice.
	ErrEmitterAlreadyStopped = errors.New("emitter already stopped")
)

// Notifier errors - Alert delivery errors.
var (
	// ErrNotifierFailed wraps a panic or an unexpected status raised by a notifier.
	ErrNotifierFailed = errors.New("notifier failed")

	// ErrRetriesExhausted is returned when every delivery attempt failed.
	ErrRetriesExhausted = errors.New("notification retries exhausted")
)

// Probe errors - Heartbeat publishing and probing errors.
var (
	// ErrPublishFailed is returned when publishing a heartbeat to NATS KV fails.
	ErrPublishFailed = errors.New("failed to publish heartbeat")

	// ErrInvalidHeartbeat is returned when a stored heartbeat value cannot be parsed.
	ErrInvalidHeartbeat = errors.New("invalid heartbeat value")
)

// Common errors - Shared errors used across multiple components.
var (
	// ErrNoKeysFound is returned when NATS KV returns no keys (expected condition).
	ErrNoKeysFound = errors.New("no keys found")

	// ErrConnectivity is returned when NATS cannot be reached.
	ErrConnectivity = errors.New("NATS connectivity error")
)

// IsNoKeysFoundError checks if an error indicates that no keys were found in NATS KV.
//
// This function handles NATS-specific "no keys found" errors which may come as:
//   - Direct error: "nats: no keys found"
//   - Wrapped error: "failed to list KV keys: nats: no keys found"
//
// Parameters:
//   - err: The error to check
//
// Returns:
//   - bool: true if the error indicates no keys were found, false otherwise
func IsNoKeysFoundError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNoKeysFound) {
		return true
	}

	return strings.Contains(err.Error(), "no keys found")
}
