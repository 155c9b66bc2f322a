package pulse

import "github.com/arloliu/pulse/types"

// Sentinel errors returned by the Detector.
//
// They are re-exported from the types package so callers can match them with
// errors.Is without importing types.
var (
	// ErrInvalidConfig is returned when the configuration is invalid.
	ErrInvalidConfig = types.ErrInvalidConfig

	// ErrAlreadyStarted is returned when Start is called on a running detector.
	ErrAlreadyStarted = types.ErrAlreadyStarted

	// ErrNotStarted is returned when Stop is called on a detector that is not running.
	ErrNotStarted = types.ErrNotStarted

	// ErrNodeExists is returned when registering a name that is already tracked.
	ErrNodeExists = types.ErrNodeExists

	// ErrNodeNotFound is returned for heartbeats from unknown nodes.
	ErrNodeNotFound = types.ErrNodeNotFound

	// ErrInvalidNodeName is returned when a node name is empty.
	ErrInvalidNodeName = types.ErrInvalidNodeName

	// ErrRetriesExhausted marks a notification whose every attempt failed.
	ErrRetriesExhausted = types.ErrRetriesExhausted
)
