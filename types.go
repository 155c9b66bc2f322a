package pulse

import (
	"github.com/arloliu/pulse/internal/tracker"
	"github.com/arloliu/pulse/types"
)

// Re-export types from the internal types package.
//
// Internal packages depend on `types` rather than on the root package, which
// keeps the import graph acyclic while callers still write pulse.State,
// pulse.Logger and so on.
type (
	State        = types.State
	Event        = types.Event
	NodeSnapshot = types.NodeSnapshot
	ScanResult   = tracker.ScanResult
)

// Re-export interfaces from the internal types package for convenience.
type (
	Notifier         = types.Notifier
	Prober           = types.Prober
	MetricsCollector = types.MetricsCollector
	Logger           = types.Logger
	Hooks            = types.Hooks
)

// Re-export State constants from the internal types package.
const (
	StateActive   = types.StateActive
	StateInactive = types.StateInactive
	StateFailed   = types.StateFailed
)
