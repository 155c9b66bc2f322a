package types

// State represents the liveness state of a tracked node.
//
// States follow a defined progression when heartbeats stop arriving:
//
//	StateActive → StateInactive → StateFailed
//
// A recorded heartbeat returns the node to StateActive from either of the
// other states.
type State int

const (
	// StateActive indicates the node has recently sent a heartbeat.
	StateActive State = iota

	// StateInactive indicates at least one timeout was detected since the last heartbeat.
	StateInactive

	// StateFailed indicates the retry budget is exhausted and the node is declared failed.
	StateFailed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateInactive:
		return "inactive"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Event is a liveness event fired against a node's state machine.
type Event int

const (
	// EventHeartbeat records that the node has been heard from.
	EventHeartbeat Event = iota

	// EventTimeout records that the node missed its heartbeat window.
	EventTimeout

	// EventFail records that the node exhausted its retry budget.
	EventFail
)

// String returns the string representation of the event.
func (e Event) String() string {
	switch e {
	case EventHeartbeat:
		return "heartbeat"
	case EventTimeout:
		return "timeout"
	case EventFail:
		return "fail"
	default:
		return "unknown"
	}
}
