package types

import "time"

// NodeSnapshot is a point-in-time copy of a tracked node.
//
// Snapshots are handed to notifiers, hooks and API callers so that they never
// hold a reference to the live node.
type NodeSnapshot struct {
	// Name uniquely identifies the node.
	Name string `json:"name"`

	// State is the liveness state at the time of the snapshot.
	State State `json:"-"`

	// LastHeartbeat is the instant of the most recent recorded heartbeat.
	LastHeartbeat time.Time `json:"lastHeartbeat"`

	// Retries is the number of timeouts detected since the last heartbeat.
	Retries int `json:"retries"`
}
