package types

import "context"

// Notifier delivers a failure alert for a node to an external sink.
//
// Notify returns a non-nil error for any delivery failure; the caller treats
// every error as transient and retries according to its retry policy.
// Implementations must be safe for concurrent use.
type Notifier interface {
	// Name identifies the notifier in logs and metrics.
	Name() string

	// Notify delivers a single alert for the given node.
	//
	// Parameters:
	//   - ctx: Context for cancellation and deadline
	//   - node: Snapshot of the failed node
	//
	// Returns:
	//   - error: Non-nil if the alert could not be delivered
	Notify(ctx context.Context, node NodeSnapshot) error
}

// Prober reports whether a node is currently sending heartbeats.
//
// The emitter consults a Prober during its refresh phase to decide which
// nodes get their heartbeat refreshed. Without a Prober every tracked node is
// refreshed.
type Prober interface {
	// Probe reports whether the named node is alive.
	//
	// Returns:
	//   - bool: true if a fresh heartbeat exists for the node
	//   - error: Non-nil when liveness could not be determined
	Probe(ctx context.Context, name string) (bool, error)
}
