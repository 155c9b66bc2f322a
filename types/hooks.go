package types

import "context"

// Hooks defines callbacks for detector events.
//
// All hooks are optional and are invoked synchronously on the goroutine that
// produced the event. Hook errors and panics are logged and never abort the
// timeout scan that triggered them.
//
// Example:
//
//	hooks := &pulse.Hooks{
//	    OnFailure: func(ctx context.Context, node pulse.NodeSnapshot) error {
//	        return pager.Page(ctx, node.Name)
//	    },
//	}
type Hooks struct {
	// OnFailure is the failure callback. It runs once per transition into
	// StateFailed, before any notifier is invoked.
	OnFailure func(ctx context.Context, node NodeSnapshot) error

	// OnStateChanged is called after every effective state transition.
	OnStateChanged func(ctx context.Context, node NodeSnapshot, from, to State) error

	// OnReassign is called after a scan that failed at least one node.
	// failed holds every node currently in StateFailed.
	OnReassign func(ctx context.Context, failed []NodeSnapshot) error
}
