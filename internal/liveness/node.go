package liveness

import (
	"sync"
	"time"

	"github.com/arloliu/pulse/types"
)

// DefaultMaxRetries is the number of timeout detections after which a node fails.
const DefaultMaxRetries = 3

// Expiry classifies the outcome of Node.Expire.
type Expiry int

const (
	// ExpiryStale means a newer heartbeat superseded the checked entry.
	ExpiryStale Expiry = iota
	// ExpiryInactive means the node is (still) inactive after the timeout.
	ExpiryInactive
	// ExpiryFailed means the timeout exhausted the retry budget.
	ExpiryFailed
	// ExpiryAlreadyFailed means the node was already failed; nothing changed.
	ExpiryAlreadyFailed
)

// String returns the string representation of the expiry outcome.
func (e Expiry) String() string {
	switch e {
	case ExpiryStale:
		return "stale"
	case ExpiryInactive:
		return "inactive"
	case ExpiryFailed:
		return "failed"
	case ExpiryAlreadyFailed:
		return "already_failed"
	default:
		return "unknown"
	}
}

// ExpireResult is returned by Node.Expire.
type ExpireResult struct {
	Outcome    Expiry
	Transition Transition
	Snapshot   types.NodeSnapshot
}

// Node is a tracked participant.
//
// All fields are guarded by the node's mutex. The heartbeat generation is
// bumped on every recorded heartbeat so priority entries created for an older
// heartbeat can be recognised even when timestamps collide.
type Node struct {
	name       string
	maxRetries int

	mu            sync.Mutex
	sm            *StateMachine
	lastHeartbeat time.Time
	retries       int
	generation    uint64
}

// NewNode creates an active node whose last heartbeat is now.
//
// Parameters:
//   - name: Unique node name
//   - now: Registration instant, used as the initial heartbeat
//   - maxRetries: Timeout detections before failure (DefaultMaxRetries if < 1)
func NewNode(name string, now time.Time, maxRetries int) *Node {
	if maxRetries < 1 {
		maxRetries = DefaultMaxRetries
	}

	return &Node{
		name:          name,
		maxRetries:    maxRetries,
		sm:            NewStateMachine(),
		lastHeartbeat: now,
	}
}

// Name returns the node name.
func (n *Node) Name() string {
	return n.name
}

// MaxRetries returns the retry budget of the node.
func (n *Node) MaxRetries() int {
	return n.maxRetries
}

// UpdateHeartbeat records a heartbeat at now.
//
// Resets retries, bumps the generation and fires the heartbeat event. Always
// succeeds; the returned generation identifies this heartbeat.
func (n *Node) UpdateHeartbeat(now time.Time) (Transition, uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.lastHeartbeat = now
	n.retries = 0
	n.generation++

	// heartbeat is defined from every state
	tr, _ := n.sm.Fire(types.EventHeartbeat)

	return tr, n.generation
}

// IncrementRetries increments the retry counter and returns the new value.
func (n *Node) IncrementRetries() int {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.retries++

	return n.retries
}

// ShouldFail reports whether the retry budget is exhausted.
func (n *Node) ShouldFail() bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.shouldFailLocked()
}

func (n *Node) shouldFailLocked() bool {
	return n.retries >= n.maxRetries
}

// Fire applies ev to the node's state machine.
func (n *Node) Fire(ev types.Event) (Transition, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.sm.Fire(ev)
}

// Expire applies one timeout detection for the heartbeat identified by generation.
//
// A mismatching generation means a newer heartbeat exists and nothing changes.
// Otherwise retries is incremented and the node fails once the budget is
// exhausted, or becomes (stays) inactive.
func (n *Node) Expire(generation uint64) (ExpireResult, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if generation != n.generation {
		return ExpireResult{Outcome: ExpiryStale, Snapshot: n.snapshotLocked()}, nil
	}

	if n.sm.State() == types.StateFailed {
		return ExpireResult{Outcome: ExpiryAlreadyFailed, Snapshot: n.snapshotLocked()}, nil
	}

	n.retries++

	outcome, ev := ExpiryInactive, types.EventTimeout
	if n.shouldFailLocked() {
		outcome, ev = ExpiryFailed, types.EventFail
	}

	tr, err := n.sm.Fire(ev)
	if err != nil {
		n.retries--
		return ExpireResult{Snapshot: n.snapshotLocked()}, err
	}

	return ExpireResult{Outcome: outcome, Transition: tr, Snapshot: n.snapshotLocked()}, nil
}

// LastHeartbeat returns the instant of the most recent heartbeat.
func (n *Node) LastHeartbeat() time.Time {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.lastHeartbeat
}

// Retries returns the number of timeouts detected since the last heartbeat.
func (n *Node) Retries() int {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.retries
}

// State returns the current liveness state.
func (n *Node) State() types.State {
	return n.sm.State()
}

// Generation returns the current heartbeat generation.
func (n *Node) Generation() uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.generation
}

// Snapshot returns a consistent copy of the node.
func (n *Node) Snapshot() types.NodeSnapshot {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.snapshotLocked()
}

func (n *Node) snapshotLocked() types.NodeSnapshot {
	return types.NodeSnapshot{
		Name:          n.name,
		State:         n.sm.State(),
		LastHeartbeat: n.lastHeartbeat,
		Retries:       n.retries,
	}
}
