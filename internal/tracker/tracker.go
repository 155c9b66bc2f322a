package tracker

import (
	"cmp"
	"container/heap"
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/puzpuzpuz/xsync/v4"

	"github.com/arloliu/pulse/internal/hooks"
	"github.com/arloliu/pulse/internal/liveness"
	"github.com/arloliu/pulse/internal/logging"
	"github.com/arloliu/pulse/internal/metrics"
	"github.com/arloliu/pulse/notify"
	"github.com/arloliu/pulse/types"
)

// compactSlack is the number of stale entries tolerated above twice the
// registry size before the heap is rebuilt.
const compactSlack = 64

// Config holds the tracker settings.
type Config struct {
	// Timeout is the heartbeat window after which a node is checked.
	Timeout time.Duration

	// MaxRetries is the number of timeout detections after which a node fails.
	MaxRetries int
}

// Options holds the tracker collaborators. Nil fields get safe defaults.
type Options struct {
	Clock      clockwork.Clock
	Logger     types.Logger
	Metrics    types.TrackerMetrics
	Hooks      *hooks.Runner
	Dispatcher *notify.Dispatcher
}

// ScanResult describes what one timeout scan did.
type ScanResult struct {
	// Inactive holds nodes detected as timed out but still within budget.
	Inactive []types.NodeSnapshot

	// Failed holds nodes that transitioned to failed during the scan.
	Failed []types.NodeSnapshot

	// Stale is the number of outdated entries discarded.
	Stale int

	// Expired is the number of due entries popped.
	Expired int
}

// Tracker owns the node registry and the timeout priority heap.
//
// Tracker is safe for concurrent use. Heartbeats may be recorded from many
// goroutines; scans are serialized.
type Tracker struct {
	cfg        Config
	clock      clockwork.Clock
	logger     types.Logger
	metrics    types.TrackerMetrics
	hooks      *hooks.Runner
	dispatcher *notify.Dispatcher

	nodes  *xsync.Map[string, *liveness.Node]
	failed *xsync.Map[string, *liveness.Node]

	// counts is indexed by types.State and maintained on every transition.
	counts [types.StateFailed + 1]atomic.Int64

	mu    sync.Mutex // guards queue
	queue entryHeap

	scanMu sync.Mutex
}

// New creates a tracker.
//
// Parameters:
//   - cfg: Timeout and retry budget (MaxRetries < 1 uses liveness.DefaultMaxRetries)
//   - opts: Collaborators; nil fields default to real clock, nop logger/metrics,
//     no hooks and a dispatcher without notifiers
//
// Returns:
//   - *Tracker: A tracker with an empty registry
func New(cfg Config, opts Options) *Tracker {
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = liveness.DefaultMaxRetries
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewNop()
	}
	if opts.Hooks == nil {
		opts.Hooks = hooks.NewRunner(nil, opts.Logger)
	}
	if opts.Dispatcher == nil {
		opts.Dispatcher = notify.NewDispatcher(nil, opts.Logger)
	}

	return &Tracker{
		cfg:        cfg,
		clock:      opts.Clock,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
		hooks:      opts.Hooks,
		dispatcher: opts.Dispatcher,
		nodes:      xsync.NewMap[string, *liveness.Node](),
		failed:     xsync.NewMap[string, *liveness.Node](),
	}
}

// RegisterNode starts tracking a node.
//
// The node starts active with a heartbeat at the current time.
//
// Returns:
//   - types.NodeSnapshot: The registered node
//   - error: types.ErrInvalidNodeName for an empty name,
//     types.ErrNodeExists if the name is already tracked
func (t *Tracker) RegisterNode(name string) (types.NodeSnapshot, error) {
	if name == "" {
		return types.NodeSnapshot{}, types.ErrInvalidNodeName
	}

	now := t.clock.Now()
	node := liveness.NewNode(name, now, t.cfg.MaxRetries)
	if _, loaded := t.nodes.LoadOrStore(name, node); loaded {
		return types.NodeSnapshot{}, fmt.Errorf("%w: %s", types.ErrNodeExists, name)
	}
	t.counts[types.StateActive].Add(1)

	t.push(&entry{node: node, generation: node.Generation(), heartbeat: now, due: now.Add(t.cfg.Timeout)})
	t.logger.Debug("node registered", "node", name)

	return node.Snapshot(), nil
}

// UpdateNodeHeartbeat records a heartbeat for the named node.
//
// Retries reset to zero and the node becomes active. The previous priority
// entry stays in the heap and is discarded by the next scan that reaches it.
//
// Returns:
//   - error: types.ErrNodeNotFound if the node is not tracked
func (t *Tracker) UpdateNodeHeartbeat(ctx context.Context, name string) error {
	node, ok := t.nodes.Load(name)
	if !ok {
		return fmt.Errorf("%w: %s", types.ErrNodeNotFound, name)
	}

	now := t.clock.Now()
	tr, gen := node.UpdateHeartbeat(now)
	t.push(&entry{node: node, generation: gen, heartbeat: now, due: now.Add(t.cfg.Timeout)})

	if tr.Changed {
		t.onTransition(ctx, node, node.Snapshot(), tr)
	}

	return nil
}

// CheckForTimeouts runs one timeout scan.
//
// Due entries are processed in increasing heartbeat order. The scan never
// fails; notifier and hook failures are logged and absorbed.
func (t *Tracker) CheckForTimeouts(ctx context.Context) ScanResult {
	t.scanMu.Lock()
	defer t.scanMu.Unlock()

	start := t.clock.Now()
	now := start

	due := t.popExpired(now)
	slices.SortStableFunc(due, func(a, b *entry) int {
		if c := a.heartbeat.Compare(b.heartbeat); c != 0 {
			return c
		}

		return cmp.Compare(a.node.Name(), b.node.Name())
	})

	res := ScanResult{Expired: len(due)}
	var rearm []*entry

	for _, e := range due {
		out, err := e.node.Expire(e.generation)
		if err != nil {
			t.logger.Error("invalid state transition", "node", e.node.Name(), "state", out.Snapshot.State, "error", err)
			continue
		}

		switch out.Outcome {
		case liveness.ExpiryStale:
			res.Stale++
		case liveness.ExpiryAlreadyFailed:
			// failed nodes leave the heap until their next heartbeat
		case liveness.ExpiryInactive:
			res.Inactive = append(res.Inactive, out.Snapshot)
			rearm = append(rearm, &entry{
				node:       e.node,
				generation: e.generation,
				heartbeat:  e.heartbeat,
				due:        now.Add(t.cfg.Timeout),
				rearmed:    true,
			})
			if out.Transition.Changed {
				t.onTransition(ctx, e.node, out.Snapshot, out.Transition)
			}
			t.logger.Debug("node timed out", "node", e.node.Name(), "retries", out.Snapshot.Retries)
		case liveness.ExpiryFailed:
			res.Failed = append(res.Failed, out.Snapshot)
			t.onTransition(ctx, e.node, out.Snapshot, out.Transition)
		}
	}

	if len(rearm) > 0 {
		t.mu.Lock()
		for _, e := range rearm {
			heap.Push(&t.queue, e)
		}
		t.mu.Unlock()
	}

	if res.Stale > 0 {
		t.logger.Debug("discarded stale entries", "count", res.Stale)
		t.metrics.RecordStaleEntries(res.Stale)
	}

	for _, node := range res.Failed {
		t.notifyFailure(ctx, node)
	}

	t.recordCounts()
	t.metrics.RecordScanDuration(t.clock.Since(start).Seconds(), res.Expired)

	return res
}

// ReassignTaskIfNeeded signals that work owned by failed nodes needs a new home.
//
// It only acts after a scan that failed at least one node, and then hands
// every currently failed node to the OnReassign hook. The reassignment
// algorithm itself belongs to the hook.
//
// Returns:
//   - []types.NodeSnapshot: Failed nodes signalled, nil when nothing was needed
func (t *Tracker) ReassignTaskIfNeeded(ctx context.Context, res ScanResult) []types.NodeSnapshot {
	if len(res.Failed) == 0 {
		return nil
	}

	failed := t.FailedNodes()
	if !t.hooks.Reassign(ctx, failed) {
		t.logger.Info("task reassignment needed", "failed", len(failed))
	}

	return failed
}

// Node returns a snapshot of the named node.
func (t *Tracker) Node(name string) (types.NodeSnapshot, bool) {
	node, ok := t.nodes.Load(name)
	if !ok {
		return types.NodeSnapshot{}, false
	}

	return node.Snapshot(), true
}

// Nodes returns snapshots of every tracked node sorted by name.
func (t *Tracker) Nodes() []types.NodeSnapshot {
	out := make([]types.NodeSnapshot, 0, t.nodes.Size())
	t.nodes.Range(func(_ string, node *liveness.Node) bool {
		out = append(out, node.Snapshot())
		return true
	})
	slices.SortFunc(out, func(a, b types.NodeSnapshot) int {
		return cmp.Compare(a.Name, b.Name)
	})

	return out
}

// NodeNames returns the names of every tracked node sorted by name.
func (t *Tracker) NodeNames() []string {
	names := make([]string, 0, t.nodes.Size())
	t.nodes.Range(func(name string, _ *liveness.Node) bool {
		names = append(names, name)
		return true
	})
	slices.Sort(names)

	return names
}

// FailedNodes returns snapshots of every failed node sorted by name.
//
// Only the failed set is visited, not the whole registry.
func (t *Tracker) FailedNodes() []types.NodeSnapshot {
	var out []types.NodeSnapshot
	t.failed.Range(func(_ string, node *liveness.Node) bool {
		// a concurrent recover may not have left the set yet
		if snap := node.Snapshot(); snap.State == types.StateFailed {
			out = append(out, snap)
		}
		return true
	})
	slices.SortFunc(out, func(a, b types.NodeSnapshot) int {
		return cmp.Compare(a.Name, b.Name)
	})

	return out
}

// Counts returns the number of nodes per state.
//
// The counters are updated on every transition, so Counts does not walk
// the registry.
func (t *Tracker) Counts() map[types.State]int {
	counts := make(map[types.State]int, len(t.counts))
	for state := range t.counts {
		counts[types.State(state)] = int(t.counts[state].Load())
	}

	return counts
}

// Len returns the number of tracked nodes.
func (t *Tracker) Len() int {
	return t.nodes.Size()
}

// Timeout returns the configured heartbeat window.
func (t *Tracker) Timeout() time.Duration {
	return t.cfg.Timeout
}

// Dispatcher returns the failure dispatcher.
func (t *Tracker) Dispatcher() *notify.Dispatcher {
	return t.dispatcher
}

// queueLen returns the number of heap entries, stale ones included.
func (t *Tracker) queueLen() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.queue)
}

func (t *Tracker) push(e *entry) {
	t.mu.Lock()
	defer t.mu.Unlock()

	heap.Push(&t.queue, e)
	if len(t.queue) > 2*t.nodes.Size()+compactSlack {
		t.compactLocked()
	}
}

// compactLocked drops every entry superseded by a newer heartbeat.
func (t *Tracker) compactLocked() {
	kept := t.queue[:0]
	for _, e := range t.queue {
		if e.generation == e.node.Generation() {
			kept = append(kept, e)
		}
	}
	for i := len(kept); i < len(t.queue); i++ {
		t.queue[i] = nil
	}

	dropped := len(t.queue) - len(kept)
	t.queue = kept
	heap.Init(&t.queue)

	if dropped > 0 {
		t.metrics.RecordStaleEntries(dropped)
	}
}

func (t *Tracker) popExpired(now time.Time) []*entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	var due []*entry
	for len(t.queue) > 0 && t.queue[0].expired(now) {
		due = append(due, heap.Pop(&t.queue).(*entry))
	}

	return due
}

func (t *Tracker) onTransition(ctx context.Context, n *liveness.Node, node types.NodeSnapshot, tr liveness.Transition) {
	t.counts[tr.From].Add(-1)
	t.counts[tr.To].Add(1)
	switch {
	case tr.To == types.StateFailed:
		t.failed.Store(node.Name, n)
	case tr.From == types.StateFailed:
		t.failed.Delete(node.Name)
	}

	t.logger.Info("state transition",
		"node", node.Name,
		"event", tr.Event,
		"from", tr.From,
		"to", tr.To,
		"retries", node.Retries,
	)
	t.metrics.RecordStateTransition(tr.From, tr.To)
	t.hooks.StateChanged(ctx, node, tr.From, tr.To)
}

// notifyFailure runs the failure callback, then every notifier.
func (t *Tracker) notifyFailure(ctx context.Context, node types.NodeSnapshot) {
	t.logger.Info("node failed", "node", node.Name, "lastHeartbeat", node.LastHeartbeat, "retries", node.Retries)
	t.hooks.Failure(ctx, node)
	t.dispatcher.NotifyAll(ctx, node)
}

func (t *Tracker) recordCounts() {
	for state, count := range t.Counts() {
		t.metrics.RecordNodeCount(state, count)
	}
}
