package pulse

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	pulsetest "github.com/arloliu/pulse/testing"
)

type recordingNotifier struct {
	mu    sync.Mutex
	nodes []string
}

func (n *recordingNotifier) Name() string { return "recording" }

func (n *recordingNotifier) Notify(_ context.Context, node NodeSnapshot) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.nodes = append(n.nodes, node.Name)

	return nil
}

func (n *recordingNotifier) notified() []string {
	n.mu.Lock()
	defer n.mu.Unlock()

	return append([]string(nil), n.nodes...)
}

// silentProber reports every node in dead as not alive.
type silentProber struct {
	dead map[string]bool
}

func (p silentProber) Probe(_ context.Context, name string) (bool, error) {
	return !p.dead[name], nil
}

func newTestDetector(t *testing.T, clock clockwork.Clock, opts ...Option) (*Detector, *pulsetest.RecordingLogger) {
	t.Helper()

	rec := pulsetest.NewRecordingLogger()

	cfg := TestConfig()
	cfg.Timeout = time.Second
	cfg.Nodes = []string{"node-a", "node-b"}

	d, err := NewDetector(&cfg, append([]Option{WithClock(clock), WithLogger(rec)}, opts...)...)
	require.NoError(t, err)

	return d, rec
}

func TestNewDetector_Validation(t *testing.T) {
	t.Run("nil config", func(t *testing.T) {
		_, err := NewDetector(nil)
		require.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("invalid config", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Mode = "parallel"

		_, err := NewDetector(&cfg)
		require.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("duplicate configured nodes", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Nodes = []string{"a", "a"}

		_, err := NewDetector(&cfg)
		require.ErrorIs(t, err, ErrInvalidConfig)
		require.ErrorIs(t, err, ErrNodeExists)
	})

	t.Run("defaults applied", func(t *testing.T) {
		cfg := Config{Nodes: []string{"a"}}

		d, err := NewDetector(&cfg)
		require.NoError(t, err)
		require.Equal(t, 10*time.Second, d.Config().Timeout)
		require.Len(t, d.Nodes(), 1)
	})
}

func TestDetector_ManualScan(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sink := &recordingNotifier{}

	var order []string
	hooks := &Hooks{
		OnFailure: func(_ context.Context, node NodeSnapshot) error {
			order = append(order, "callback:"+node.Name)
			return nil
		},
	}

	d, rec := newTestDetector(t, clock, WithNotifiers(sink), WithHooks(hooks))
	ctx := t.Context()

	for i := range 3 {
		clock.Advance(time.Second + time.Millisecond)
		require.NoError(t, d.Heartbeat(ctx, "node-b"))

		res := d.CheckForTimeouts(ctx)
		if i < 2 {
			require.Len(t, res.Inactive, 1)
			require.Empty(t, res.Failed)
		} else {
			require.Len(t, res.Failed, 1)
			require.Equal(t, "node-a", res.Failed[0].Name)

			failed := d.ReassignTaskIfNeeded(ctx, res)
			require.Len(t, failed, 1)
		}
	}

	a, ok := d.Node("node-a")
	require.True(t, ok)
	require.Equal(t, StateFailed, a.State)
	require.Equal(t, 3, a.Retries)

	require.Equal(t, []string{"callback:node-a"}, order)
	require.Equal(t, []string{"node-a"}, sink.notified())
	require.Equal(t, map[State]int{StateActive: 1, StateInactive: 0, StateFailed: 1}, d.Counts())
	require.Zero(t, rec.Count(pulsetest.LevelError, ""))
	require.Equal(t, map[string]string{"node-a": "node-b"}, d.TakeoverPlan())

	// A heartbeat brings a failed node back.
	require.NoError(t, d.Heartbeat(ctx, "node-a"))
	a, _ = d.Node("node-a")
	require.Equal(t, StateActive, a.State)
	require.Zero(t, a.Retries)
	require.Empty(t, d.TakeoverPlan())
}

func TestDetector_RegisterAndHeartbeatErrors(t *testing.T) {
	d, _ := newTestDetector(t, clockwork.NewFakeClock())

	_, err := d.RegisterNode("node-a")
	require.ErrorIs(t, err, ErrNodeExists)

	_, err = d.RegisterNode("")
	require.ErrorIs(t, err, ErrInvalidNodeName)

	require.ErrorIs(t, d.Heartbeat(t.Context(), "ghost"), ErrNodeNotFound)

	snap, err := d.RegisterNode("node-c")
	require.NoError(t, err)
	require.Equal(t, StateActive, snap.State)
	require.Len(t, d.Nodes(), 3)
}

func TestDetector_StartStopLoop(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sink := &recordingNotifier{}

	d, _ := newTestDetector(t, clock,
		WithNotifiers(sink),
		WithProber(silentProber{dead: map[string]bool{"node-b": true}}),
	)

	require.ErrorIs(t, d.Stop(t.Context()), ErrNotStarted)

	clock.Advance(500 * time.Millisecond)

	require.NoError(t, d.Start(t.Context()))
	require.ErrorIs(t, d.Start(t.Context()), ErrAlreadyStarted)
	require.True(t, d.IsStarted())

	for range 3 {
		require.NoError(t, clock.BlockUntilContext(t.Context(), 1))
		clock.Advance(time.Second)
	}

	// Parked in the next cycle's wait: the third scan has completed.
	require.NoError(t, clock.BlockUntilContext(t.Context(), 1))

	b, _ := d.Node("node-b")
	require.Equal(t, StateFailed, b.State)
	a, _ := d.Node("node-a")
	require.Equal(t, StateActive, a.State)
	require.Equal(t, []string{"node-b"}, sink.notified())

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, d.Stop(stopCtx))
	require.False(t, d.IsStarted())

	require.ErrorIs(t, d.Stop(stopCtx), ErrNotStarted)
	require.ErrorIs(t, d.Start(t.Context()), ErrAlreadyStarted)
}

func TestDetector_RunCycleCancelled(t *testing.T) {
	d, _ := newTestDetector(t, clockwork.NewFakeClock())

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	res, ok := d.RunCycle(ctx)
	require.False(t, ok)
	require.Empty(t, res.Failed)
}

func TestDetector_Notifiers(t *testing.T) {
	first := &recordingNotifier{}
	d, _ := newTestDetector(t, clockwork.NewFakeClock(), WithNotifiers(first))

	second := &recordingNotifier{}
	d.AddNotifier(second)

	require.Equal(t, []Notifier{first, second}, d.Notifiers())
}
