package emitter

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/pulse/internal/tracker"
	pulsetest "github.com/arloliu/pulse/testing"
	"github.com/arloliu/pulse/types"
)

// fakeTracker records refreshes and tracks how many callers run at once.
type fakeTracker struct {
	names []string
	delay time.Duration

	mu        sync.Mutex
	refreshed map[string]int

	active    atomic.Int32
	maxActive atomic.Int32
	scans     atomic.Int32
	reassigns atomic.Int32
}

func newFakeTracker(names []string) *fakeTracker {
	return &fakeTracker{names: names, refreshed: make(map[string]int)}
}

func (f *fakeTracker) NodeNames() []string {
	return f.names
}

func (f *fakeTracker) UpdateNodeHeartbeat(_ context.Context, name string) error {
	cur := f.active.Add(1)
	defer f.active.Add(-1)

	for {
		peak := f.maxActive.Load()
		if cur <= peak || f.maxActive.CompareAndSwap(peak, cur) {
			break
		}
	}

	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	f.refreshed[name]++
	f.mu.Unlock()

	return nil
}

func (f *fakeTracker) CheckForTimeouts(context.Context) tracker.ScanResult {
	f.scans.Add(1)
	return tracker.ScanResult{}
}

func (f *fakeTracker) ReassignTaskIfNeeded(context.Context, tracker.ScanResult) []types.NodeSnapshot {
	f.reassigns.Add(1)
	return nil
}

func (f *fakeTracker) refreshCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.refreshed[name]
}

type stubProber struct {
	dead   map[string]bool
	broken map[string]bool
}

func (p stubProber) Probe(_ context.Context, name string) (bool, error) {
	if p.broken[name] {
		return false, errors.New("probe unavailable")
	}

	return !p.dead[name], nil
}

func TestEmitter_RefreshSequential(t *testing.T) {
	tr := newFakeTracker(names(100))
	e := New(Config{Mode: ModeAuto}, tr, Options{})

	require.Equal(t, 100, e.Refresh(t.Context()))
	require.Equal(t, int32(1), tr.maxActive.Load())
	for _, n := range tr.names {
		require.Equal(t, 1, tr.refreshCount(n))
	}
}

func TestEmitter_RefreshBatchedBoundsConcurrency(t *testing.T) {
	tr := newFakeTracker(names(200))
	tr.delay = time.Millisecond

	e := New(Config{
		Mode:       ModeBatched,
		MaxWorkers: 3,
		Batch: BatchPolicy{
			SmallPopulation:  1000,
			MediumPopulation: 2000,
			SmallBatch:       10,
			MediumBatch:      10,
			LargeBatch:       10,
		},
	}, tr, Options{})

	require.Equal(t, 200, e.Refresh(t.Context()))
	require.LessOrEqual(t, tr.maxActive.Load(), int32(3))
	require.Equal(t, int32(0), e.inFlight.Load())

	for _, n := range tr.names {
		require.Equal(t, 1, tr.refreshCount(n), "node %s refreshed more than once", n)
	}
}

func TestEmitter_AutoModeBatchesLargePopulations(t *testing.T) {
	tr := newFakeTracker(names(25))
	e := New(Config{
		MaxWorkers: 2,
		Batch: BatchPolicy{
			SmallPopulation:  100,
			MediumPopulation: 200,
			SmallBatch:       5,
			MediumBatch:      5,
			LargeBatch:       5,
		},
	}, tr, Options{})

	require.Equal(t, ModeBatched, e.mode(25, 5))
	require.Equal(t, ModeSequential, e.mode(5, 5))
	require.Equal(t, 25, e.Refresh(t.Context()))
	require.LessOrEqual(t, tr.maxActive.Load(), int32(2))
}

func TestEmitter_RefreshUsesProber(t *testing.T) {
	tr := newFakeTracker([]string{"alive", "dead", "broken"})
	logger := pulsetest.NewRecordingLogger()

	e := New(Config{}, tr, Options{
		Logger: logger,
		Prober: stubProber{
			dead:   map[string]bool{"dead": true},
			broken: map[string]bool{"broken": true},
		},
	})

	require.Equal(t, 1, e.Refresh(t.Context()))
	require.Equal(t, 1, tr.refreshCount("alive"))
	require.Equal(t, 0, tr.refreshCount("dead"))
	require.Equal(t, 0, tr.refreshCount("broken"))
	require.Equal(t, 1, logger.Count(pulsetest.LevelWarn, "liveness probe failed"))
}

func TestEmitter_RunCycle(t *testing.T) {
	clock := clockwork.NewFakeClock()
	tr := newFakeTracker(names(3))
	e := New(Config{Interval: time.Second}, tr, Options{Clock: clock})

	type outcome struct {
		ok bool
	}
	done := make(chan outcome, 1)
	go func() {
		_, ok := e.RunCycle(t.Context())
		done <- outcome{ok: ok}
	}()

	require.NoError(t, clock.BlockUntilContext(t.Context(), 1))
	require.Equal(t, int32(0), tr.scans.Load(), "scan must wait for the interval")

	clock.Advance(time.Second)

	select {
	case out := <-done:
		require.True(t, out.ok)
	case <-time.After(2 * time.Second):
		t.Fatal("cycle did not complete")
	}

	require.Equal(t, int32(1), tr.scans.Load())
	require.Equal(t, int32(1), tr.reassigns.Load())
	require.Equal(t, uint64(1), e.Cycles())
	for _, n := range tr.names {
		require.Equal(t, 1, tr.refreshCount(n))
	}
}

func TestEmitter_StartStop(t *testing.T) {
	clock := clockwork.NewFakeClock()
	tr := newFakeTracker(names(2))
	e := New(Config{Interval: time.Second}, tr, Options{Clock: clock})

	require.ErrorIs(t, e.Stop(), types.ErrEmitterNotStarted)

	require.NoError(t, e.Start(t.Context()))
	require.ErrorIs(t, e.Start(t.Context()), types.ErrEmitterAlreadyStarted)
	require.True(t, e.IsStarted())

	for range 3 {
		require.NoError(t, clock.BlockUntilContext(t.Context(), 1))
		clock.Advance(time.Second)
	}

	// The loop is parked in the wait of its fourth cycle.
	require.NoError(t, clock.BlockUntilContext(t.Context(), 1))
	require.NoError(t, e.Stop())

	require.False(t, e.IsStarted())
	require.Equal(t, uint64(3), e.Cycles())
	require.Equal(t, int32(3), tr.scans.Load())
	require.Equal(t, 4, tr.refreshCount(tr.names[0]))

	require.ErrorIs(t, e.Stop(), types.ErrEmitterAlreadyStopped)
	require.ErrorIs(t, e.Start(t.Context()), types.ErrEmitterAlreadyStopped)
}

func TestEmitter_ContextCancelStopsLoop(t *testing.T) {
	clock := clockwork.NewFakeClock()
	tr := newFakeTracker(names(1))
	e := New(Config{Interval: time.Second}, tr, Options{Clock: clock})

	ctx, cancel := context.WithCancel(t.Context())
	require.NoError(t, e.Start(ctx))
	require.NoError(t, clock.BlockUntilContext(t.Context(), 1))

	cancel()

	select {
	case <-e.doneCh:
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not exit after cancellation")
	}
	require.Equal(t, int32(0), tr.scans.Load())

	require.NoError(t, e.Stop())
}

func TestEmitter_WithRealTracker(t *testing.T) {
	clock := clockwork.NewFakeClock()
	tr := tracker.New(tracker.Config{Timeout: time.Second}, tracker.Options{Clock: clock})

	_, err := tr.RegisterNode("worker-1")
	require.NoError(t, err)
	_, err = tr.RegisterNode("worker-2")
	require.NoError(t, err)

	clock.Advance(500 * time.Millisecond)

	// worker-2 stops answering probes.
	e := New(Config{Interval: time.Second}, tr, Options{
		Clock:  clock,
		Prober: stubProber{dead: map[string]bool{"worker-2": true}},
	})

	for cycle := range 3 {
		done := make(chan tracker.ScanResult, 1)
		go func() {
			res, _ := e.RunCycle(t.Context())
			done <- res
		}()

		require.NoError(t, clock.BlockUntilContext(t.Context(), 1))
		clock.Advance(time.Second)

		res := <-done
		if cycle < 2 {
			require.Len(t, res.Inactive, 1)
			require.Equal(t, "worker-2", res.Inactive[0].Name)
		} else {
			require.Len(t, res.Failed, 1)
			require.Equal(t, "worker-2", res.Failed[0].Name)
		}
	}

	n, ok := tr.Node("worker-1")
	require.True(t, ok)
	require.Equal(t, types.StateActive, n.State)
}

// slowProber reports every node alive, taking latency of clock time per call.
type slowProber struct {
	clock   *clockwork.FakeClock
	latency time.Duration
}

func (p slowProber) Probe(context.Context, string) (bool, error) {
	p.clock.Advance(p.latency)
	return true, nil
}

func TestEmitter_RefreshSlowerThanInterval(t *testing.T) {
	clock := clockwork.NewFakeClock()
	tr := tracker.New(tracker.Config{Timeout: time.Second}, tracker.Options{Clock: clock})

	for _, name := range []string{"worker-1", "worker-2", "worker-3"} {
		_, err := tr.RegisterNode(name)
		require.NoError(t, err)
	}

	// Three probes at 400ms each: the refresh alone outlasts the interval.
	e := New(Config{Interval: time.Second}, tr, Options{
		Clock:  clock,
		Prober: slowProber{clock: clock, latency: 400 * time.Millisecond},
	})
	start := clock.Now()

	type outcome struct {
		res tracker.ScanResult
		ok  bool
	}
	done := make(chan outcome, 1)
	go func() {
		res, ok := e.RunCycle(t.Context())
		done <- outcome{res: res, ok: ok}
	}()

	var out outcome
	select {
	case out = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("scan waited after a refresh longer than the interval")
	}
	require.True(t, out.ok)
	res := out.res

	require.Equal(t, 1200*time.Millisecond, clock.Since(start), "scan ran right after the refresh")
	require.Equal(t, 3, res.Expired, "only the registration entries came due")
	require.Equal(t, 3, res.Stale)
	require.Empty(t, res.Inactive, "refreshed nodes must not time out")
	require.Empty(t, res.Failed)

	for _, n := range tr.Nodes() {
		require.Equal(t, types.StateActive, n.State, n.Name)
	}
}
