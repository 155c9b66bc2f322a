package probe

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/pulse"
	pulsetest "github.com/arloliu/pulse/testing"
	"github.com/arloliu/pulse/types"
)

func TestKVProber_Probe(t *testing.T) {
	ctx := t.Context()

	_, nc := pulsetest.StartEmbeddedNATS(t)
	kv := pulsetest.CreateJetStreamKV(t, nc, "test-probe")

	clock := clockwork.NewFakeClock()
	prober := NewKVProber(kv, "hb", 3*time.Second, clock)
	require.Equal(t, 3*time.Second, prober.MaxAge())

	t.Run("missing key is not alive", func(t *testing.T) {
		alive, err := prober.Probe(ctx, "ghost")
		require.NoError(t, err)
		require.False(t, alive)
	})

	t.Run("fresh heartbeat is alive until max age", func(t *testing.T) {
		publisher := NewPublisher(kv, "hb", "node-1", time.Hour, PublisherOptions{Clock: clock})
		require.NoError(t, publisher.Start(ctx))
		defer func() { require.NoError(t, publisher.Stop()) }()

		alive, err := prober.Probe(ctx, "node-1")
		require.NoError(t, err)
		require.True(t, alive)

		clock.Advance(3 * time.Second)
		alive, err = prober.Probe(ctx, "node-1")
		require.NoError(t, err)
		require.True(t, alive)

		clock.Advance(time.Millisecond)
		alive, err = prober.Probe(ctx, "node-1")
		require.NoError(t, err)
		require.False(t, alive)
	})

	t.Run("deleted key is not alive", func(t *testing.T) {
		publisher := NewPublisher(kv, "hb", "node-2", time.Hour, PublisherOptions{Clock: clock})
		require.NoError(t, publisher.Start(ctx))
		require.NoError(t, publisher.Stop())

		alive, err := prober.Probe(ctx, "node-2")
		require.NoError(t, err)
		require.False(t, alive)
	})

	t.Run("garbage value is an error", func(t *testing.T) {
		_, err := kv.Put(ctx, "hb.node-3", []byte("yesterday"))
		require.NoError(t, err)

		_, err = prober.Probe(ctx, "node-3")
		require.ErrorIs(t, err, types.ErrInvalidHeartbeat)
	})
}

func TestKVProber_ClosedConnection(t *testing.T) {
	_, nc := pulsetest.StartEmbeddedNATS(t)
	kv := pulsetest.CreateJetStreamKV(t, nc, "test-probe-closed")
	prober := NewKVProber(kv, "hb", time.Second, nil)

	nc.Close()

	alive, err := prober.Probe(t.Context(), "node-1")
	require.ErrorIs(t, err, types.ErrConnectivity)
	require.False(t, alive)
}

func TestKVProber_ActiveNodesEmptyBucket(t *testing.T) {
	_, nc := pulsetest.StartEmbeddedNATS(t)
	kv := pulsetest.CreateJetStreamKV(t, nc, "test-probe-empty")

	nodes, err := NewKVProber(kv, "hb", time.Second, nil).ActiveNodes(t.Context())
	require.NoError(t, err)
	require.Empty(t, nodes)
}

func TestKVProber_DrivesDetector(t *testing.T) {
	ctx := t.Context()

	_, nc := pulsetest.StartEmbeddedNATS(t)
	kv := pulsetest.CreateJetStreamKV(t, nc, "test-probe-detector")

	clock := clockwork.NewFakeClock()
	agentClock := clockwork.NewFakeClockAt(clock.Now())

	alive := NewPublisher(kv, "hb", "alive", time.Hour, PublisherOptions{Clock: agentClock})
	require.NoError(t, alive.Start(ctx))
	defer func() { require.NoError(t, alive.Stop()) }()

	cfg := pulse.TestConfig()
	cfg.Timeout = time.Second
	cfg.Nodes = []string{"alive", "silent"}

	var failed []string
	d, err := pulse.NewDetector(&cfg,
		pulse.WithClock(clock),
		pulse.WithProber(NewKVProber(kv, "hb", time.Hour, clock)),
		pulse.WithHooks(&pulse.Hooks{
			OnFailure: func(_ context.Context, node pulse.NodeSnapshot) error {
				failed = append(failed, node.Name)
				return nil
			},
		}),
	)
	require.NoError(t, err)

	clock.Advance(500 * time.Millisecond)

	for range 3 {
		done := make(chan struct{})
		go func() {
			defer close(done)
			d.RunCycle(ctx)
		}()

		require.NoError(t, clock.BlockUntilContext(ctx, 1))
		clock.Advance(time.Second)
		<-done
	}

	require.Equal(t, []string{"silent"}, failed)

	n, ok := d.Node("alive")
	require.True(t, ok)
	require.Equal(t, pulse.StateActive, n.State)
}
