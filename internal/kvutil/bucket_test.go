package kvutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/require"

	pulsetest "github.com/arloliu/pulse/testing"
)

func TestEnsureBucket(t *testing.T) {
	_, nc := pulsetest.StartEmbeddedNATS(t)

	js, err := jetstream.New(nc)
	require.NoError(t, err)

	t.Run("creates a missing bucket", func(t *testing.T) {
		kv, err := EnsureBucket(t.Context(), js, jetstream.KeyValueConfig{Bucket: "hb-create", TTL: time.Minute}, 0)
		require.NoError(t, err)
		require.Equal(t, "hb-create", kv.Bucket())
	})

	t.Run("opens an existing bucket with a different config", func(t *testing.T) {
		_, err := js.CreateKeyValue(t.Context(), jetstream.KeyValueConfig{Bucket: "hb-existing", History: 5})
		require.NoError(t, err)

		kv, err := EnsureBucket(t.Context(), js, jetstream.KeyValueConfig{Bucket: "hb-existing", History: 1}, 2)
		require.NoError(t, err)
		require.Equal(t, "hb-existing", kv.Bucket())
	})

	t.Run("concurrent callers share one bucket", func(t *testing.T) {
		const callers = 5

		var wg sync.WaitGroup
		errs := make(chan error, callers)
		for range callers {
			wg.Go(func() {
				_, err := EnsureBucket(t.Context(), js, jetstream.KeyValueConfig{Bucket: "hb-race", TTL: time.Minute}, 3)
				errs <- err
			})
		}
		wg.Wait()
		close(errs)

		for err := range errs {
			require.NoError(t, err)
		}
	})

	t.Run("invalid bucket name fails after all attempts", func(t *testing.T) {
		_, err := EnsureBucket(t.Context(), js, jetstream.KeyValueConfig{Bucket: "bad name"}, 2)
		require.ErrorContains(t, err, "after 2 attempts")
	})

	t.Run("cancelled context stops retrying", func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())
		cancel()

		_, err := EnsureBucket(ctx, js, jetstream.KeyValueConfig{Bucket: "hb-cancelled"}, 3)
		require.Error(t, err)
	})
}
