package probe

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/arloliu/pulse/internal/natsutil"
	"github.com/arloliu/pulse/types"
)

// KVProber reports a node alive when its heartbeat key holds a recent timestamp.
type KVProber struct {
	kv     jetstream.KeyValue
	prefix string
	maxAge time.Duration
	clock  clockwork.Clock
}

var _ types.Prober = (*KVProber)(nil)

// NewKVProber creates a prober over a heartbeat bucket.
//
// Parameters:
//   - kv: Bucket written by Publishers
//   - prefix: Key prefix used by the Publishers
//   - maxAge: Oldest heartbeat still considered alive
//   - clock: Clock used for the age check (nil for the real clock)
//
// Returns:
//   - *KVProber: A prober ready for use with pulse.WithProber
func NewKVProber(kv jetstream.KeyValue, prefix string, maxAge time.Duration, clock clockwork.Clock) *KVProber {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &KVProber{kv: kv, prefix: prefix, maxAge: maxAge, clock: clock}
}

// Probe reports whether the named node has a fresh heartbeat.
//
// A missing or deleted key means the node is not alive; that is not an error.
//
// Returns:
//   - bool: true if the stored heartbeat is at most maxAge old
//   - error: KV failure (types.ErrConnectivity when NATS is unreachable),
//     or types.ErrInvalidHeartbeat for unparsable values
func (p *KVProber) Probe(ctx context.Context, name string) (bool, error) {
	entry, err := p.kv.Get(ctx, heartbeatKey(p.prefix, name))
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) || errors.Is(err, jetstream.ErrKeyDeleted) {
			return false, nil
		}
		if natsutil.IsConnectivityError(err) {
			return false, fmt.Errorf("%w: reading heartbeat for %s: %w", types.ErrConnectivity, name, err)
		}

		return false, fmt.Errorf("failed to read heartbeat for %s: %w", name, err)
	}

	ts, err := time.Parse(time.RFC3339Nano, string(entry.Value()))
	if err != nil {
		return false, fmt.Errorf("%w for %s: %w", types.ErrInvalidHeartbeat, name, err)
	}

	return p.clock.Since(ts) <= p.maxAge, nil
}

// ActiveNodes lists the names of nodes that currently have a heartbeat key.
//
// Freshness is not checked; use Probe for that.
//
// Returns:
//   - []string: Sorted node names, empty when the bucket has no keys
//   - error: KV failure
func (p *KVProber) ActiveNodes(ctx context.Context) ([]string, error) {
	keys, err := p.kv.Keys(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) || types.IsNoKeysFoundError(err) {
			return []string{}, nil
		}

		return nil, fmt.Errorf("failed to list heartbeat keys: %w", err)
	}

	prefix := p.prefix + "."
	nodes := make([]string, 0, len(keys))
	for _, key := range keys {
		if name, ok := strings.CutPrefix(key, prefix); ok && name != "" {
			nodes = append(nodes, name)
		}
	}
	slices.Sort(nodes)

	return nodes, nil
}

// MaxAge returns the freshness window.
func (p *KVProber) MaxAge() time.Duration {
	return p.maxAge
}
