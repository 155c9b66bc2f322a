package probe

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/arloliu/pulse/internal/logging"
	"github.com/arloliu/pulse/internal/metrics"
	"github.com/arloliu/pulse/types"
)

// Common errors for publisher operations.
var (
	ErrNotStarted     = errors.New("publisher not started")
	ErrAlreadyStarted = errors.New("publisher already started")
	ErrNoNodeName     = errors.New("node name not set")
)

// publishTimeout bounds a single KV write from the background loop.
const publishTimeout = 5 * time.Second

// PublisherOptions holds optional publisher collaborators.
type PublisherOptions struct {
	Clock   clockwork.Clock
	Logger  types.Logger
	Metrics types.HeartbeatMetrics
}

// Publisher publishes periodic heartbeats for one node to NATS KV.
//
// The heartbeat key holds the node's last heartbeat timestamp. When the
// agent dies the key stops changing and, with a bucket TTL, disappears.
type Publisher struct {
	kv       jetstream.KeyValue
	prefix   string
	node     string
	interval time.Duration
	clock    clockwork.Clock
	logger   types.Logger
	metrics  types.HeartbeatMetrics

	mu      sync.Mutex
	started bool
	stopCh  chan struct{}
	doneCh  chan struct{}
	ticker  clockwork.Ticker
}

// NewPublisher creates a heartbeat publisher.
//
// The KV bucket should be configured with a TTL of ~3x the heartbeat interval
// so that keys of crashed agents expire.
//
// Parameters:
//   - kv: JetStream KV bucket for heartbeat storage
//   - prefix: Key prefix for heartbeat keys (e.g., "hb")
//   - node: Node name, must match the name registered with the detector
//   - interval: Heartbeat interval
//   - opts: Optional clock, logger and metrics
//
// Returns:
//   - *Publisher: New heartbeat publisher instance
//
// Example:
//
//	kv, _ := js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
//	    Bucket:  "pulse-heartbeat",
//	    TTL:     30 * time.Second,
//	    Storage: jetstream.FileStorage,
//	})
//	publisher := probe.NewPublisher(kv, "hb", "node-1", 2*time.Second, probe.PublisherOptions{})
func NewPublisher(kv jetstream.KeyValue, prefix, node string, interval time.Duration, opts PublisherOptions) *Publisher {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewNop()
	}

	return &Publisher{
		kv:       kv,
		prefix:   prefix,
		node:     node,
		interval: interval,
		clock:    opts.Clock,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins publishing heartbeats in the background.
//
// Publishes the first heartbeat immediately, then at regular intervals.
// Continues until Stop() is called.
//
// Parameters:
//   - ctx: Context for the initial publish
//
// Returns:
//   - error: ErrAlreadyStarted if already running, ErrNoNodeName if the node
//     name is empty, or the initial publish error
func (p *Publisher) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return ErrAlreadyStarted
	}

	if p.node == "" {
		return ErrNoNodeName
	}

	// Publish first heartbeat immediately
	if err := p.publish(ctx); err != nil {
		p.metrics.RecordHeartbeat(p.node, false)
		return fmt.Errorf("failed to publish initial heartbeat: %w", err)
	}
	p.metrics.RecordHeartbeat(p.node, true)

	p.started = true
	p.ticker = p.clock.NewTicker(p.interval)

	go p.publishLoop()

	return nil
}

// Stop stops the publisher and deletes the heartbeat entry from KV.
//
// Blocks until the publisher goroutine exits. The entry is deleted so the
// node stops probing alive immediately instead of after MaxAge.
//
// Returns:
//   - error: ErrNotStarted if not running, or the delete error
func (p *Publisher) Stop() error {
	p.mu.Lock()

	if !p.started {
		p.mu.Unlock()
		return ErrNotStarted
	}

	p.ticker.Stop()
	close(p.stopCh)
	p.started = false

	p.mu.Unlock()

	<-p.doneCh

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := p.kv.Delete(ctx, p.Key()); err != nil {
		return fmt.Errorf("stopped but failed to delete heartbeat: %w", err)
	}

	return nil
}

func (p *Publisher) publishLoop() {
	defer close(p.doneCh)

	for {
		select {
		case <-p.stopCh:
			return
		case <-p.ticker.Chan():
			ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
			err := p.publish(ctx)
			cancel()

			if err != nil {
				p.metrics.RecordHeartbeat(p.node, false)
				p.logger.Warn("heartbeat publish failed", "node", p.node, "error", err)

				continue
			}
			p.metrics.RecordHeartbeat(p.node, true)
		}
	}
}

// publish writes the current time under the node's key.
func (p *Publisher) publish(ctx context.Context) error {
	value := []byte(p.clock.Now().UTC().Format(time.RFC3339Nano))

	if _, err := p.kv.Put(ctx, p.Key(), value); err != nil {
		return fmt.Errorf("%w for %s: %w", types.ErrPublishFailed, p.node, err)
	}

	return nil
}

// Key returns the KV key of this publisher's heartbeat.
func (p *Publisher) Key() string {
	return heartbeatKey(p.prefix, p.node)
}

// Node returns the node name.
func (p *Publisher) Node() string {
	return p.node
}

// IsStarted returns whether the publisher is currently running.
func (p *Publisher) IsStarted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.started
}

func heartbeatKey(prefix, node string) string {
	return fmt.Sprintf("%s.%s", prefix, node)
}
