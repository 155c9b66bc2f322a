package pulse

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/arloliu/pulse/internal/emitter"
	"github.com/arloliu/pulse/internal/hash"
	"github.com/arloliu/pulse/internal/hooks"
	"github.com/arloliu/pulse/internal/logging"
	"github.com/arloliu/pulse/internal/metrics"
	"github.com/arloliu/pulse/internal/tracker"
	"github.com/arloliu/pulse/notify"
	"github.com/arloliu/pulse/types"
)

// Detector tracks node liveness and alerts when nodes fail.
//
// It combines a Tracker (registry and timeout scan), a Dispatcher (retrying
// alert delivery) and an Emitter (the periodic refresh → wait → scan loop).
// All methods are safe for concurrent use.
type Detector struct {
	cfg    Config
	logger Logger

	tracker    *tracker.Tracker
	dispatcher *notify.Dispatcher
	emitter    *emitter.Emitter

	mu      sync.Mutex
	started bool
	stopped bool
	cancel  context.CancelFunc
}

// NewDetector creates a detector from configuration.
//
// Missing configuration values are filled with defaults and the result is
// validated. Nodes listed in cfg.Nodes are registered immediately.
//
// Parameters:
//   - cfg: Configuration (modified in place by SetDefaults)
//   - opts: Optional dependencies (logger, metrics, hooks, notifiers, prober, clock)
//
// Returns:
//   - *Detector: A stopped detector
//   - error: ErrInvalidConfig wrapping the validation failure
//
// Example:
//
//	cfg := pulse.DefaultConfig()
//	cfg.Nodes = []string{"node-1", "node-2"}
//	d, err := pulse.NewDetector(&cfg, pulse.WithNotifiers(sink))
//	if err != nil {
//	    return err
//	}
//	if err := d.Start(ctx); err != nil {
//	    return err
//	}
//	defer d.Stop(context.Background())
func NewDetector(cfg *Config, opts ...Option) (*Detector, error) {
	if cfg == nil {
		return nil, ErrInvalidConfig
	}

	SetDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	options := &detectorOptions{}
	for _, opt := range opts {
		opt(options)
	}

	metricsCollector := options.metrics
	if metricsCollector == nil {
		metricsCollector = metrics.NewNop()
	}

	loggerInstance := options.logger
	if loggerInstance == nil {
		loggerInstance = logging.NewNop()
	}

	cfg.ValidateWithWarnings(loggerInstance)

	clock := options.clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	notifyLogger := logging.ForComponent(loggerInstance, logging.ComponentNotifier)
	trackerLogger := logging.ForComponent(loggerInstance, logging.ComponentTracker)

	retrier := notify.NewRetrier(notify.RetryPolicy{
		MaxRetries:     cfg.Notify.MaxRetries,
		Delay:          cfg.Notify.RetryDelay,
		Jitter:         cfg.Notify.Jitter,
		AttemptTimeout: cfg.Notify.AttemptTimeout,
	}, clock, notifyLogger, metricsCollector)
	dispatcher := notify.NewDispatcher(retrier, notifyLogger, options.notifiers...)

	tr := tracker.New(tracker.Config{
		Timeout:    cfg.Timeout,
		MaxRetries: cfg.MaxRetries,
	}, tracker.Options{
		Clock:      clock,
		Logger:     trackerLogger,
		Metrics:    metricsCollector,
		Hooks:      hooks.NewRunner(options.hooks, trackerLogger),
		Dispatcher: dispatcher,
	})

	em := emitter.New(emitter.Config{
		Interval:   cfg.Timeout,
		Mode:       emitter.Mode(cfg.Mode),
		MaxWorkers: cfg.MaxWorkers,
		Batch: emitter.BatchPolicy{
			SmallPopulation:  cfg.Batching.SmallPopulation,
			MediumPopulation: cfg.Batching.MediumPopulation,
			SmallBatch:       cfg.Batching.SmallBatch,
			MediumBatch:      cfg.Batching.MediumBatch,
			LargeBatch:       cfg.Batching.LargeBatch,
		},
	}, tr, emitter.Options{
		Prober:  options.prober,
		Clock:   clock,
		Logger:  logging.ForComponent(loggerInstance, logging.ComponentEmitter),
		Metrics: metricsCollector,
	})

	d := &Detector{
		cfg:        *cfg,
		logger:     loggerInstance,
		tracker:    tr,
		dispatcher: dispatcher,
		emitter:    em,
	}

	for _, name := range cfg.Nodes {
		if _, err := tr.RegisterNode(name); err != nil {
			return nil, fmt.Errorf("%w: node %q: %w", ErrInvalidConfig, name, err)
		}
	}

	return d, nil
}

// Start runs the heartbeat/scan loop in the background.
//
// The loop keeps running until Stop is called; ctx only bounds the call
// itself. A stopped detector cannot be restarted.
//
// Returns:
//   - error: ErrAlreadyStarted if running or already stopped
func (d *Detector) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.started || d.stopped {
		return ErrAlreadyStarted
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	if err := d.emitter.Start(loopCtx); err != nil {
		cancel()
		return fmt.Errorf("failed to start emitter: %w", err)
	}

	d.started = true
	d.cancel = cancel

	d.logger.Info("detector started", "nodes", d.tracker.Len(), "timeout", d.cfg.Timeout, "notifiers", len(d.dispatcher.Notifiers()))

	return nil
}

// Stop stops the loop and waits for the current cycle to finish.
//
// Pending notification retries are aborted. If ctx expires first, Stop
// returns ctx.Err() while the loop finishes in the background.
//
// Returns:
//   - error: ErrNotStarted if the detector is not running, or ctx.Err()
func (d *Detector) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.started {
		d.mu.Unlock()
		return ErrNotStarted
	}

	d.started = false
	d.stopped = true
	cancel := d.cancel
	d.mu.Unlock()

	cancel()

	done := make(chan error, 1)
	go func() {
		done <- d.emitter.Stop()
	}()

	select {
	case err := <-done:
		if err != nil && !errors.Is(err, types.ErrEmitterAlreadyStopped) {
			return fmt.Errorf("emitter stop failed: %w", err)
		}
	case <-ctx.Done():
		return ctx.Err()
	}

	d.logger.Info("detector stopped", "cycles", d.emitter.Cycles())

	return nil
}

// IsStarted reports whether the loop is running.
func (d *Detector) IsStarted() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.started
}

// RegisterNode starts tracking a node. The node starts active.
//
// Returns:
//   - NodeSnapshot: The registered node
//   - error: ErrInvalidNodeName or ErrNodeExists
func (d *Detector) RegisterNode(name string) (NodeSnapshot, error) {
	return d.tracker.RegisterNode(name)
}

// Heartbeat records a heartbeat for a node received from an external source.
//
// A heartbeat reactivates an inactive or failed node and resets its retries.
//
// Returns:
//   - error: ErrNodeNotFound for unknown nodes
func (d *Detector) Heartbeat(ctx context.Context, name string) error {
	return d.tracker.UpdateNodeHeartbeat(ctx, name)
}

// CheckForTimeouts runs one timeout scan immediately.
func (d *Detector) CheckForTimeouts(ctx context.Context) ScanResult {
	return d.tracker.CheckForTimeouts(ctx)
}

// ReassignTaskIfNeeded signals reassignment after a scan that failed nodes.
func (d *Detector) ReassignTaskIfNeeded(ctx context.Context, res ScanResult) []NodeSnapshot {
	return d.tracker.ReassignTaskIfNeeded(ctx, res)
}

// RunCycle runs one refresh → wait → scan → reassign cycle synchronously.
//
// It is meant for callers that drive the detector themselves instead of
// calling Start.
//
// Returns:
//   - ScanResult: The scan outcome
//   - bool: false if ctx was cancelled during the wait and no scan ran
func (d *Detector) RunCycle(ctx context.Context) (ScanResult, bool) {
	return d.emitter.RunCycle(ctx)
}

// Node returns a snapshot of one node.
func (d *Detector) Node(name string) (NodeSnapshot, bool) {
	return d.tracker.Node(name)
}

// Nodes returns snapshots of all nodes sorted by name.
func (d *Detector) Nodes() []NodeSnapshot {
	return d.tracker.Nodes()
}

// Counts returns the number of nodes per state.
func (d *Detector) Counts() map[State]int {
	return d.tracker.Counts()
}

// TakeoverPlan suggests which active node should take over each failed node's work.
//
// Failed names are placed on a consistent hash ring of the active nodes, so a
// further failure only moves the work the newly failed node had taken over.
//
// Returns:
//   - map[string]string: failed node -> active node; empty when nothing failed
//     or no node is active
func (d *Detector) TakeoverPlan() map[string]string {
	var failed, active []string
	for _, n := range d.tracker.Nodes() {
		switch n.State {
		case StateFailed:
			failed = append(failed, n.Name)
		case StateActive:
			active = append(active, n.Name)
		}
	}

	return hash.Takeover(failed, active)
}

// AddNotifier registers an additional alert sink.
func (d *Detector) AddNotifier(n Notifier) {
	d.dispatcher.Add(n)
}

// Notifiers returns the registered alert sinks in invocation order.
func (d *Detector) Notifiers() []Notifier {
	return d.dispatcher.Notifiers()
}

// Config returns a copy of the effective configuration.
func (d *Detector) Config() Config {
	return d.cfg
}
