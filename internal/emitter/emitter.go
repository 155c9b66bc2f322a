package emitter

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/arloliu/pulse/internal/logging"
	"github.com/arloliu/pulse/internal/metrics"
	"github.com/arloliu/pulse/internal/tracker"
	"github.com/arloliu/pulse/types"
)

// Mode selects how the refresh phase runs.
type Mode string

const (
	// ModeAuto refreshes sequentially when the population fits in one batch.
	ModeAuto Mode = "auto"
	// ModeSequential refreshes every node on the loop goroutine.
	ModeSequential Mode = "sequential"
	// ModeBatched refreshes batches concurrently, at most MaxWorkers at a time.
	ModeBatched Mode = "batched"
)

// DefaultMaxWorkers is the default number of concurrently refreshed batches.
const DefaultMaxWorkers = 8

// Tracker is the subset of the tracker driven by the emitter.
type Tracker interface {
	NodeNames() []string
	UpdateNodeHeartbeat(ctx context.Context, name string) error
	CheckForTimeouts(ctx context.Context) tracker.ScanResult
	ReassignTaskIfNeeded(ctx context.Context, res tracker.ScanResult) []types.NodeSnapshot
}

// Config holds the emitter settings.
type Config struct {
	// Interval is the wait between the refresh and the scan phase.
	Interval time.Duration

	// Mode selects sequential or batched refresh.
	Mode Mode

	// MaxWorkers bounds the number of batches refreshed concurrently.
	MaxWorkers int

	// Batch maps the population size to a batch size.
	Batch BatchPolicy
}

// Options holds the emitter collaborators. Nil fields get safe defaults.
type Options struct {
	// Prober decides which nodes get refreshed. Without a prober every
	// tracked node is refreshed.
	Prober  types.Prober
	Clock   clockwork.Clock
	Logger  types.Logger
	Metrics types.EmitterMetrics
}

// Emitter runs the refresh → wait → scan loop.
type Emitter struct {
	cfg     Config
	tracker Tracker
	prober  types.Prober
	clock   clockwork.Clock
	logger  types.Logger
	metrics types.EmitterMetrics

	inFlight atomic.Int32
	cycles   atomic.Uint64

	mu      sync.Mutex
	started bool
	stopped bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// New creates an emitter.
//
// Parameters:
//   - cfg: Loop settings (zero values fall back to defaults)
//   - tr: Tracker to drive
//   - opts: Optional collaborators
//
// Returns:
//   - *Emitter: A stopped emitter
func New(cfg Config, tr Tracker, opts Options) *Emitter {
	if cfg.Mode == "" {
		cfg.Mode = ModeAuto
	}
	if cfg.MaxWorkers < 1 {
		cfg.MaxWorkers = DefaultMaxWorkers
	}
	if cfg.Batch == (BatchPolicy{}) {
		cfg.Batch = DefaultBatchPolicy()
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

	return &Emitter{
		cfg:     cfg,
		tracker: tr,
		prober:  opts.Prober,
		clock:   opts.Clock,
		logger:  opts.Logger,
		metrics: opts.Metrics,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

// Start runs the loop in a background goroutine.
//
// The loop runs until Stop is called or ctx is cancelled. An emitter cannot
// be restarted after Stop.
//
// Returns:
//   - error: types.ErrEmitterAlreadyStarted if running,
//     types.ErrEmitterAlreadyStopped if it was stopped before
func (e *Emitter) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.started {
		return types.ErrEmitterAlreadyStarted
	}
	if e.stopped {
		return types.ErrEmitterAlreadyStopped
	}

	e.started = true
	go e.loop(ctx)

	e.logger.Info("emitter started", "mode", e.cfg.Mode, "interval", e.cfg.Interval, "maxWorkers", e.cfg.MaxWorkers)

	return nil
}

// Stop signals the loop to exit and waits for it.
//
// Stopping is cooperative: a running chunk of batches is always joined and
// the loop exits before its next phase. A pending wait is interrupted.
//
// Returns:
//   - error: types.ErrEmitterNotStarted before Start,
//     types.ErrEmitterAlreadyStopped on a second call
func (e *Emitter) Stop() error {
	e.mu.Lock()

	if !e.started {
		e.mu.Unlock()
		if e.stopped {
			return types.ErrEmitterAlreadyStopped
		}

		return types.ErrEmitterNotStarted
	}

	close(e.stopCh)
	e.started = false
	e.stopped = true

	e.mu.Unlock()

	<-e.doneCh
	e.logger.Info("emitter stopped", "cycles", e.cycles.Load())

	return nil
}

// IsStarted reports whether the loop is running.
func (e *Emitter) IsStarted() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.started
}

// Cycles returns the number of completed cycles.
func (e *Emitter) Cycles() uint64 {
	return e.cycles.Load()
}

func (e *Emitter) loop(ctx context.Context) {
	defer close(e.doneCh)

	for {
		if e.shouldStop(ctx) {
			return
		}

		e.runCycle(ctx)
	}
}

func (e *Emitter) shouldStop(ctx context.Context) bool {
	select {
	case <-e.stopCh:
		return true
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// RunCycle runs one refresh → wait → scan → reassign cycle synchronously.
//
// Returns:
//   - tracker.ScanResult: The scan outcome
//   - bool: false if the wait was interrupted and no scan ran
func (e *Emitter) RunCycle(ctx context.Context) (tracker.ScanResult, bool) {
	return e.runCycle(ctx)
}

func (e *Emitter) runCycle(ctx context.Context) (tracker.ScanResult, bool) {
	start := e.clock.Now()

	e.Refresh(ctx)

	if !e.wait(ctx, e.cfg.Interval-e.clock.Since(start)) {
		return tracker.ScanResult{}, false
	}

	res := e.tracker.CheckForTimeouts(ctx)
	e.tracker.ReassignTaskIfNeeded(ctx, res)

	e.cycles.Add(1)
	e.metrics.RecordCycleDuration(e.clock.Since(start).Seconds())

	return res, true
}

// wait blocks for d; it returns false if stopped or cancelled first.
//
// The interval is measured from the start of the cycle, so a node refreshed
// during the cycle is never older than the interval when the scan runs.
func (e *Emitter) wait(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return !e.shouldStop(ctx)
	}

	select {
	case <-e.stopCh:
		return false
	case <-ctx.Done():
		return false
	case <-e.clock.After(d):
		return true
	}
}

// Refresh refreshes the heartbeat of every live node once.
//
// Returns:
//   - int: Number of nodes refreshed
func (e *Emitter) Refresh(ctx context.Context) int {
	names := e.tracker.NodeNames()
	if len(names) == 0 {
		return 0
	}

	size := e.cfg.Batch.BatchSize(len(names))

	var refreshed int
	if e.mode(len(names), size) == ModeSequential {
		refreshed = e.refreshBatch(ctx, names)
	} else {
		refreshed = e.refreshChunked(ctx, Partition(names, size))
	}

	e.metrics.RecordRefreshed(refreshed)

	return refreshed
}

func (e *Emitter) mode(population, batchSize int) Mode {
	if e.cfg.Mode != ModeAuto {
		return e.cfg.Mode
	}
	if population <= batchSize {
		return ModeSequential
	}

	return ModeBatched
}

// refreshChunked runs one goroutine per batch, MaxWorkers batches at a time,
// joining each chunk before starting the next.
func (e *Emitter) refreshChunked(ctx context.Context, batches [][]string) int {
	var total atomic.Int64

	for _, chunk := range Chunk(batches, e.cfg.MaxWorkers) {
		var wg sync.WaitGroup
		for _, batch := range chunk {
			wg.Go(func() {
				e.metrics.RecordBatchesInFlight(int(e.inFlight.Add(1)))
				defer func() {
					e.metrics.RecordBatchesInFlight(int(e.inFlight.Add(-1)))
				}()

				total.Add(int64(e.refreshBatch(ctx, batch)))
			})
		}
		wg.Wait()
	}

	return int(total.Load())
}

func (e *Emitter) refreshBatch(ctx context.Context, batch []string) int {
	refreshed := 0
	for _, name := range batch {
		if e.refreshNode(ctx, name) {
			refreshed++
		}
	}

	return refreshed
}

func (e *Emitter) refreshNode(ctx context.Context, name string) bool {
	if e.prober != nil {
		alive, err := e.prober.Probe(ctx, name)
		if err != nil {
			e.metrics.RecordProbeError()
			e.logger.Warn("liveness probe failed", "node", name, "error", err)

			return false
		}
		if !alive {
			return false
		}
	}

	if err := e.tracker.UpdateNodeHeartbeat(ctx, name); err != nil {
		e.logger.Debug("heartbeat refresh skipped", "node", name, "error", err)
		return false
	}

	return true
}
