package notify

import (
	"context"
	"sync"

	"github.com/arloliu/pulse/internal/logging"
	"github.com/arloliu/pulse/types"
)

// Dispatcher fans a failure out to every registered notifier.
//
// Notifiers run sequentially in registration order; each one gets its own
// retry budget and a failing notifier never prevents later ones from running.
type Dispatcher struct {
	retrier *Retrier
	logger  types.Logger

	mu        sync.RWMutex
	notifiers []types.Notifier
}

// NewDispatcher creates a Dispatcher.
//
// Parameters:
//   - retrier: Retry wrapper applied to every notifier (default policy if nil)
//   - logger: Logger (nop if nil)
//   - notifiers: Initial notifiers; nil entries are skipped
func NewDispatcher(retrier *Retrier, logger types.Logger, notifiers ...types.Notifier) *Dispatcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	if retrier == nil {
		retrier = NewRetrier(DefaultRetryPolicy(), nil, logger, nil)
	}

	d := &Dispatcher{retrier: retrier, logger: logger}
	for _, n := range notifiers {
		d.Add(n)
	}

	return d
}

// Add registers a notifier. Nil notifiers are ignored.
func (d *Dispatcher) Add(n types.Notifier) {
	if n == nil {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.notifiers = append(d.notifiers, n)
}

// Notifiers returns the registered notifiers.
func (d *Dispatcher) Notifiers() []types.Notifier {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]types.Notifier, len(d.notifiers))
	copy(out, d.notifiers)

	return out
}

// NotifyAll delivers a failure alert for node through every notifier.
//
// With no notifiers registered it logs a warning and returns nil.
func (d *Dispatcher) NotifyAll(ctx context.Context, node types.NodeSnapshot) []Result {
	notifiers := d.Notifiers()
	if len(notifiers) == 0 {
		d.logger.Warn("no notifiers registered", "node", node.Name)
		return nil
	}

	results := make([]Result, 0, len(notifiers))
	for _, n := range notifiers {
		results = append(results, d.retrier.Notify(ctx, n, node))
	}

	return results
}
