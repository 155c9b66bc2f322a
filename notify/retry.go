package notify

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/arloliu/pulse/internal/logging"
	"github.com/arloliu/pulse/internal/metrics"
	"github.com/arloliu/pulse/types"
)

// Default retry settings.
const (
	DefaultMaxRetries     = 3
	DefaultRetryDelay     = 5 * time.Second
	DefaultAttemptTimeout = 10 * time.Second
)

// RetryPolicy bounds the delivery attempts of a single alert.
type RetryPolicy struct {
	// MaxRetries is the number of attempts made after the first one fails.
	MaxRetries int

	// Delay is the wait between two attempts.
	Delay time.Duration

	// Jitter adds a uniformly random extra wait in [0, Jitter) to each delay.
	Jitter time.Duration

	// AttemptTimeout bounds a single Notify call (0 disables the bound).
	AttemptTimeout time.Duration
}

// DefaultRetryPolicy returns 3 retries with a fixed 5s delay.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:     DefaultMaxRetries,
		Delay:          DefaultRetryDelay,
		AttemptTimeout: DefaultAttemptTimeout,
	}
}

// Result describes the outcome of a retried delivery.
type Result struct {
	Notifier  string
	Node      string
	Attempts  int
	Delivered bool
	Err       error
}

// Retrier applies a RetryPolicy to notifier calls.
//
// A Retrier is safe for concurrent use.
type Retrier struct {
	policy  RetryPolicy
	clock   clockwork.Clock
	logger  types.Logger
	metrics types.NotifierMetrics
}

// NewRetrier creates a Retrier.
//
// Parameters:
//   - policy: Retry bounds (negative values are clamped to 0)
//   - clock: Clock used for delays (real clock if nil)
//   - logger: Logger for retry warnings and exhaustion errors (nop if nil)
//   - m: Metrics sink (nop if nil)
func NewRetrier(policy RetryPolicy, clock clockwork.Clock, logger types.Logger, m types.NotifierMetrics) *Retrier {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if m == nil {
		m = metrics.NewNop()
	}
	policy.MaxRetries = max(policy.MaxRetries, 0)
	policy.Delay = max(policy.Delay, 0)
	policy.Jitter = max(policy.Jitter, 0)

	return &Retrier{policy: policy, clock: clock, logger: logger, metrics: m}
}

// Policy returns the retry policy in effect.
func (r *Retrier) Policy() RetryPolicy {
	return r.policy
}

// NotifyWithRetries delivers an alert for node through n using the default
// policy and the real clock.
func NotifyWithRetries(ctx context.Context, n types.Notifier, node types.NodeSnapshot, logger types.Logger) Result {
	return NewRetrier(DefaultRetryPolicy(), nil, logger, nil).Notify(ctx, n, node)
}

// Notify delivers an alert for node through n.
//
// The first attempt is followed by up to MaxRetries retries. Each retry is
// preceded by a warning carrying the attempt number and error; exhaustion is
// logged once as an error. Cancelling ctx stops waiting between attempts.
// The returned Result is informational; callers are not expected to act on it.
func (r *Retrier) Notify(ctx context.Context, n types.Notifier, node types.NodeSnapshot) Result {
	res := Result{Notifier: n.Name(), Node: node.Name}

	for attempt := 1; ; attempt++ {
		res.Attempts = attempt

		err := r.attempt(ctx, n, node)
		r.metrics.RecordNotifyAttempt(res.Notifier, err == nil)
		if err == nil {
			res.Delivered = true
			r.metrics.RecordNotifyResult(res.Notifier, attempt, true)

			return res
		}

		if attempt > r.policy.MaxRetries {
			r.logger.Error("notification failed after retries",
				"notifier", res.Notifier,
				"node", node.Name,
				"attempts", attempt,
				"error", err,
			)
			res.Err = fmt.Errorf("%w: %w", types.ErrRetriesExhausted, err)
			r.metrics.RecordNotifyResult(res.Notifier, attempt, false)

			return res
		}

		r.logger.Warn("notification failed, retrying",
			"notifier", res.Notifier,
			"node", node.Name,
			"attempt", attempt,
			"error", err,
		)

		if werr := r.wait(ctx); werr != nil {
			r.logger.Error("notification aborted",
				"notifier", res.Notifier,
				"node", node.Name,
				"attempts", attempt,
				"error", werr,
			)
			res.Err = werr
			r.metrics.RecordNotifyResult(res.Notifier, attempt, false)

			return res
		}
	}
}

// attempt runs a single Notify call, converting panics into errors.
func (r *Retrier) attempt(ctx context.Context, n types.Notifier, node types.NodeSnapshot) (err error) {
	if r.policy.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.policy.AttemptTimeout)
		defer cancel()
	}

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: panic: %v", types.ErrNotifierFailed, rec)
		}
	}()

	return n.Notify(ctx, node)
}

func (r *Retrier) wait(ctx context.Context) error {
	d := r.policy.Delay
	if r.policy.Jitter > 0 {
		d += rand.N(r.policy.Jitter) //nolint:gosec // jitter does not need crypto randomness
	}
	if d <= 0 {
		return ctx.Err()
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-r.clock.After(d):
		return nil
	}
}
