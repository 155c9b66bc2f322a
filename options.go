package pulse

import "github.com/jonboulle/clockwork"

// Option configures a Detector with optional dependencies.
type Option func(*detectorOptions)

// detectorOptions holds optional Detector configuration.
type detectorOptions struct {
	hooks     *Hooks
	metrics   MetricsCollector
	logger    Logger
	notifiers []Notifier
	prober    Prober
	clock     clockwork.Clock
}

// WithHooks sets lifecycle event hooks.
//
// Parameters:
//   - hooks: Hooks structure with callback functions
//
// Returns:
//   - Option: Functional option for NewDetector
//
// Example:
//
//	hooks := &pulse.Hooks{
//	    OnFailure: func(ctx context.Context, node pulse.NodeSnapshot) error {
//	        return pager.Page(ctx, node.Name)
//	    },
//	}
//	d, err := pulse.NewDetector(&cfg, pulse.WithHooks(hooks))
func WithHooks(hooks *Hooks) Option {
	return func(o *detectorOptions) {
		o.hooks = hooks
	}
}

// WithMetrics sets a metrics collector.
//
// Parameters:
//   - metrics: MetricsCollector implementation
//
// Returns:
//   - Option: Functional option for NewDetector
func WithMetrics(metrics MetricsCollector) Option {
	return func(o *detectorOptions) {
		o.metrics = metrics
	}
}

// WithLogger sets a logger.
//
// Parameters:
//   - logger: Logger implementation (compatible with zap.SugaredLogger)
//
// Returns:
//   - Option: Functional option for NewDetector
//
// Example:
//
//	logger := zap.NewExample().Sugar()
//	d, err := pulse.NewDetector(&cfg, pulse.WithLogger(logger))
func WithLogger(logger Logger) Option {
	return func(o *detectorOptions) {
		o.logger = logger
	}
}

// WithNotifiers appends alert sinks. Notifiers are invoked in the order given.
//
// Example:
//
//	webhook := notify.NewWebhookNotifier("https://ops.example.com/hook", 5*time.Second)
//	d, err := pulse.NewDetector(&cfg, pulse.WithNotifiers(webhook))
func WithNotifiers(notifiers ...Notifier) Option {
	return func(o *detectorOptions) {
		o.notifiers = append(o.notifiers, notifiers...)
	}
}

// WithProber sets the heartbeat source consulted during the refresh phase.
func WithProber(prober Prober) Option {
	return func(o *detectorOptions) {
		o.prober = prober
	}
}

// WithClock replaces the real clock, mainly for tests.
func WithClock(clock clockwork.Clock) Option {
	return func(o *detectorOptions) {
		o.clock = clock
	}
}
