package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/arloliu/pulse/types"
)

// PrometheusCollector implements types.MetricsCollector backed by Prometheus.
//
// Collectors are created and registered lazily on first use, so constructing
// a PrometheusCollector never panics on a shared registry.
type PrometheusCollector struct {
	*NopMetrics

	reg       prometheus.Registerer
	namespace string
	once      sync.Once

	transitions    *prometheus.CounterVec
	scanDuration   prometheus.Histogram
	scanExpired    prometheus.Histogram
	staleEntries   prometheus.Counter
	nodes          *prometheus.GaugeVec
	notifyAttempts *prometheus.CounterVec
	notifyResults  *prometheus.CounterVec
	notifyTries    *prometheus.HistogramVec
	cycleDuration  prometheus.Histogram
	batchesRunning prometheus.Gauge
	refreshed      prometheus.Counter
	probeErrors    prometheus.Counter
	heartbeats     *prometheus.CounterVec
}

// Compile-time assertion that PrometheusCollector implements MetricsCollector.
var _ types.MetricsCollector = (*PrometheusCollector)(nil)

// NewPrometheus creates a new Prometheus-backed metrics collector.
//
// Parameters:
//   - reg: Prometheus registerer interface (uses prometheus.DefaultRegisterer if nil)
//   - namespace: Prometheus metrics namespace (defaults to "pulse" if empty)
//
// Returns:
//   - *PrometheusCollector: A MetricsCollector implementation using Prometheus
func NewPrometheus(reg prometheus.Registerer, namespace string) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "pulse"
	}

	return &PrometheusCollector{NopMetrics: NewNop(), reg: reg, namespace: namespace}
}

func (p *PrometheusCollector) ensureRegistered() {
	p.once.Do(func() {
		p.transitions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "tracker",
			Name:      "state_transitions_total",
			Help:      "Total node state transitions by source and target state.",
		}, []string{"from", "to"})

		p.scanDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "tracker",
			Name:      "scan_duration_seconds",
			Help:      "Duration of timeout scans in seconds, including failure notification.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms .. ~4s
		})

		p.scanExpired = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "tracker",
			Name:      "scan_expired_entries",
			Help:      "Number of due priority entries processed per scan.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 9),
		})

		p.staleEntries = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "tracker",
			Name:      "stale_entries_total",
			Help:      "Priority entries discarded because a newer heartbeat superseded them.",
		})

		p.nodes = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "tracker",
			Name:      "nodes",
			Help:      "Current number of tracked nodes by state.",
		}, []string{"state"})

		p.notifyAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "notifier",
			Name:      "attempts_total",
			Help:      "Alert delivery attempts by notifier and result (success,failure).",
		}, []string{"notifier", "result"})

		p.notifyResults = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "notifier",
			Name:      "deliveries_total",
			Help:      "Final alert delivery outcomes by notifier and result (delivered,exhausted).",
		}, []string{"notifier", "result"})

		p.notifyTries = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "notifier",
			Name:      "attempts_per_delivery",
			Help:      "Number of attempts needed per alert delivery.",
			Buckets:   []float64{1, 2, 3, 4, 6, 8},
		}, []string{"notifier"})

		p.cycleDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "emitter",
			Name:      "cycle_duration_seconds",
			Help:      "Duration of a full emitter cycle (refresh, wait, scan) in seconds.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		})

		p.batchesRunning = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "emitter",
			Name:      "batches_in_flight",
			Help:      "Number of heartbeat refresh batches currently running.",
		})

		p.refreshed = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "emitter",
			Name:      "refreshed_nodes_total",
			Help:      "Total node heartbeats refreshed by the emitter.",
		})

		p.probeErrors = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "emitter",
			Name:      "probe_errors_total",
			Help:      "Total liveness probes that returned an error.",
		})

		p.heartbeats = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "heartbeat",
			Name:      "published_total",
			Help:      "Heartbeats published by result (success,failure).",
		}, []string{"result"})

		p.reg.MustRegister(
			p.transitions,
			p.scanDuration,
			p.scanExpired,
			p.staleEntries,
			p.nodes,
			p.notifyAttempts,
			p.notifyResults,
			p.notifyTries,
			p.cycleDuration,
			p.batchesRunning,
			p.refreshed,
			p.probeErrors,
			p.heartbeats,
		)
	})
}

// TrackerMetrics implementation

// RecordStateTransition increments the transition counter for from → to.
func (p *PrometheusCollector) RecordStateTransition(from, to types.State) {
	p.ensureRegistered()
	p.transitions.WithLabelValues(from.String(), to.String()).Inc()
}

// RecordScanDuration observes scan latency and the number of processed entries.
func (p *PrometheusCollector) RecordScanDuration(duration float64, expired int) {
	p.ensureRegistered()
	p.scanDuration.Observe(duration)
	p.scanExpired.Observe(float64(expired))
}

// RecordStaleEntries adds to the stale entry counter.
func (p *PrometheusCollector) RecordStaleEntries(count int) {
	if count <= 0 {
		return
	}
	p.ensureRegistered()
	p.staleEntries.Add(float64(count))
}

// RecordNodeCount sets the node gauge for state.
func (p *PrometheusCollector) RecordNodeCount(state types.State, count int) {
	p.ensureRegistered()
	p.nodes.WithLabelValues(state.String()).Set(float64(count))
}

// NotifierMetrics implementation

// RecordNotifyAttempt increments the attempt counter for notifier.
func (p *PrometheusCollector) RecordNotifyAttempt(notifier string, success bool) {
	p.ensureRegistered()
	p.notifyAttempts.WithLabelValues(notifier, resultLabel(success)).Inc()
}

// RecordNotifyResult records the final delivery outcome for notifier.
func (p *PrometheusCollector) RecordNotifyResult(notifier string, attempts int, delivered bool) {
	p.ensureRegistered()
	result := "delivered"
	if !delivered {
		result = "exhausted"
	}
	p.notifyResults.WithLabelValues(notifier, result).Inc()
	p.notifyTries.WithLabelValues(notifier).Observe(float64(attempts))
}

// EmitterMetrics implementation

// RecordCycleDuration observes the emitter cycle duration.
func (p *PrometheusCollector) RecordCycleDuration(duration float64) {
	p.ensureRegistered()
	p.cycleDuration.Observe(duration)
}

// RecordBatchesInFlight sets the in-flight batch gauge.
func (p *PrometheusCollector) RecordBatchesInFlight(count int) {
	p.ensureRegistered()
	p.batchesRunning.Set(float64(count))
}

// RecordRefreshed adds to the refreshed node counter.
func (p *PrometheusCollector) RecordRefreshed(count int) {
	p.ensureRegistered()
	p.refreshed.Add(float64(count))
}

// RecordProbeError increments the probe error counter.
func (p *PrometheusCollector) RecordProbeError() {
	p.ensureRegistered()
	p.probeErrors.Inc()
}

// HeartbeatMetrics implementation

// RecordHeartbeat increments the heartbeat counter.
//
// The node name is not used as a label.
func (p *PrometheusCollector) RecordHeartbeat(_ /* node */ string, success bool) {
	p.ensureRegistered()
	p.heartbeats.WithLabelValues(resultLabel(success)).Inc()
}

func resultLabel(success bool) string {
	if success {
		return "success"
	}

	return "failure"
}
