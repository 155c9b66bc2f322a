package metrics

import "github.com/arloliu/pulse/types"

// NopMetrics implements a no-op metrics collector.
//
// All metrics are discarded. Useful for testing or when external
// metrics collection is used.
type NopMetrics struct{}

// Compile-time assertion that NopMetrics implements MetricsCollector.
var _ types.MetricsCollector = (*NopMetrics)(nil)

// NewNop creates a new no-op metrics collector.
//
// Returns:
//   - *NopMetrics: A new no-op metrics collector instance
//
// Example:
//
//	metrics := metrics.NewNop()
//	det, _ := pulse.NewDetector(&cfg, pulse.WithMetrics(metrics))
func NewNop() *NopMetrics {
	return &NopMetrics{}
}

// TrackerMetrics implementation

// RecordStateTransition discards the state transition metric.
func (n *NopMetrics) RecordStateTransition(_ /* from */, _ /* to */ types.State) {
	// No-op
}

// RecordScanDuration discards the scan duration metric.
func (n *NopMetrics) RecordScanDuration(_ /* duration */ float64, _ /* expired */ int) {
	// No-op
}

// RecordStaleEntries discards the stale entry metric.
func (n *NopMetrics) RecordStaleEntries(_ /* count */ int) {
	// No-op
}

// RecordNodeCount discards the node count metric.
func (n *NopMetrics) RecordNodeCount(_ /* state */ types.State, _ /* count */ int) {
	// No-op
}

// NotifierMetrics implementation

// RecordNotifyAttempt discards the delivery attempt metric.
func (n *NopMetrics) RecordNotifyAttempt(_ /* notifier */ string, _ /* success */ bool) {
	// No-op
}

// RecordNotifyResult discards the delivery outcome metric.
func (n *NopMetrics) RecordNotifyResult(_ /* notifier */ string, _ /* attempts */ int, _ /* delivered */ bool) {
	// No-op
}

// EmitterMetrics implementation

// RecordCycleDuration discards the cycle duration metric.
func (n *NopMetrics) RecordCycleDuration(_ /* duration */ float64) {
	// No-op
}

// RecordBatchesInFlight discards the in-flight batch metric.
func (n *NopMetrics) RecordBatchesInFlight(_ /* count */ int) {
	// No-op
}

// RecordRefreshed discards the refreshed node metric.
func (n *NopMetrics) RecordRefreshed(_ /* count */ int) {
	// No-op
}

// RecordProbeError discards the probe error metric.
func (n *NopMetrics) RecordProbeError() {
	// No-op
}

// HeartbeatMetrics implementation

// RecordHeartbeat discards the heartbeat metric.
func (n *NopMetrics) RecordHeartbeat(_ /* node */ string, _ /* success */ bool) {
	// No-op
}
