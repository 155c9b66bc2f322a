package types

// MetricsCollector defines methods for recording operational metrics.
//
// Implementations should be non-blocking and handle failures gracefully.
// All methods are called from internal goroutines and must be thread-safe.
//
// This interface composes smaller, domain-focused interfaces for better modularity.
type MetricsCollector interface {
	TrackerMetrics
	NotifierMetrics
	EmitterMetrics
	HeartbeatMetrics
}

// TrackerMetrics defines metrics for the node registry and timeout scans.
type TrackerMetrics interface {
	// RecordStateTransition records a node state transition.
	RecordStateTransition(from, to State)

	// RecordScanDuration records the time taken by one timeout scan.
	//
	// Parameters:
	//   - duration: Time taken in seconds
	//   - expired: Number of due entries processed by the scan
	RecordScanDuration(duration float64, expired int)

	// RecordStaleEntries records priority entries discarded as outdated.
	RecordStaleEntries(count int)

	// RecordNodeCount sets the current number of nodes in a state (gauge metric).
	RecordNodeCount(state State, count int)
}

// NotifierMetrics defines metrics for failure alert delivery.
type NotifierMetrics interface {
	// RecordNotifyAttempt records a single delivery attempt.
	//
	// Parameters:
	//   - notifier: Notifier name
	//   - success: true if the attempt delivered the alert
	RecordNotifyAttempt(notifier string, success bool)

	// RecordNotifyResult records the final outcome of a retried delivery.
	//
	// Parameters:
	//   - notifier: Notifier name
	//   - attempts: Number of attempts made
	//   - delivered: true if any attempt succeeded
	RecordNotifyResult(notifier string, attempts int, delivered bool)
}

// EmitterMetrics defines metrics for the periodic emitter loop.
type EmitterMetrics interface {
	// RecordCycleDuration records the duration of one emitter cycle in seconds.
	RecordCycleDuration(duration float64)

	// RecordBatchesInFlight sets the number of batches being refreshed concurrently.
	RecordBatchesInFlight(count int)

	// RecordRefreshed records the number of nodes refreshed in one cycle.
	RecordRefreshed(count int)

	// RecordProbeError records a failed liveness probe.
	RecordProbeError()
}

// HeartbeatMetrics defines metrics for heartbeat publishing.
//
// These metrics are recorded by agents publishing their own heartbeats,
// not by the detector scanning for timeouts.
type HeartbeatMetrics interface {
	// RecordHeartbeat records a heartbeat publish event.
	//
	// Parameters:
	//   - node: The name of the node publishing the heartbeat
	//   - success: true if heartbeat was successfully published, false otherwise
	RecordHeartbeat(node string, success bool)
}
