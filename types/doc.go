// Package types provides core type definitions and interfaces for the Pulse library.
//
// This package contains shared types that are used across multiple packages in the
// Pulse library. By keeping these types in a separate package, we avoid import cycles
// between the main pulse package and its internal implementations.
//
// Key types:
//   - State: Node liveness state (active, inactive, failed)
//   - Event: Liveness event fired against the state machine
//   - NodeSnapshot: Read-only view of a tracked node
//   - Notifier: Failure alert sink contract
//   - Prober: Heartbeat source contract
//   - Logger: Structured logging interface
//   - MetricsCollector: Metrics recording interface
package types
