// Package testing provides test utilities for the Pulse library.
//
// This package offers helpers for setting up test environments, particularly
// embedded NATS servers for integration testing of the NATS notifier and the
// KV heartbeat probe. It follows Go's convention of providing testing
// utilities in a dedicated package (similar to net/http/httptest).
//
// Key utilities:
//   - StartEmbeddedNATS: Single NATS server with JetStream
//   - CreateJetStreamKV: Convenience wrapper for KV bucket creation
//   - NewTestLogger: Logger writing to t.Logf
//   - NewRecordingLogger: Logger capturing entries for assertions
//
// Example usage:
//
//	import (
//	    "testing"
//	    pulsetest "github.com/arloliu/pulse/testing"
//	)
//
//	func TestMyComponent(t *testing.T) {
//	    _, nc := pulsetest.StartEmbeddedNATS(t)
//	    // Use nc for your tests
//	}
package testing
