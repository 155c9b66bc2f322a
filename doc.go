// Package pulse provides a heartbeat-based failure detector.
//
// Pulse tracks the liveness of a population of named nodes, detects heartbeat
// timeouts in oldest-first order, drives every node through a liveness state
// machine and alerts pluggable notification sinks with bounded retries when a
// node is declared failed.
//
// # Quick Start
//
//	cfg := pulse.DefaultConfig()
//	cfg.Timeout = 5 * time.Second
//	cfg.Nodes = []string{"node-1", "node-2"}
//
//	d, err := pulse.NewDetector(&cfg,
//	    pulse.WithLogger(logging.NewZap(zapLogger)),
//	    pulse.WithNotifiers(notify.NewWebhookNotifier(url, 5*time.Second)),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := d.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer d.Stop(context.Background())
//
// # Liveness States
//
// Nodes progress through three states:
//
//	active → inactive → failed
//
// A node whose heartbeat is older than Timeout is detected once per timeout
// interval. Each detection increments its retry counter; the detection that
// brings the counter to MaxRetries moves the node to failed. Any heartbeat
// moves the node back to active and resets the counter.
//
// # Failure Handling
//
// On every transition into failed the OnFailure hook runs first, then each
// registered Notifier is invoked in order. A notifier that returns an error is
// retried up to three times with a fixed delay; final failure is logged and
// never propagated to the scan.
//
// # Heartbeat Sources
//
// The detector refreshes heartbeats itself on every cycle. With a Prober
// configured (see the probe package) only nodes that the prober reports alive
// are refreshed, so silent nodes time out. Heartbeats can also be pushed
// directly with Detector.Heartbeat.
//
// See the examples/ directory for complete working examples.
package pulse
