// Package notify delivers failure alerts to external sinks.
//
// A Retrier wraps any types.Notifier with a bounded retry loop: after a failed
// attempt it logs a warning, waits the configured delay and tries again, up to
// MaxRetries extra attempts. When every attempt fails it logs one error and
// returns. Failures never propagate to the caller as panics or aborted scans.
//
// A Dispatcher fans a failure out to every registered notifier in turn.
//
// Reference sinks:
//   - NATSNotifier: publishes a JSON Alert on a NATS subject
//   - WebhookNotifier: POSTs a JSON Alert to an HTTP endpoint
//   - JournalNotifier: appends the Alert to an embedded badger store
package notify
