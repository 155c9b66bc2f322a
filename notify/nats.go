package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/arloliu/pulse/types"
)

// DefaultSubject is the subject alerts are published on when none is given.
const DefaultSubject = "pulse.alerts"

// NATSNotifier publishes alerts on a NATS subject.
//
// Each message carries the dedupe key in the Nats-Msg-Id header, which lets a
// JetStream stream bound to the subject drop duplicates caused by retries.
// Delivery is confirmed with a flush so that a broken connection surfaces as
// an error instead of a silently buffered message.
type NATSNotifier struct {
	nc           *nats.Conn
	subject      string
	flushTimeout time.Duration
}

var _ types.Notifier = (*NATSNotifier)(nil)

// NewNATSNotifier creates a NATS notifier.
//
// Parameters:
//   - nc: Connected NATS client
//   - subject: Subject to publish on (DefaultSubject if empty)
func NewNATSNotifier(nc *nats.Conn, subject string) *NATSNotifier {
	if subject == "" {
		subject = DefaultSubject
	}

	return &NATSNotifier{nc: nc, subject: subject, flushTimeout: 5 * time.Second}
}

// Name returns "nats".
func (n *NATSNotifier) Name() string {
	return "nats"
}

// Subject returns the subject alerts are published on.
func (n *NATSNotifier) Subject() string {
	return n.subject
}

// Notify publishes the alert for node.
func (n *NATSNotifier) Notify(ctx context.Context, node types.NodeSnapshot) error {
	alert := NewAlert(node, time.Now())
	data, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to encode alert: %w", err)
	}

	msg := nats.NewMsg(n.subject)
	msg.Header.Set(nats.MsgIdHdr, alert.Key)
	msg.Data = data

	if err := n.nc.PublishMsg(msg); err != nil {
		return fmt.Errorf("failed to publish alert for %s: %w", node.Name, err)
	}

	// FlushWithContext requires a deadline.
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.flushTimeout)
		defer cancel()
	}

	if err := n.nc.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("failed to flush alert for %s: %w", node.Name, err)
	}

	return nil
}
