package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/arloliu/pulse/types"
)

// WebhookNotifier POSTs alerts as JSON to an HTTP endpoint.
//
// The body carries the alert text under "text", which chat webhooks such as
// Slack render directly. Any transport error or non-2xx status is a delivery
// failure.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

var _ types.Notifier = (*WebhookNotifier)(nil)

// NewWebhookNotifier creates a webhook notifier.
//
// Parameters:
//   - url: Endpoint receiving the POST
//   - timeout: HTTP client timeout (10s if <= 0)
func NewWebhookNotifier(url string, timeout time.Duration) *WebhookNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &WebhookNotifier{url: url, client: &http.Client{Timeout: timeout}}
}

// Name returns "webhook".
func (w *WebhookNotifier) Name() string {
	return "webhook"
}

// Notify posts the alert for node.
func (w *WebhookNotifier) Notify(ctx context.Context, node types.NodeSnapshot) error {
	body, err := json.Marshal(NewAlert(node, time.Now()))
	if err != nil {
		return fmt.Errorf("failed to encode alert: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: webhook returned status %d", types.ErrNotifierFailed, resp.StatusCode)
	}

	return nil
}
