// Package kvutil opens the NATS JetStream KeyValue buckets used for heartbeats.
package kvutil

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// DefaultAttempts is used when EnsureBucket is given a non-positive attempt count.
const DefaultAttempts = 3

// EnsureBucket creates a KV bucket or opens it if another process created it first.
//
// Agents and the detector may start together and race on the bucket, so a
// failed attempt is retried with a doubling backoff starting at 10ms.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - js: JetStream context
//   - cfg: Bucket configuration; only Bucket is used when opening an existing one
//   - attempts: Maximum number of attempts (DefaultAttempts when <= 0)
//
// Returns:
//   - jetstream.KeyValue: The bucket handle
//   - error: The last failure, wrapped with the bucket name
//
// Example:
//
//	kv, err := kvutil.EnsureBucket(ctx, js, jetstream.KeyValueConfig{
//	    Bucket: "pulse-heartbeat",
//	    TTL:    30 * time.Second,
//	}, 3)
func EnsureBucket(ctx context.Context, js jetstream.JetStream, cfg jetstream.KeyValueConfig, attempts int) (jetstream.KeyValue, error) {
	if attempts <= 0 {
		attempts = DefaultAttempts
	}

	var lastErr error
	backoff := 10 * time.Millisecond

	for attempt := range attempts {
		kv, err := js.CreateKeyValue(ctx, cfg)
		if err == nil {
			return kv, nil
		}

		lastErr = err
		if errors.Is(err, jetstream.ErrBucketExists) {
			kv, err = js.KeyValue(ctx, cfg.Bucket)
			if err == nil {
				return kv, nil
			}
			lastErr = fmt.Errorf("bucket exists but failed to open: %w", err)
		}

		if attempt == attempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("gave up on KV bucket %s: %w", cfg.Bucket, ctx.Err())
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	return nil, fmt.Errorf("failed to create or open KV bucket %s after %d attempts: %w", cfg.Bucket, attempts, lastErr)
}
