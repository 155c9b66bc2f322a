package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/arloliu/pulse"
	"github.com/arloliu/pulse/internal/kvutil"
	"github.com/arloliu/pulse/notify"
	"github.com/arloliu/pulse/probe"
	"github.com/arloliu/pulse/types"
)

// resources collects everything the daemon must release on exit.
type resources struct {
	closers []func() error
}

func (r *resources) add(fn func() error) {
	r.closers = append(r.closers, fn)
}

// Close releases resources in reverse order of acquisition.
func (r *resources) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil

	return errors.Join(errs...)
}

func connectNATS(url, name string, logger types.Logger) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", "url", url, "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("NATS reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}

	return nc, nil
}

// buildNotifiers creates the enabled alert sinks in the order nats, webhook, journal.
func buildNotifiers(cfg pulse.Config, logger types.Logger, res *resources) ([]pulse.Notifier, error) {
	var notifiers []pulse.Notifier

	if cfg.Sinks.NATS.Enabled {
		nc, err := connectNATS(cfg.Sinks.NATS.URL, "pulsed-alerts", logger)
		if err != nil {
			return nil, err
		}
		res.add(func() error {
			nc.Close()
			return nil
		})
		notifiers = append(notifiers, notify.NewNATSNotifier(nc, cfg.Sinks.NATS.Subject))
	}

	if cfg.Sinks.Webhook.Enabled {
		notifiers = append(notifiers, notify.NewWebhookNotifier(cfg.Sinks.Webhook.URL, cfg.Sinks.Webhook.Timeout))
	}

	if cfg.Sinks.Journal.Enabled {
		journal, err := notify.OpenJournal(cfg.Sinks.Journal.Dir)
		if err != nil {
			return nil, err
		}
		res.add(journal.Close)
		notifiers = append(notifiers, journal)
	}

	return notifiers, nil
}

// heartbeatBucket opens the heartbeat bucket, creating it when missing.
//
// Keys of dead agents expire after three times maxAge.
func heartbeatBucket(ctx context.Context, nc *nats.Conn, bucket string, maxAge time.Duration) (jetstream.KeyValue, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("failed to create jetstream context: %w", err)
	}

	return kvutil.EnsureBucket(ctx, js, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "pulse node heartbeats",
		History:     1,
		TTL:         3 * maxAge,
		Storage:     jetstream.FileStorage,
	}, kvutil.DefaultAttempts)
}

// buildProber connects the KV prober when the probe is enabled.
func buildProber(ctx context.Context, cfg pulse.Config, logger types.Logger, res *resources) (*probe.KVProber, error) {
	if !cfg.Probe.Enabled {
		return nil, nil //nolint:nilnil // no prober configured
	}

	nc, err := connectNATS(cfg.Probe.URL, "pulsed-probe", logger)
	if err != nil {
		return nil, err
	}
	res.add(func() error {
		nc.Close()
		return nil
	})

	kv, err := heartbeatBucket(ctx, nc, cfg.Probe.Bucket, cfg.Probe.MaxAge)
	if err != nil {
		return nil, err
	}

	return probe.NewKVProber(kv, cfg.Probe.Prefix, cfg.Probe.MaxAge, nil), nil
}

// nodeRegistrar is the part of the Detector used by discoverNodes.
type nodeRegistrar interface {
	RegisterNode(name string) (pulse.NodeSnapshot, error)
}

// discoverNodes registers nodes that publish heartbeats but are not tracked yet.
//
// Returns:
//   - []string: Newly registered node names
//   - error: Failure listing the heartbeat bucket
func discoverNodes(ctx context.Context, d nodeRegistrar, prober *probe.KVProber, logger types.Logger) ([]string, error) {
	names, err := prober.ActiveNodes(ctx)
	if err != nil {
		return nil, err
	}

	var added []string
	for _, name := range names {
		if _, err := d.RegisterNode(name); err != nil {
			if errors.Is(err, pulse.ErrNodeExists) {
				continue
			}

			return added, fmt.Errorf("failed to register discovered node %s: %w", name, err)
		}
		added = append(added, name)
	}
	if len(added) > 0 {
		logger.Info("registered nodes discovered from heartbeats", "nodes", added)
	}

	return added, nil
}
