package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/arloliu/pulse/internal/logging"
	"github.com/arloliu/pulse/probe"
)

type agentOptions struct {
	node     string
	url      string
	bucket   string
	prefix   string
	interval time.Duration
	maxAge   time.Duration
	logLevel string
}

func agentCmd() *cobra.Command {
	opts := &agentOptions{}

	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Publish heartbeats for a node",
		Long:  "Publish periodic heartbeats for one node to the NATS KV bucket watched by the detector's probe.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.node == "" {
				return errors.New("--node is required")
			}
			if opts.interval <= 0 {
				return fmt.Errorf("--interval must be > 0, got %v", opts.interval)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return runAgent(ctx, opts)
		},
	}

	cmd.Flags().StringVar(&opts.node, "node", "", "Node name, as registered with the detector")
	cmd.Flags().StringVar(&opts.url, "url", nats.DefaultURL, "NATS server URL")
	cmd.Flags().StringVar(&opts.bucket, "bucket", "pulse-heartbeat", "Heartbeat KV bucket")
	cmd.Flags().StringVar(&opts.prefix, "prefix", "hb", "Heartbeat key prefix")
	cmd.Flags().DurationVar(&opts.interval, "interval", 2*time.Second, "Heartbeat interval")
	cmd.Flags().DurationVar(&opts.maxAge, "max-age", 10*time.Second, "Detector probe max age, used for the bucket TTL when creating it")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	return cmd
}

func runAgent(ctx context.Context, opts *agentOptions) error {
	zl, err := newZapLogger(opts.logLevel)
	if err != nil {
		return err
	}
	defer func() { _ = zl.Sync() }()

	logger := logging.NewZap(zl)

	nc, err := connectNATS(opts.url, "pulsed-agent-"+opts.node, logger)
	if err != nil {
		return err
	}
	defer nc.Close()

	kv, err := heartbeatBucket(ctx, nc, opts.bucket, opts.maxAge)
	if err != nil {
		return err
	}

	publisher := probe.NewPublisher(kv, opts.prefix, opts.node, opts.interval, probe.PublisherOptions{Logger: logger})
	if err := publisher.Start(ctx); err != nil {
		return err
	}
	logger.Info("publishing heartbeats", "node", opts.node, "key", publisher.Key(), "interval", opts.interval)

	<-ctx.Done()

	return publisher.Stop()
}
