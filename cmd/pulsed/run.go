package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/arloliu/pulse"
	"github.com/arloliu/pulse/internal/logging"
	"github.com/arloliu/pulse/internal/metrics"
	"github.com/arloliu/pulse/types"
)

const shutdownTimeout = 10 * time.Second

type runOptions struct {
	configPath  string
	logLevel    string
	metricsAddr string
}

func runCmd() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the failure detector",
		Long:  "Load the configuration, register the configured nodes and run the heartbeat/scan loop until SIGINT or SIGTERM.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return runDetector(ctx, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to the YAML configuration file")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (overrides metrics.addr)")

	return cmd
}

// loadRunConfig reads the config file, or uses defaults when no path is given.
func loadRunConfig(opts *runOptions) (pulse.Config, error) {
	if opts.configPath == "" {
		cfg := pulse.DefaultConfig()
		pulse.SetDefaults(&cfg)

		return cfg, nil
	}

	return pulse.LoadConfig(opts.configPath)
}

func runDetector(ctx context.Context, opts *runOptions) error {
	cfg, err := loadRunConfig(opts)
	if err != nil {
		return err
	}
	if opts.metricsAddr != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Addr = opts.metricsAddr
	}

	zl, err := newZapLogger(opts.logLevel)
	if err != nil {
		return err
	}
	defer func() { _ = zl.Sync() }()

	logger := logging.NewZap(zl)

	res := &resources{}
	defer func() {
		if err := res.Close(); err != nil {
			logger.Warn("failed to release resources", "error", err)
		}
	}()

	var collector types.MetricsCollector = metrics.NewNop()
	reg := prometheus.NewRegistry()
	if cfg.Metrics.Enabled {
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		collector = metrics.NewPrometheus(reg, "pulse")
	}

	notifiers, err := buildNotifiers(cfg, logger, res)
	if err != nil {
		return err
	}

	prober, err := buildProber(ctx, cfg, logger, res)
	if err != nil {
		return err
	}

	var detector *pulse.Detector
	detectorOpts := []pulse.Option{
		pulse.WithLogger(logger),
		pulse.WithMetrics(collector),
		pulse.WithNotifiers(notifiers...),
		pulse.WithHooks(daemonHooks(logger, func() map[string]string { return detector.TakeoverPlan() })),
	}
	if prober != nil {
		detectorOpts = append(detectorOpts, pulse.WithProber(prober))
	}

	detector, err = pulse.NewDetector(&cfg, detectorOpts...)
	if err != nil {
		return err
	}

	if prober != nil && cfg.Probe.Discover {
		if _, err := discoverNodes(ctx, detector, prober, logger); err != nil {
			return err
		}
	}

	if cfg.Metrics.Enabled {
		server := newMetricsServer(cfg.Metrics.Addr, reg, logger)
		go func() {
			if err := server.Run(ctx); err != nil {
				logger.Error("metrics server failed", "error", err)
			}
		}()
	}

	if err := detector.Start(ctx); err != nil {
		return fmt.Errorf("failed to start detector: %w", err)
	}

	<-ctx.Done()
	logger.Info("shutting down", "reason", context.Cause(ctx))

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return detector.Stop(stopCtx)
}

// daemonHooks logs failures and reassignment requests along with a suggested takeover plan.
func daemonHooks(logger types.Logger, plan func() map[string]string) *pulse.Hooks {
	return &pulse.Hooks{
		OnFailure: func(_ context.Context, node pulse.NodeSnapshot) error {
			logger.Error("node declared failed",
				"node", node.Name,
				"lastHeartbeat", node.LastHeartbeat,
				"retries", node.Retries,
			)

			return nil
		},
		OnReassign: func(_ context.Context, failed []pulse.NodeSnapshot) error {
			names := make([]string, len(failed))
			for i, n := range failed {
				names[i] = n.Name
			}
			logger.Warn("work of failed nodes needs reassignment", "nodes", names, "takeover", plan())

			return nil
		},
	}
}
