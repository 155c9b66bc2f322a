package pulse

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/nats-io/nats.go"
	"gopkg.in/yaml.v3"

	"github.com/arloliu/pulse/internal/emitter"
	"github.com/arloliu/pulse/notify"
)

// Refresh modes accepted by Config.Mode.
const (
	ModeAuto       = string(emitter.ModeAuto)
	ModeSequential = string(emitter.ModeSequential)
	ModeBatched    = string(emitter.ModeBatched)
)

// BatchingConfig maps population-size bands to refresh batch sizes.
//
// Populations below SmallPopulation use SmallBatch, populations below
// MediumPopulation use MediumBatch, everything else uses LargeBatch.
type BatchingConfig struct {
	SmallPopulation  int `yaml:"smallPopulation"`
	MediumPopulation int `yaml:"mediumPopulation"`
	SmallBatch       int `yaml:"smallBatch"`
	MediumBatch      int `yaml:"mediumBatch"`
	LargeBatch       int `yaml:"largeBatch"`
}

// NotifyConfig controls alert delivery retries.
type NotifyConfig struct {
	// MaxRetries is the number of retries after the first failed attempt.
	// Zero uses the default of 3.
	MaxRetries int `yaml:"maxRetries"`

	// RetryDelay is the wait between attempts.
	// Default: 5 seconds
	RetryDelay time.Duration `yaml:"retryDelay"`

	// Jitter adds a random delay in [0, Jitter) to every wait. Zero disables it.
	Jitter time.Duration `yaml:"jitter"`

	// AttemptTimeout bounds a single delivery attempt.
	// Default: 10 seconds
	AttemptTimeout time.Duration `yaml:"attemptTimeout"`
}

// NATSSinkConfig configures the NATS alert sink.
type NATSSinkConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// WebhookSinkConfig configures the HTTP webhook alert sink.
type WebhookSinkConfig struct {
	Enabled bool          `yaml:"enabled"`
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// JournalSinkConfig configures the badger alert journal.
type JournalSinkConfig struct {
	Enabled bool `yaml:"enabled"`

	// Dir is the badger directory. Empty keeps the journal in memory.
	Dir string `yaml:"dir"`
}

// SinksConfig groups the built-in alert sinks.
type SinksConfig struct {
	NATS    NATSSinkConfig    `yaml:"nats"`
	Webhook WebhookSinkConfig `yaml:"webhook"`
	Journal JournalSinkConfig `yaml:"journal"`
}

// ProbeConfig configures the NATS KV heartbeat probe.
type ProbeConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Bucket  string `yaml:"bucket"`
	Prefix  string `yaml:"prefix"`

	// MaxAge is the oldest heartbeat still considered alive.
	// Default: the detector Timeout
	MaxAge time.Duration `yaml:"maxAge"`

	// Discover registers, at startup, every node that already publishes
	// heartbeats in the bucket but is missing from Nodes.
	Discover bool `yaml:"discover"`
}

// MetricsConfig configures the Prometheus endpoint of the daemon.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Config is the configuration for the Detector.
//
// All duration fields accept standard Go duration strings like "30s", "5m", "1h".
type Config struct {
	// Timeout is the heartbeat age after which a node is considered timed out.
	// It is also the wait between the refresh and the scan phase of a cycle.
	// Default: 10 seconds
	Timeout time.Duration `yaml:"timeout"`

	// MaxRetries is the number of timeout detections that fail a node.
	// Default: 3
	MaxRetries int `yaml:"maxRetries"`

	// MaxWorkers bounds the number of batches refreshed concurrently.
	// Default: 8
	MaxWorkers int `yaml:"maxWorkers"`

	// Mode selects the refresh strategy: "auto", "sequential" or "batched".
	// Default: "auto"
	Mode string `yaml:"mode"`

	// Batching maps population sizes to batch sizes.
	Batching BatchingConfig `yaml:"batching"`

	// Notify controls alert delivery retries.
	Notify NotifyConfig `yaml:"notify"`

	// Sinks configures the built-in alert sinks used by the daemon.
	Sinks SinksConfig `yaml:"sinks"`

	// Probe configures the optional NATS KV heartbeat source.
	Probe ProbeConfig `yaml:"probe"`

	// Nodes are registered when the detector is created.
	Nodes []string `yaml:"nodes"`

	// Metrics configures the daemon's /metrics endpoint.
	Metrics MetricsConfig `yaml:"metrics"`
}

// DefaultConfig returns a Config with sensible defaults.
//
// Returns:
//   - Config: Configuration with default values
func DefaultConfig() Config {
	return Config{
		Timeout:    10 * time.Second,
		MaxRetries: 3,
		MaxWorkers: emitter.DefaultMaxWorkers,
		Mode:       ModeAuto,
		Batching: BatchingConfig{
			SmallPopulation:  emitter.DefaultSmallPopulation,
			MediumPopulation: emitter.DefaultMediumPopulation,
			SmallBatch:       emitter.DefaultSmallBatch,
			MediumBatch:      emitter.DefaultMediumBatch,
			LargeBatch:       emitter.DefaultLargeBatch,
		},
		Notify: NotifyConfig{
			MaxRetries:     notify.DefaultMaxRetries,
			RetryDelay:     notify.DefaultRetryDelay,
			AttemptTimeout: notify.DefaultAttemptTimeout,
		},
		Sinks: SinksConfig{
			NATS: NATSSinkConfig{
				URL:     nats.DefaultURL,
				Subject: notify.DefaultSubject,
			},
			Webhook: WebhookSinkConfig{
				Timeout: 5 * time.Second,
			},
		},
		Probe: ProbeConfig{
			URL:    nats.DefaultURL,
			Bucket: "pulse-heartbeat",
			Prefix: "hb",
		},
		Metrics: MetricsConfig{
			Addr: ":9090",
		},
	}
}

// SetDefaults fills in missing configuration values with production defaults.
//
// Parameters:
//   - cfg: Config to apply defaults to (modified in place)
func SetDefaults(cfg *Config) {
	defaults := DefaultConfig()

	if cfg.Timeout == 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaults.MaxRetries
	}
	if cfg.MaxWorkers == 0 {
		cfg.MaxWorkers = defaults.MaxWorkers
	}
	if cfg.Mode == "" {
		cfg.Mode = defaults.Mode
	}
	if cfg.Batching.SmallPopulation == 0 {
		cfg.Batching.SmallPopulation = defaults.Batching.SmallPopulation
	}
	if cfg.Batching.MediumPopulation == 0 {
		cfg.Batching.MediumPopulation = defaults.Batching.MediumPopulation
	}
	if cfg.Batching.SmallBatch == 0 {
		cfg.Batching.SmallBatch = defaults.Batching.SmallBatch
	}
	if cfg.Batching.MediumBatch == 0 {
		cfg.Batching.MediumBatch = defaults.Batching.MediumBatch
	}
	if cfg.Batching.LargeBatch == 0 {
		cfg.Batching.LargeBatch = defaults.Batching.LargeBatch
	}
	if cfg.Notify.MaxRetries == 0 {
		cfg.Notify.MaxRetries = defaults.Notify.MaxRetries
	}
	if cfg.Notify.RetryDelay == 0 {
		cfg.Notify.RetryDelay = defaults.Notify.RetryDelay
	}
	if cfg.Notify.AttemptTimeout == 0 {
		cfg.Notify.AttemptTimeout = defaults.Notify.AttemptTimeout
	}
	// Note: Jitter of 0 is valid (no jitter), so we don't apply default
	if cfg.Sinks.NATS.URL == "" {
		cfg.Sinks.NATS.URL = defaults.Sinks.NATS.URL
	}
	if cfg.Sinks.NATS.Subject == "" {
		cfg.Sinks.NATS.Subject = defaults.Sinks.NATS.Subject
	}
	if cfg.Sinks.Webhook.Timeout == 0 {
		cfg.Sinks.Webhook.Timeout = defaults.Sinks.Webhook.Timeout
	}
	if cfg.Probe.URL == "" {
		cfg.Probe.URL = defaults.Probe.URL
	}
	if cfg.Probe.Bucket == "" {
		cfg.Probe.Bucket = defaults.Probe.Bucket
	}
	if cfg.Probe.Prefix == "" {
		cfg.Probe.Prefix = defaults.Probe.Prefix
	}
	if cfg.Probe.MaxAge == 0 {
		cfg.Probe.MaxAge = cfg.Timeout
	}
	if cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = defaults.Metrics.Addr
	}
}

// Validate checks configuration constraints and returns error for invalid values.
//
// Hard Validation Rules:
//   - Timeout > 0
//   - MaxRetries >= 1 and MaxWorkers >= 1
//   - Mode is auto, sequential or batched
//   - Batch sizes > 0 and SmallPopulation < MediumPopulation
//   - Notify retries and delays are not negative
//   - Enabled sinks and the enabled probe have an address
//
// Returns:
//   - error: Validation error with clear explanation, nil if valid
func (cfg *Config) Validate() error {
	if cfg.Timeout <= 0 {
		return fmt.Errorf("Timeout must be > 0, got %v", cfg.Timeout)
	}

	if cfg.MaxRetries < 1 {
		return fmt.Errorf("MaxRetries must be >= 1, got %d", cfg.MaxRetries)
	}

	if cfg.MaxWorkers < 1 {
		return fmt.Errorf("MaxWorkers must be >= 1, got %d", cfg.MaxWorkers)
	}

	switch cfg.Mode {
	case ModeAuto, ModeSequential, ModeBatched:
	default:
		return fmt.Errorf("Mode must be one of %q, %q or %q, got %q", ModeAuto, ModeSequential, ModeBatched, cfg.Mode)
	}

	b := cfg.Batching
	if b.SmallBatch <= 0 || b.MediumBatch <= 0 || b.LargeBatch <= 0 {
		return fmt.Errorf("batch sizes must be > 0, got %d/%d/%d", b.SmallBatch, b.MediumBatch, b.LargeBatch)
	}
	if b.SmallPopulation <= 0 || b.SmallPopulation >= b.MediumPopulation {
		return fmt.Errorf(
			"SmallPopulation (%d) must be > 0 and < MediumPopulation (%d)",
			b.SmallPopulation, b.MediumPopulation,
		)
	}

	if cfg.Notify.MaxRetries < 0 {
		return fmt.Errorf("Notify.MaxRetries must be >= 0, got %d", cfg.Notify.MaxRetries)
	}
	if cfg.Notify.RetryDelay < 0 || cfg.Notify.Jitter < 0 || cfg.Notify.AttemptTimeout < 0 {
		return errors.New("Notify durations must not be negative")
	}

	if cfg.Sinks.NATS.Enabled && (cfg.Sinks.NATS.URL == "" || cfg.Sinks.NATS.Subject == "") {
		return errors.New("NATS sink requires url and subject")
	}
	if cfg.Sinks.Webhook.Enabled && cfg.Sinks.Webhook.URL == "" {
		return errors.New("webhook sink requires url")
	}
	if cfg.Probe.Enabled && (cfg.Probe.URL == "" || cfg.Probe.Bucket == "") {
		return errors.New("probe requires url and bucket")
	}

	return nil
}

// ValidateWithWarnings checks configuration and logs warnings for non-recommended values.
//
// This is called after Validate() in NewDetector() to provide operator guidance.
//
// Parameters:
//   - logger: Logger instance for warning output
func (cfg *Config) ValidateWithWarnings(logger Logger) {
	if cfg.Timeout < time.Second {
		logger.Warn(
			"Timeout is very short, nodes may flap between active and inactive",
			"timeout", cfg.Timeout,
			"recommended", "1s or higher",
		)
	}

	if cfg.Probe.Enabled && cfg.Probe.MaxAge > cfg.Timeout {
		logger.Warn(
			"probe MaxAge exceeds Timeout, dead nodes are detected late",
			"maxAge", cfg.Probe.MaxAge,
			"timeout", cfg.Timeout,
		)
	}
}

// TestConfig returns a configuration optimized for fast test execution.
//
// Returns:
//   - Config: Configuration with fast timings for tests
//
// Example:
//
//	cfg := pulse.TestConfig()
//	cfg.Nodes = []string{"node-1", "node-2"}
//	detector, err := pulse.NewDetector(&cfg)
func TestConfig() Config {
	cfg := DefaultConfig()

	// Fast timings for test execution
	cfg.Timeout = 100 * time.Millisecond
	cfg.Notify.RetryDelay = 5 * time.Millisecond
	cfg.Notify.AttemptTimeout = 500 * time.Millisecond
	cfg.Sinks.Webhook.Timeout = 500 * time.Millisecond
	cfg.Probe.MaxAge = cfg.Timeout

	return cfg
}

// LoadConfig reads a YAML configuration file and applies defaults.
//
// Parameters:
//   - path: Path to the YAML file
//
// Returns:
//   - Config: Parsed configuration with defaults applied
//   - error: Read, parse or validation error
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	SetDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	return cfg, nil
}
