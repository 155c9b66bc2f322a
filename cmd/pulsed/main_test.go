package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/pulse"
	"github.com/arloliu/pulse/notify"
	"github.com/arloliu/pulse/probe"
	pulsetest "github.com/arloliu/pulse/testing"
)

func TestVersionCmd(t *testing.T) {
	var out bytes.Buffer

	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"version"})

	require.NoError(t, root.Execute())
	require.Equal(t, "pulsed dev (none)\n", out.String())
}

func TestNewZapLogger(t *testing.T) {
	zl, err := newZapLogger("debug")
	require.NoError(t, err)
	require.NotNil(t, zl)

	_, err = newZapLogger("loud")
	require.Error(t, err)
}

func TestResources_CloseReverseOrder(t *testing.T) {
	var order []int
	res := &resources{}
	res.add(func() error { order = append(order, 1); return nil })
	res.add(func() error { order = append(order, 2); return errors.New("boom") })
	res.add(func() error { order = append(order, 3); return nil })

	err := res.Close()
	require.EqualError(t, err, "boom")
	require.Equal(t, []int{3, 2, 1}, order)
	require.NoError(t, res.Close())
}

func TestBuildNotifiers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	cfg := pulse.DefaultConfig()
	cfg.Sinks.Webhook.Enabled = true
	cfg.Sinks.Webhook.URL = srv.URL
	cfg.Sinks.Journal.Enabled = true

	res := &resources{}
	defer func() { require.NoError(t, res.Close()) }()

	notifiers, err := buildNotifiers(cfg, pulsetest.NewRecordingLogger(), res)
	require.NoError(t, err)
	require.Len(t, notifiers, 2)
	require.Equal(t, "webhook", notifiers[0].Name())
	require.Equal(t, "journal", notifiers[1].Name())

	node := pulse.NodeSnapshot{Name: "node-1", State: pulse.StateFailed, LastHeartbeat: time.Now(), Retries: 3}
	for _, n := range notifiers {
		require.NoError(t, n.Notify(t.Context(), node))
	}
}

func TestBuildNotifiers_NATS(t *testing.T) {
	ns, _ := pulsetest.StartEmbeddedNATS(t)

	cfg := pulse.DefaultConfig()
	cfg.Sinks.NATS.Enabled = true
	cfg.Sinks.NATS.URL = ns.ClientURL()

	res := &resources{}
	defer func() { require.NoError(t, res.Close()) }()

	notifiers, err := buildNotifiers(cfg, pulsetest.NewRecordingLogger(), res)
	require.NoError(t, err)
	require.Len(t, notifiers, 1)
	require.Equal(t, "nats", notifiers[0].Name())
}

func TestBuildProber(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		prober, err := buildProber(t.Context(), pulse.DefaultConfig(), pulsetest.NewRecordingLogger(), &resources{})
		require.NoError(t, err)
		require.Nil(t, prober)
	})

	t.Run("enabled", func(t *testing.T) {
		ns, _ := pulsetest.StartEmbeddedNATS(t)

		cfg := pulse.DefaultConfig()
		cfg.Probe.Enabled = true
		cfg.Probe.URL = ns.ClientURL()
		cfg.Probe.MaxAge = time.Second

		res := &resources{}
		defer func() { require.NoError(t, res.Close()) }()

		prober, err := buildProber(t.Context(), cfg, pulsetest.NewRecordingLogger(), res)
		require.NoError(t, err)
		require.NotNil(t, prober)

		alive, err := prober.Probe(t.Context(), "node-1")
		require.NoError(t, err)
		require.False(t, alive)
	})
}

func TestAlertsCmd(t *testing.T) {
	dir := t.TempDir()

	journal, err := notify.OpenJournal(dir)
	require.NoError(t, err)
	node := pulse.NodeSnapshot{Name: "node-7", State: pulse.StateFailed, LastHeartbeat: time.Now(), Retries: 3}
	require.NoError(t, journal.Notify(t.Context(), node))
	require.NoError(t, journal.Close())

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"alerts", "--dir", dir})

	require.NoError(t, root.Execute())
	require.Contains(t, out.String(), "NODE")
	require.Contains(t, out.String(), "node-7")
}

func TestAlertsCmd_RequiresDir(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"alerts"})

	require.Error(t, root.Execute())
}

func TestRunDetector(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pulse.yaml")
	require.NoError(t, os.WriteFile(path, []byte("timeout: 50ms\nnodes: [node-a, node-b]\n"), 0o600))

	ctx, cancel := context.WithTimeout(t.Context(), 300*time.Millisecond)
	defer cancel()

	err := runDetector(ctx, &runOptions{configPath: path, logLevel: "error"})
	require.NoError(t, err)
}

func TestRunDetector_InvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pulse.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mode: parallel\n"), 0o600))

	err := runDetector(t.Context(), &runOptions{configPath: path, logLevel: "error"})
	require.ErrorIs(t, err, pulse.ErrInvalidConfig)
}

func TestDaemonHooks(t *testing.T) {
	rec := pulsetest.NewRecordingLogger()
	hooks := daemonHooks(rec, func() map[string]string { return map[string]string{"node-x": "node-a"} })

	node := pulse.NodeSnapshot{Name: "node-x", State: pulse.StateFailed}
	require.NoError(t, hooks.OnFailure(t.Context(), node))
	require.NoError(t, hooks.OnReassign(t.Context(), []pulse.NodeSnapshot{node}))

	require.Equal(t, 1, rec.Count(pulsetest.LevelError, "node declared failed"))
	require.Equal(t, 1, rec.Count(pulsetest.LevelWarn, "work of failed nodes needs reassignment"))
}

func TestDiscoverNodes(t *testing.T) {
	ctx := t.Context()

	_, nc := pulsetest.StartEmbeddedNATS(t)
	kv := pulsetest.CreateJetStreamKV(t, nc, "test-discover")

	for _, name := range []string{"node-a", "node-c"} {
		p := probe.NewPublisher(kv, "hb", name, time.Hour, probe.PublisherOptions{})
		require.NoError(t, p.Start(ctx))
		defer func() { require.NoError(t, p.Stop()) }()
	}

	cfg := pulse.TestConfig()
	cfg.Nodes = []string{"node-a", "node-b"}
	d, err := pulse.NewDetector(&cfg)
	require.NoError(t, err)

	rec := pulsetest.NewRecordingLogger()
	added, err := discoverNodes(ctx, d, probe.NewKVProber(kv, "hb", time.Minute, nil), rec)
	require.NoError(t, err)
	require.Equal(t, []string{"node-c"}, added)
	require.Equal(t, 1, rec.Count(pulsetest.LevelInfo, "registered nodes discovered from heartbeats"))

	_, ok := d.Node("node-c")
	require.True(t, ok)
	require.Len(t, d.Nodes(), 3)

	added, err = discoverNodes(ctx, d, probe.NewKVProber(kv, "hb", time.Minute, nil), rec)
	require.NoError(t, err)
	require.Empty(t, added)
}
