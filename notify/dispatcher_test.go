package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	pulsetest "github.com/arloliu/pulse/testing"
)

func TestDispatcher_NoNotifiers(t *testing.T) {
	rec := pulsetest.NewRecordingLogger()
	d := NewDispatcher(nil, rec)

	results := d.NotifyAll(t.Context(), failedN1)

	require.Nil(t, results)
	require.Equal(t, 1, rec.Count(pulsetest.LevelWarn, "no notifiers registered"))
}

func TestDispatcher_InvokesEveryNotifierOnce(t *testing.T) {
	rec := pulsetest.NewRecordingLogger()
	a := &fakeNotifier{name: "a"}
	b := &fakeNotifier{name: "b"}

	d := NewDispatcher(NewRetrier(fastPolicy(), nil, rec, nil), rec, a, nil, b)
	require.Len(t, d.Notifiers(), 2)

	results := d.NotifyAll(t.Context(), failedN1)

	require.Len(t, results, 2)
	require.Equal(t, 1, a.callCount())
	require.Equal(t, 1, b.callCount())
	require.Equal(t, "N1", a.nodes[0].Name)
}

func TestDispatcher_FailingNotifierDoesNotBlockOthers(t *testing.T) {
	rec := pulsetest.NewRecordingLogger()
	broken := &fakeNotifier{name: "broken", failFirst: -1}
	healthy := &fakeNotifier{name: "healthy"}

	d := NewDispatcher(NewRetrier(RetryPolicy{MaxRetries: 2, Delay: time.Millisecond}, nil, rec, nil), rec)
	d.Add(broken)
	d.Add(healthy)

	results := d.NotifyAll(t.Context(), failedN1)

	require.Len(t, results, 2)
	require.False(t, results[0].Delivered)
	require.True(t, results[1].Delivered)
	require.Equal(t, 3, broken.callCount())
	require.Equal(t, 1, healthy.callCount())
}
