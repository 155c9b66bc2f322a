package hooks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	pulsetest "github.com/arloliu/pulse/testing"
	"github.com/arloliu/pulse/types"
)

var failedNode = types.NodeSnapshot{Name: "N1", State: types.StateFailed, LastHeartbeat: time.Unix(0, 0), Retries: 3}

func TestRunner_Failure(t *testing.T) {
	t.Run("warns when no callback is defined", func(t *testing.T) {
		rec := pulsetest.NewRecordingLogger()
		r := NewRunner(nil, rec)

		require.False(t, r.HasFailureCallback())
		r.Failure(t.Context(), failedNode)

		require.Equal(t, 1, rec.Count(pulsetest.LevelWarn, "no failure callback defined"))
	})

	t.Run("invokes callback with the node snapshot", func(t *testing.T) {
		rec := pulsetest.NewRecordingLogger()
		var got types.NodeSnapshot
		r := NewRunner(&types.Hooks{
			OnFailure: func(_ context.Context, node types.NodeSnapshot) error {
				got = node
				return nil
			},
		}, rec)

		r.Failure(t.Context(), failedNode)

		require.Equal(t, failedNode, got)
		require.Empty(t, rec.Entries())
	})

	t.Run("logs callback error", func(t *testing.T) {
		rec := pulsetest.NewRecordingLogger()
		r := NewRunner(&types.Hooks{
			OnFailure: func(context.Context, types.NodeSnapshot) error {
				return errors.New("boom")
			},
		}, rec)

		r.Failure(t.Context(), failedNode)

		require.Equal(t, 1, rec.Count(pulsetest.LevelError, "hook failed"))
	})

	t.Run("recovers callback panic", func(t *testing.T) {
		rec := pulsetest.NewRecordingLogger()
		r := NewRunner(&types.Hooks{
			OnFailure: func(context.Context, types.NodeSnapshot) error {
				panic("callback exploded")
			},
		}, rec)

		require.NotPanics(t, func() {
			r.Failure(t.Context(), failedNode)
		})
		require.Equal(t, 1, rec.Count(pulsetest.LevelError, "hook failed"))
	})
}

func TestRunner_StateChangedAndReassign(t *testing.T) {
	rec := pulsetest.NewRecordingLogger()

	var transitions []types.State
	var reassigned []types.NodeSnapshot
	r := NewRunner(&types.Hooks{
		OnStateChanged: func(_ context.Context, _ types.NodeSnapshot, from, to types.State) error {
			transitions = append(transitions, from, to)
			return nil
		},
		OnReassign: func(_ context.Context, failed []types.NodeSnapshot) error {
			reassigned = failed
			return nil
		},
	}, rec)

	r.StateChanged(t.Context(), failedNode, types.StateInactive, types.StateFailed)
	require.True(t, r.Reassign(t.Context(), []types.NodeSnapshot{failedNode}))

	require.Equal(t, []types.State{types.StateInactive, types.StateFailed}, transitions)
	require.Equal(t, []types.NodeSnapshot{failedNode}, reassigned)

	empty := NewRunner(nil, rec)
	require.False(t, empty.Reassign(t.Context(), nil))
	require.NotPanics(t, func() {
		empty.StateChanged(t.Context(), failedNode, types.StateActive, types.StateInactive)
	})
}
