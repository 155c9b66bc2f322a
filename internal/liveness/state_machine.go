package liveness

import (
	"fmt"
	"slices"
	"sync/atomic"

	"github.com/arloliu/pulse/types"
)

// transitionRule describes the states an event may fire from and its target.
type transitionRule struct {
	from []types.State
	to   types.State
}

var transitions = map[types.Event]transitionRule{
	types.EventHeartbeat: {from: []types.State{types.StateInactive, types.StateFailed}, to: types.StateActive},
	types.EventTimeout:   {from: []types.State{types.StateActive}, to: types.StateInactive},
	types.EventFail:      {from: []types.State{types.StateActive, types.StateInactive}, to: types.StateFailed},
}

// Transition is the outcome of firing an event.
type Transition struct {
	Event   types.Event
	From    types.State
	To      types.State
	Changed bool
}

// StateMachine holds the liveness state of a single node.
//
// It is safe for concurrent use; Fire applies transitions with compare-and-swap.
type StateMachine struct {
	current atomic.Int32 // types.State
}

// NewStateMachine creates a state machine in StateActive.
func NewStateMachine() *StateMachine {
	sm := &StateMachine{}
	sm.current.Store(int32(types.StateActive))

	return sm
}

// State returns the current state.
func (sm *StateMachine) State() types.State {
	return types.State(sm.current.Load())
}

// Can reports whether firing ev from the current state is defined,
// including the no-op case where the target equals the current state.
func (sm *StateMachine) Can(ev types.Event) bool {
	_, err := resolve(ev, sm.State())
	return err == nil
}

// Fire applies ev to the current state.
//
// Returns:
//   - Transition: From/To states; Changed is false for a guarded no-op
//   - error: types.ErrInvalidTransition if ev is undefined for the current state
func (sm *StateMachine) Fire(ev types.Event) (Transition, error) {
	for {
		from := sm.State()
		to, err := resolve(ev, from)
		if err != nil {
			return Transition{Event: ev, From: from, To: from}, err
		}
		if to == from {
			return Transition{Event: ev, From: from, To: to}, nil
		}
		if sm.current.CompareAndSwap(int32(from), int32(to)) {
			return Transition{Event: ev, From: from, To: to, Changed: true}, nil
		}
	}
}

func resolve(ev types.Event, from types.State) (types.State, error) {
	rule, ok := transitions[ev]
	if !ok {
		return from, fmt.Errorf("%w: unknown event %s", types.ErrInvalidTransition, ev)
	}
	if rule.to == from {
		return from, nil
	}
	if !slices.Contains(rule.from, from) {
		return from, fmt.Errorf("%w: %s from %s", types.ErrInvalidTransition, ev, from)
	}

	return rule.to, nil
}
