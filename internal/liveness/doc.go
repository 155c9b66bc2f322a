// Package liveness implements the per-node liveness state machine.
//
// A node moves between three states driven by three events:
//
//	heartbeat: inactive, failed → active
//	timeout:   active           → inactive
//	fail:      active, inactive → failed
//
// Firing an event whose target is the current state is a no-op, which makes
// repeated timeouts and repeated failures idempotent. Any other event that is
// not defined for the current state yields types.ErrInvalidTransition.
package liveness
