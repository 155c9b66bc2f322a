// Package hooks runs the optional detector callbacks without letting them break a scan.
package hooks

import (
	"context"
	"fmt"

	"github.com/arloliu/pulse/types"
)

// Runner invokes the optional hooks synchronously.
//
// Every invocation recovers panics and logs returned errors, so a misbehaving
// hook can never abort the caller.
type Runner struct {
	hooks  types.Hooks
	logger types.Logger
}

// NewRunner creates a Runner.
//
// Parameters:
//   - hooks: Hook set to invoke (nil means no hooks)
//   - logger: Logger for hook errors and missing callbacks
func NewRunner(hooks *types.Hooks, logger types.Logger) *Runner {
	r := &Runner{logger: logger}
	if hooks != nil {
		r.hooks = *hooks
	}

	return r
}

// HasFailureCallback reports whether OnFailure is set.
func (r *Runner) HasFailureCallback() bool {
	return r.hooks.OnFailure != nil
}

// Failure runs the failure callback for node.
//
// Logs a warning when no callback is defined.
func (r *Runner) Failure(ctx context.Context, node types.NodeSnapshot) {
	if r.hooks.OnFailure == nil {
		r.logger.Warn("no failure callback defined", "node", node.Name)
		return
	}

	r.invoke("OnFailure", node.Name, func() error {
		return r.hooks.OnFailure(ctx, node)
	})
}

// StateChanged runs OnStateChanged if set.
func (r *Runner) StateChanged(ctx context.Context, node types.NodeSnapshot, from, to types.State) {
	if r.hooks.OnStateChanged == nil {
		return
	}

	r.invoke("OnStateChanged", node.Name, func() error {
		return r.hooks.OnStateChanged(ctx, node, from, to)
	})
}

// Reassign runs OnReassign if set and reports whether a hook was invoked.
func (r *Runner) Reassign(ctx context.Context, failed []types.NodeSnapshot) bool {
	if r.hooks.OnReassign == nil {
		return false
	}

	r.invoke("OnReassign", "", func() error {
		return r.hooks.OnReassign(ctx, failed)
	})

	return true
}

func (r *Runner) invoke(hook string, node string, fn func() error) {
	var err error
	func() {
		defer func() {
			if rec := recover(); rec != nil {
				err = fmt.Errorf("hook panicked: %v", rec)
			}
		}()
		err = fn()
	}()

	if err != nil {
		r.logger.Error("hook failed", "hook", hook, "node", node, "error", err)
	}
}
