package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/arloliu/pulse/types"
)

var errTransient = errors.New("sink unavailable")

// fakeNotifier fails the first failFirst calls (all calls if failFirst < 0).
type fakeNotifier struct {
	name      string
	failFirst int
	panicMsg  string

	mu    sync.Mutex
	calls []time.Time
	nodes []types.NodeSnapshot
}

func (f *fakeNotifier) Name() string { return f.name }

func (f *fakeNotifier) Notify(_ context.Context, node types.NodeSnapshot) error {
	f.mu.Lock()
	f.calls = append(f.calls, time.Now())
	f.nodes = append(f.nodes, node)
	n := len(f.calls)
	f.mu.Unlock()

	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	if f.failFirst < 0 || n <= f.failFirst {
		return errTransient
	}

	return nil
}

func (f *fakeNotifier) callTimes() []time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]time.Time, len(f.calls))
	copy(out, f.calls)

	return out
}

func (f *fakeNotifier) callCount() int {
	return len(f.callTimes())
}
