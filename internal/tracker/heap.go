package tracker

import (
	"time"

	"github.com/arloliu/pulse/internal/liveness"
)

// entry is a scheduled timeout check for one heartbeat of one node.
type entry struct {
	node       *liveness.Node
	generation uint64
	heartbeat  time.Time
	due        time.Time

	// rearmed entries were created by a timeout detection and are due
	// once a full timeout elapsed; heartbeat entries only once it is exceeded.
	rearmed bool
}

func (e *entry) expired(now time.Time) bool {
	if e.rearmed {
		return !now.Before(e.due)
	}

	return now.After(e.due)
}

// entryHeap implements heap.Interface ordered by due, then heartbeat.
type entryHeap []*entry

func (h entryHeap) Len() int { return len(h) }

func (h entryHeap) Less(i, j int) bool {
	if !h[i].due.Equal(h[j].due) {
		return h[i].due.Before(h[j].due)
	}
	if !h[i].heartbeat.Equal(h[j].heartbeat) {
		return h[i].heartbeat.Before(h[j].heartbeat)
	}

	return h[i].node.Name() < h[j].node.Name()
}

func (h entryHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *entryHeap) Push(x any) {
	*h = append(*h, x.(*entry))
}

func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]

	return e
}
