// Package hash places node names on a consistent hash ring.
package hash

import (
	"cmp"
	"encoding/binary"
	"slices"

	"github.com/zeebo/xxh3"
)

// DefaultVirtualNodes is the number of ring positions per node.
const DefaultVirtualNodes = 64

// Ring maps keys to owner nodes with consistent hashing.
//
// Removing one owner only moves the keys that owner held.
type Ring struct {
	points []point
	owners []string
}

type point struct {
	hash  uint64
	owner int
}

// NewRing builds a ring over the given owners.
//
// Duplicate owners are ignored. virtualNodes < 1 uses DefaultVirtualNodes.
//
// Example:
//
//	ring := hash.NewRing([]string{"node-a", "node-b"}, 0)
//	owner := ring.Owner("node-c")
func NewRing(owners []string, virtualNodes int) *Ring {
	if virtualNodes < 1 {
		virtualNodes = DefaultVirtualNodes
	}

	r := &Ring{owners: make([]string, 0, len(owners))}
	for _, o := range owners {
		if !slices.Contains(r.owners, o) {
			r.owners = append(r.owners, o)
		}
	}

	r.points = make([]point, 0, len(r.owners)*virtualNodes)
	for idx, owner := range r.owners {
		base := xxh3.HashString(owner)
		var buf [8]byte
		for v := range virtualNodes {
			binary.LittleEndian.PutUint64(buf[:], uint64(v)) //nolint:gosec // v is non-negative
			r.points = append(r.points, point{hash: xxh3.HashSeed(buf[:], base), owner: idx})
		}
	}
	slices.SortFunc(r.points, func(a, b point) int { return cmp.Compare(a.hash, b.hash) })

	return r
}

// Owner returns the owner of key, or "" for an empty ring.
func (r *Ring) Owner(key string) string {
	if len(r.points) == 0 {
		return ""
	}

	h := xxh3.HashString(key)
	idx, _ := slices.BinarySearchFunc(r.points, h, func(p point, t uint64) int {
		return cmp.Compare(p.hash, t)
	})
	if idx == len(r.points) {
		idx = 0
	}

	return r.owners[r.points[idx].owner]
}

// Owners returns a copy of the distinct owners in insertion order.
func (r *Ring) Owners() []string {
	return slices.Clone(r.owners)
}

// Size returns the number of points on the ring.
func (r *Ring) Size() int {
	return len(r.points)
}

// Takeover assigns every failed name to a surviving owner.
//
// Returns:
//   - map[string]string: failed name -> owner; empty when there are no survivors
func Takeover(failed, survivors []string) map[string]string {
	plan := make(map[string]string, len(failed))
	if len(survivors) == 0 {
		return plan
	}

	ring := NewRing(survivors, DefaultVirtualNodes)
	for _, name := range failed {
		plan[name] = ring.Owner(name)
	}

	return plan
}
