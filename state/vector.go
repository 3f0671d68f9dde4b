package state

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Vector is a distance vector indexed by destination node id
type Vector []int

// NoOrigin marks a vector whose producer could not be determined
const NoOrigin NodeId = -1

// Origin returns the index holding 0, which is the producer of a vector describing its own knowledge.
// If several entries are 0, the last one wins.
func (v Vector) Origin() NodeId {
	origin := NoOrigin
	for i, d := range v {
		if d == 0 {
			origin = NodeId(i)
		}
	}
	return origin
}

func (v Vector) Equal(o Vector) bool {
	return slices.Equal(v, o)
}

func (v Vector) Clone() Vector {
	return slices.Clone(v)
}

func (v Vector) String() string {
	parts := make([]string, len(v))
	for i, d := range v {
		if d >= INF {
			parts[i] = "inf"
		} else {
			parts[i] = strconv.Itoa(d)
		}
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// Validate checks a received vector against the network size
func (v Vector) Validate(n int) error {
	if len(v) != n {
		return fmt.Errorf("vector length %d does not match node count %d", len(v), n)
	}
	for i, d := range v {
		if d < 0 {
			return fmt.Errorf("negative distance %d at index %d", d, i)
		}
	}
	return nil
}

type StoredVector struct {
	Origin NodeId
	Vector Vector
}

// VectorStore accumulates distinct vectors in arrival order, up to a fixed capacity.
// Entries are never removed.
type VectorStore struct {
	capacity int
	entries  []StoredVector
}

func NewVectorStore(capacity int) *VectorStore {
	return &VectorStore{
		capacity: capacity,
		entries:  make([]StoredVector, 0, capacity),
	}
}

// Contains compares v element-wise against every stored vector
func (s *VectorStore) Contains(v Vector) bool {
	return slices.ContainsFunc(s.entries, func(sv StoredVector) bool {
		return sv.Vector.Equal(v)
	})
}

// Insert stores a copy of v if it is new and there is room left. It reports whether v was stored.
// When origin is NoOrigin, it is inferred from the zero entry of v.
func (s *VectorStore) Insert(origin NodeId, v Vector) bool {
	if s.Full() || s.Contains(v) {
		return false
	}
	if origin == NoOrigin {
		origin = v.Origin()
	}
	s.entries = append(s.entries, StoredVector{
		Origin: origin,
		Vector: v.Clone(),
	})
	return true
}

func (s *VectorStore) Full() bool {
	return len(s.entries) >= s.capacity
}

func (s *VectorStore) Len() int {
	return len(s.entries)
}

func (s *VectorStore) Cap() int {
	return s.capacity
}

// Entries returns the stored vectors in arrival order. The slice must not be modified.
func (s *VectorStore) Entries() []StoredVector {
	return s.entries
}
