// Package structure holds the low-level containers backing the order book.
package structure

import "errors"

// NullIndex marks an unused slot reference.
const NullIndex int32 = -1

var ErrSlabFull = errors.New("slab: capacity reached")

// Slab is a fixed-capacity arena with a free list. Nodes are addressed by
// index so the owning structure stays serializable without live pointers.
// Capacity is declared at creation time and never grows; the caller decides
// what to evict when Alloc fails.
type Slab[T any] struct {
	nodes    []T
	nextFree []int32
	freeHead int32
	used     int32
}

// NewSlab creates a slab holding at most capacity nodes.
func NewSlab[T any](capacity int) *Slab[T] {
	if capacity <= 0 {
		panic("slab: capacity must be positive")
	}

	s := &Slab[T]{
		nodes:    make([]T, capacity),
		nextFree: make([]int32, capacity),
		freeHead: 0,
	}

	for i := 0; i < capacity-1; i++ {
		s.nextFree[i] = int32(i + 1)
	}
	s.nextFree[capacity-1] = NullIndex

	return s
}

// Alloc claims a free slot and returns its index and a pointer to the node.
// Returns ErrSlabFull when every slot is in use.
func (s *Slab[T]) Alloc() (int32, *T, error) {
	if s.freeHead == NullIndex {
		return NullIndex, nil, ErrSlabFull
	}

	idx := s.freeHead
	s.freeHead = s.nextFree[idx]
	s.nextFree[idx] = NullIndex
	s.used++

	// Reset slot to the zero value so stale state never leaks.
	var zero T
	s.nodes[idx] = zero

	return idx, &s.nodes[idx], nil
}

// Free returns a slot to the free list.
func (s *Slab[T]) Free(idx int32) {
	var zero T
	s.nodes[idx] = zero
	s.nextFree[idx] = s.freeHead
	s.freeHead = idx
	s.used--
}

// Get returns the node stored at idx. The pointer is only valid until the
// slot is freed.
func (s *Slab[T]) Get(idx int32) *T {
	return &s.nodes[idx]
}

// Len returns the number of slots in use.
func (s *Slab[T]) Len() int {
	return int(s.used)
}

// Cap returns the fixed capacity.
func (s *Slab[T]) Cap() int {
	return len(s.nodes)
}

// Full reports whether no free slot remains.
func (s *Slab[T]) Full() bool {
	return s.freeHead == NullIndex
}
