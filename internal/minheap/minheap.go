// Package minheap provides a typed binary min-heap ordered by a sort key with
// an insertion-id tie-break.
package minheap

import (
	"github.com/emirpasic/gods/trees/binaryheap"
)

// Node is an element that can live in a MinHeap. SortIndex must not change
// while the node is heap-resident: pop it, mutate it, push it again.
type Node interface {
	SortIndex() int64
	ID() uint64
}

// MinHeap is an array-backed binary heap. Push and Pop are O(log n), Peek is
// O(1). Arbitrary removal is deliberately not supported.
type MinHeap[T Node] struct {
	h *binaryheap.Heap
}

// New creates an empty heap.
func New[T Node]() *MinHeap[T] {
	return &MinHeap[T]{h: binaryheap.NewWith(compare)}
}

// compare orders nodes by sort index, then by ascending id.
func compare(a, b interface{}) int {
	na, nb := a.(Node), b.(Node)
	switch sa, sb := na.SortIndex(), nb.SortIndex(); {
	case sa < sb:
		return -1
	case sa > sb:
		return 1
	}
	switch ia, ib := na.ID(), nb.ID(); {
	case ia < ib:
		return -1
	case ia > ib:
		return 1
	default:
		return 0
	}
}

// Push inserts n and sifts it up into place.
func (m *MinHeap[T]) Push(n T) {
	m.h.Push(n)
}

// Peek returns the minimum node without removing it.
func (m *MinHeap[T]) Peek() (T, bool) {
	v, ok := m.h.Peek()
	if !ok {
		var zero T
		return zero, false
	}
	return v.(T), true
}

// Pop removes and returns the minimum node.
func (m *MinHeap[T]) Pop() (T, bool) {
	v, ok := m.h.Pop()
	if !ok {
		var zero T
		return zero, false
	}
	return v.(T), true
}

// Len returns the number of resident nodes.
func (m *MinHeap[T]) Len() int {
	return m.h.Size()
}

// Empty reports whether the heap holds no nodes.
func (m *MinHeap[T]) Empty() bool {
	return m.h.Empty()
}
