// Package buffer provides the fixed-capacity ring buffer every rolling
// window in the engine is built on.
package buffer

import "fmt"

// RingBuffer is a bounded FIFO store. Once full, Add overwrites the
// oldest item. Index 0 is always the oldest item, Len()-1 the newest.
// The backing array never grows, so memory stays bounded and eviction
// order is deterministic.
type RingBuffer[T any] struct {
	data  []T
	head  int
	count int
}

// NewRingBuffer returns a buffer with the given capacity. Capacity must
// be positive.
func NewRingBuffer[T any](capacity int) (*RingBuffer[T], error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("ring buffer capacity must be positive, got %d", capacity)
	}
	return &RingBuffer[T]{data: make([]T, capacity)}, nil
}

// Add appends an item, evicting the oldest when full. Never fails.
func (r *RingBuffer[T]) Add(item T) {
	if r.count < len(r.data) {
		r.data[(r.head+r.count)%len(r.data)] = item
		r.count++
		return
	}
	r.data[r.head] = item
	r.head = (r.head + 1) % len(r.data)
}

// Get returns the item at logical index i (0 = oldest).
func (r *RingBuffer[T]) Get(i int) (T, error) {
	var zero T
	if i < 0 || i >= r.count {
		return zero, fmt.Errorf("ring buffer index %d out of range [0, %d)", i, r.count)
	}
	return r.data[(r.head+i)%len(r.data)], nil
}

// Last returns the newest item, or false when empty.
func (r *RingBuffer[T]) Last() (T, bool) {
	if r.count == 0 {
		var zero T
		return zero, false
	}
	return r.data[(r.head+r.count-1)%len(r.data)], true
}

// Len returns the number of stored items.
func (r *RingBuffer[T]) Len() int {
	return r.count
}

// Cap returns the fixed capacity.
func (r *RingBuffer[T]) Cap() int {
	return len(r.data)
}

// Full reports whether the next Add will evict.
func (r *RingBuffer[T]) Full() bool {
	return r.count == len(r.data)
}

// Items copies the contents out in insertion order, oldest first.
func (r *RingBuffer[T]) Items() []T {
	out := make([]T, r.count)
	for i := 0; i < r.count; i++ {
		out[i] = r.data[(r.head+i)%len(r.data)]
	}
	return out
}

// Clear resets the buffer to empty without changing capacity.
func (r *RingBuffer[T]) Clear() {
	var zero T
	for i := range r.data {
		r.data[i] = zero
	}
	r.head = 0
	r.count = 0
}
