package utils

import "sync"

// RingBuffer keeps the last Cap() values pushed into it, oldest first.
// It is safe for concurrent use.
type RingBuffer[T any] struct {
	mu    sync.RWMutex
	items []T
	start int // slot of the oldest value
	n     int
}

// NewRingBuffer creates a buffer holding up to size values.
// It panics when size is not positive.
func NewRingBuffer[T any](size int) *RingBuffer[T] {
	if size <= 0 {
		panic("ring buffer size must be positive")
	}
	return &RingBuffer[T]{items: make([]T, size)}
}

// Push appends item. A full buffer drops its oldest value.
func (rb *RingBuffer[T]) Push(item T) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	if rb.n < len(rb.items) {
		rb.items[rb.slot(rb.n)] = item
		rb.n++
		return
	}
	rb.items[rb.start] = item
	rb.start = rb.slot(1)
}

// Len returns the number of stored values.
func (rb *RingBuffer[T]) Len() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.n
}

// Cap returns the capacity.
func (rb *RingBuffer[T]) Cap() int {
	return len(rb.items)
}

// At returns the i-th value, 0 being the oldest.
// It panics when i is outside [0, Len()).
func (rb *RingBuffer[T]) At(i int) T {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	if i < 0 || i >= rb.n {
		panic("index out of range")
	}
	return rb.items[rb.slot(i)]
}

// ToSlice returns a copy of the values, oldest first.
func (rb *RingBuffer[T]) ToSlice() []T {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	out := make([]T, 0, rb.n)
	rb.each(func(item T) { out = append(out, item) })
	return out
}

// LatestBy groups the values by key and returns the newest value of each
// group. Groups are ordered by the first appearance of their key.
func (rb *RingBuffer[T]) LatestBy(key func(T) string) []T {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	index := make(map[string]int)
	out := make([]T, 0, rb.n)
	rb.each(func(item T) {
		k := key(item)
		if i, ok := index[k]; ok {
			out[i] = item
			return
		}
		index[k] = len(out)
		out = append(out, item)
	})
	return out
}

func (rb *RingBuffer[T]) each(fn func(T)) {
	for i := 0; i < rb.n; i++ {
		fn(rb.items[rb.slot(i)])
	}
}

func (rb *RingBuffer[T]) slot(i int) int {
	return (rb.start + i) % len(rb.items)
}
