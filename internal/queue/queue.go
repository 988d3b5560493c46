package queue

import (
	"sync"
)

// Queue is a generic thread-safe FIFO. A bounded queue drops its oldest
// items to make room, so a stalled consumer cannot grow memory without limit.
type Queue[T any] struct {
	mu      sync.Mutex
	items   []T
	limit   int
	dropped uint64
}

// New creates a new empty unbounded queue.
func New[T any]() *Queue[T] {
	return NewBounded[T](0)
}

// NewBounded creates a queue holding at most limit items. limit <= 0 means
// unbounded.
func NewBounded[T any](limit int) *Queue[T] {
	return &Queue[T]{
		items: make([]T, 0),
		limit: limit,
	}
}

// Push appends items to the queue and returns how many old items were
// dropped to stay within the limit.
func (q *Queue[T]) Push(items ...T) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, items...)
	if q.limit <= 0 || len(q.items) <= q.limit {
		return 0
	}
	over := len(q.items) - q.limit
	q.items = append(q.items[:0:0], q.items[over:]...)
	q.dropped += uint64(over)
	return over
}

// Pop removes and returns the first item. ok is false if the queue is empty.
func (q *Queue[T]) Pop() (item T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return item, false
	}
	item = q.items[0]
	q.items = q.items[1:]
	return item, true
}

// Requeue puts items back at the head, in order, for a retry after a failed
// flush. Items beyond the limit are dropped from the tail of the requeued batch.
func (q *Queue[T]) Requeue(items ...T) {
	q.mu.Lock()
	defer q.mu.Unlock()
	merged := make([]T, 0, len(items)+len(q.items))
	merged = append(merged, items...)
	merged = append(merged, q.items...)
	if q.limit > 0 && len(merged) > q.limit {
		over := len(merged) - q.limit
		merged = merged[over:]
		q.dropped += uint64(over)
	}
	q.items = merged
}

// Empty returns true if the queue has no items.
func (q *Queue[T]) Empty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) == 0
}

// Len returns the number of items in the queue.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Dropped returns how many items were discarded by the limit.
func (q *Queue[T]) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

// GetAndEmpty returns all items and clears the queue.
func (q *Queue[T]) GetAndEmpty() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	result := q.items
	q.items = make([]T, 0, cap(q.items))
	return result
}
