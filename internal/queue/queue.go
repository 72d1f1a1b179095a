// Package queue provides the mutex-guarded FIFO the storage writers batch through.
package queue

import "sync"

// Queue is a goroutine-safe FIFO. A positive limit bounds its length and
// pushes past the limit evict the oldest items.
type Queue[T any] struct {
	mu      sync.Mutex
	items   []T
	limit   int
	pushed  uint64
	evicted uint64
}

// Stats are the lifetime counters of a queue.
type Stats struct {
	Len     int
	Pushed  uint64
	Evicted uint64
}

// New creates an unbounded queue.
func New[T any]() *Queue[T] {
	return &Queue[T]{}
}

// NewBounded creates a queue that keeps at most limit items. A non-positive
// limit means unbounded.
func NewBounded[T any](limit int) *Queue[T] {
	return &Queue[T]{limit: max(limit, 0)}
}

// Push appends items.
func (q *Queue[T]) Push(items ...T) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pushed += uint64(len(items))
	q.items = append(q.items, items...)
	q.evict()
}

// Requeue puts items back at the front, ahead of anything pushed since they
// were taken. Writers use it to retry a failed batch without reordering.
func (q *Queue[T]) Requeue(items ...T) {
	if len(items) == 0 {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(append(make([]T, 0, len(items)+len(q.items)), items...), q.items...)
	q.evict()
}

func (q *Queue[T]) evict() {
	if over := len(q.items) - q.limit; q.limit > 0 && over > 0 {
		q.evicted += uint64(over)
		clear(q.items[:over])
		q.items = q.items[over:]
	}
}

// Pop removes and returns the first item. ok is false when the queue is empty.
func (q *Queue[T]) Pop() (item T, ok bool) {
	if batch := q.Take(1); len(batch) == 1 {
		return batch[0], true
	}
	return item, false
}

// Take removes and returns up to n items from the front. n <= 0 takes all.
func (q *Queue[T]) Take(n int) []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	if n <= 0 || n >= len(q.items) {
		out := q.items
		q.items = nil
		return out
	}
	out := make([]T, n)
	copy(out, q.items)
	clear(q.items[:n])
	q.items = q.items[n:]
	return out
}

// Drain returns all items and empties the queue.
func (q *Queue[T]) Drain() []T {
	return q.Take(0)
}

// Clear drops every queued item without counting them as evicted.
func (q *Queue[T]) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = nil
}

func (q *Queue[T]) Empty() bool {
	return q.Len() == 0
}

func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Evicted counts items dropped by the length limit.
func (q *Queue[T]) Evicted() uint64 {
	return q.Stats().Evicted
}

func (q *Queue[T]) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Stats{Len: len(q.items), Pushed: q.pushed, Evicted: q.evicted}
}
