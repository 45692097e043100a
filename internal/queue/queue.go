// Package queue provides the unbounded FIFO that hands gesture events from the
// recognition goroutine to the broadcast goroutine.
package queue

import (
	"context"
	"sync"
)

// Queue is an unbounded, goroutine-safe FIFO. The zero value is not usable; call New.
type Queue[T any] struct {
	mu     sync.Mutex
	items  []T
	notify chan struct{}
}

// New returns an empty queue.
func New[T any]() *Queue[T] {
	return &Queue[T]{notify: make(chan struct{}, 1)}
}

// Enqueue appends v. It never blocks on consumers.
func (q *Queue[T]) Enqueue(v T) {
	q.mu.Lock()
	q.items = append(q.items, v)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// TryDequeue removes and returns the oldest item. ok is false when the queue is empty.
func (q *Queue[T]) TryDequeue() (v T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return v, false
	}
	v = q.items[0]

	var zero T
	q.items[0] = zero
	q.items = q.items[1:]
	if len(q.items) == 0 {
		q.items = nil
	}
	return v, true
}

// Dequeue blocks until an item is available or ctx is done.
func (q *Queue[T]) Dequeue(ctx context.Context) (T, error) {
	for {
		if v, ok := q.TryDequeue(); ok {
			return v, nil
		}
		select {
		case <-q.notify:
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
