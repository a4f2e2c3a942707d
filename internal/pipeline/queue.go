package pipeline

import (
	"context"
	"sync"
)

// Queue is an unbounded strict-FIFO queue. Push never blocks, so producers
// on the capture path are never back-pressured; Pop blocks until an item is
// available or the context is cancelled. Safe for multiple producers and a
// single consumer.
type Queue[T any] struct {
	mu     sync.Mutex
	items  []T
	notify chan struct{}
}

// NewQueue creates an empty queue
func NewQueue[T any]() *Queue[T] {
	return &Queue[T]{
		notify: make(chan struct{}, 1),
	}
}

// Push appends an item to the tail of the queue. Never blocks.
func (q *Queue[T]) Push(item T) {
	q.mu.Lock()
	q.items = append(q.items, item)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Pop removes and returns the head of the queue, blocking until an item is
// available. Returns the context error if the context ends first.
func (q *Queue[T]) Pop(ctx context.Context) (T, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			item := q.items[0]
			q.items = q.items[1:]
			q.mu.Unlock()
			return item, nil
		}
		q.mu.Unlock()

		select {
		case <-q.notify:
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}

// Len returns the current number of queued items
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
