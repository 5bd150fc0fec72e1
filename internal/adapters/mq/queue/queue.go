// Package queue is a bounded in-memory FIFO with non-blocking enqueue.
//
// The tick loop uses it for operator commands (drained with TryDequeue at
// the start of a tick) and for handing referee transitions to the journal
// writer (consumed with Dequeue).
package queue

import (
	"context"
	"sync"

	"github.com/okian/pitchside/pkg/metrics"
)

const defaultQueueCapacity = 1024

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue[T any] interface {
	// Enqueue adds v or fails with ErrFull or ErrClosed. It never blocks.
	Enqueue(ctx context.Context, v T) error

	// Dequeue returns a channel that receives values until the queue is
	// closed and drained.
	Dequeue(ctx context.Context) <-chan T

	// TryDequeue returns the oldest value without waiting.
	TryDequeue() (T, bool)

	Len() int
	Close() error
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue[T any] struct {
	name     string
	events   chan T
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a queue. name labels its metrics.
func NewInMemoryQueue[T any](name string, opts ...Option) *InMemoryQueue[T] {
	s := settings{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(&s)
	}
	q := &InMemoryQueue[T]{
		name:     name,
		capacity: s.capacity,
		events:   make(chan T, s.capacity),
	}
	metrics.UpdateQueueSize(name, 0)
	return q
}

// Enqueue adds v to the queue.
func (q *InMemoryQueue[T]) Enqueue(ctx context.Context, v T) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueRejected(q.name)
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordQueueRejected(q.name)
		return err
	}

	select {
	case q.events <- v:
		metrics.UpdateQueueSize(q.name, len(q.events))
		return nil
	default:
		metrics.RecordQueueRejected(q.name)
		return ErrFull
	}
}

// Dequeue returns a channel that will receive values as they become available.
func (q *InMemoryQueue[T]) Dequeue(ctx context.Context) <-chan T {
	out := make(chan T)
	go func() {
		defer close(out)
		for v := range q.events {
			select {
			case out <- v:
				metrics.UpdateQueueSize(q.name, len(q.events))
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// TryDequeue pops the oldest value if one is waiting.
func (q *InMemoryQueue[T]) TryDequeue() (T, bool) {
	select {
	case v, ok := <-q.events:
		if ok {
			metrics.UpdateQueueSize(q.name, len(q.events))
		}
		return v, ok
	default:
		var zero T
		return zero, false
	}
}

// Len returns the current number of queued values.
func (q *InMemoryQueue[T]) Len() int { return len(q.events) }

// Cap returns the configured capacity.
func (q *InMemoryQueue[T]) Cap() int { return q.capacity }

// Close stops accepting values. Values already queued can still be read.
func (q *InMemoryQueue[T]) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.events)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue[T]) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
