// Package worker runs background journal writers: each drains one queue
// and appends its items to a store, keeping SQLite latency out of the tick
// loop. Referee transitions and replay recordings each get their own writer.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/pitchside/internal/adapters/journal"
	"github.com/okian/pitchside/pkg/logger"
	"github.com/okian/pitchside/pkg/metrics"
)

const defaultWriteTimeout = 2 * time.Second

// Appender persists one item.
type Appender[T any] interface {
	Append(ctx context.Context, v T) error
}

// AppendFunc adapts a function to Appender.
type AppendFunc[T any] func(ctx context.Context, v T) error

// Append calls f.
func (f AppendFunc[T]) Append(ctx context.Context, v T) error { return f(ctx, v) }

// Queue defines how the writer receives items.
type Queue[T any] interface {
	Dequeue(ctx context.Context) <-chan T
}

// Worker processes items until stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled, Stop is called or
	// the queue is closed and drained.
	Run(ctx context.Context)

	// Shutdown waits for Run to finish. Close the queue first to flush it;
	// if ctx ends before the queue drains the worker is stopped anyway.
	Shutdown(ctx context.Context) error
}

// Writer implements Worker for items of type T.
type Writer[T any] struct {
	queue    Queue[T]
	appender Appender[T]
	settings

	shutdown chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	written uint64
	failed  uint64
	mu      sync.Mutex
}

// JournalWriter writes referee transitions.
type JournalWriter = Writer[journal.Event]

// New creates a writer draining queue into appender.
func New[T any](queue Queue[T], appender Appender[T], opts ...Option) *Writer[T] {
	w := &Writer[T]{
		queue:    queue,
		appender: appender,
		settings: settings{name: "writer", timeout: defaultWriteTimeout},
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(&w.settings)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}
	return w
}

// NewJournalWriter creates a writer for referee transitions, named
// "journal" unless an option says otherwise.
func NewJournalWriter(queue Queue[journal.Event], appender Appender[journal.Event], opts ...Option) *JournalWriter {
	return New(queue, appender, append([]Option{WithName("journal")}, opts...)...)
}

// Name returns the writer name used in logs and metrics.
func (w *Writer[T]) Name() string { return w.name }

// Run starts the worker loop.
func (w *Writer[T]) Run(ctx context.Context) {
	defer close(w.done)

	items := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case v, ok := <-items:
			if !ok {
				return
			}
			if err := w.write(ctx, v); err != nil {
				w.logger.Error(ctx, "write failed", logger.Error(err))
			}
		}
	}
}

// Stop asks Run to return without draining.
func (w *Writer[T]) Stop() {
	w.stopOnce.Do(func() { close(w.shutdown) })
}

// Shutdown waits for the worker to finish.
func (w *Writer[T]) Shutdown(ctx context.Context) error {
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.Stop()
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Stats returns how many items were written and how many failed.
func (w *Writer[T]) Stats() (written, failed uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.written, w.failed
}

func (w *Writer[T]) write(ctx context.Context, v T) error {
	start := time.Now()
	wctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	err := w.appender.Append(wctx, v)
	w.mu.Lock()
	defer w.mu.Unlock()
	if err != nil {
		w.failed++
		metrics.RecordJournalError(w.name)
		return fmt.Errorf("%s append: %w", w.name, err)
	}
	w.written++
	metrics.RecordJournalWrite(w.name, time.Since(start))
	return nil
}
