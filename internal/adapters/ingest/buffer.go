// Package ingest holds the single-slot handoff cells between producer
// goroutines and the tick loop.
//
// A Buffer keeps only the newest unread value. Write replaces whatever is
// waiting, TakeLatest empties the slot, and neither ever blocks: a slow
// consumer sees stale-but-fresh data instead of a growing backlog.
package ingest

import (
	"sync/atomic"

	"github.com/okian/pitchside/pkg/metrics"
)

// Buffer is a single-slot overwrite cell for values of type T.
type Buffer[T any] struct {
	name string
	slot atomic.Pointer[T]

	writes     atomic.Uint64
	overwrites atomic.Uint64
}

// NewBuffer creates an empty buffer. name labels its metrics.
func NewBuffer[T any](name string) *Buffer[T] {
	return &Buffer[T]{name: name}
}

// Name returns the source label.
func (b *Buffer[T]) Name() string { return b.name }

// Write stores v, replacing any value not yet taken.
func (b *Buffer[T]) Write(v T) {
	prev := b.slot.Swap(&v)
	b.writes.Add(1)
	metrics.RecordBufferWrite(b.name)
	if prev != nil {
		b.overwrites.Add(1)
		metrics.RecordBufferOverwrite(b.name)
	}
}

// TakeLatest returns the newest unread value and clears the slot. ok is
// false when nothing was written since the last take.
func (b *Buffer[T]) TakeLatest() (v T, ok bool) {
	p := b.slot.Swap(nil)
	if p == nil {
		return v, false
	}
	return *p, true
}

// Stats reports how many values were written and how many were replaced
// before being read.
func (b *Buffer[T]) Stats() (writes, overwrites uint64) {
	return b.writes.Load(), b.overwrites.Load()
}
