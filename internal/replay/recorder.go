// Package replay records committed frames into the match journal and plays
// them back at their recorded pace.
package replay

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/okian/pitchside/internal/adapters/journal"
	"github.com/okian/pitchside/internal/scheduler"
	"github.com/okian/pitchside/pkg/logger"
)

// Sink receives recordings. The replay queue satisfies it.
type Sink interface {
	Enqueue(ctx context.Context, r journal.Recording) error
}

// Recorder is a frame subscriber that queues one committed frame in every
// stride for the journal. Publish never blocks: a full queue drops the
// frame and counts it.
type Recorder struct {
	sink    Sink
	matchID string
	every   uint64

	recorded atomic.Uint64
	dropped  atomic.Uint64

	log logger.Logger
}

// NewRecorder records every nth frame of matchID into sink.
func NewRecorder(sink Sink, matchID string, every int, log logger.Logger) (*Recorder, error) {
	if every < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidStride, every)
	}
	if log == nil {
		log = logger.Get().Named("replay")
	}
	return &Recorder{sink: sink, matchID: matchID, every: uint64(every), log: log}, nil
}

// Publish implements scheduler.Subscriber.
func (r *Recorder) Publish(f scheduler.Frame) {
	if f.Snapshot.Seq%r.every != 0 {
		return
	}
	snap := f.Snapshot
	snap.Referee = f.Referee
	rec := journal.Recording{MatchID: r.matchID, Seq: snap.Seq, At: snap.Timestamp, Snapshot: snap}
	if err := r.sink.Enqueue(context.Background(), rec); err != nil {
		if r.dropped.Add(1) == 1 {
			r.log.Warn(context.Background(), "recording dropped", logger.Uint64("seq", snap.Seq), logger.Error(err))
		}
		return
	}
	r.recorded.Add(1)
}

// Stats returns how many frames were queued and how many were dropped.
func (r *Recorder) Stats() (recorded, dropped uint64) {
	return r.recorded.Load(), r.dropped.Load()
}
