// Package predict owns the snapshot history and the strategies that
// extrapolate it into Future views.
//
// History is not handed to decision logic. Anything that needs the past
// goes through a Strategy, which only sees per-body Sample slices.
package predict

import (
	"time"

	"github.com/okian/pitchside/internal/domain/game"
)

// History is a bounded ring of committed snapshots, oldest first.
// It is owned by the tick loop and is not safe for concurrent use.
type History struct {
	buf   []game.Snapshot
	start int
	n     int
}

// NewHistory creates a ring holding at most capacity snapshots.
func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = 1
	}
	return &History{buf: make([]game.Snapshot, capacity)}
}

// Push appends s, evicting the oldest entry when full.
func (h *History) Push(s game.Snapshot) {
	if h.n < len(h.buf) {
		h.buf[(h.start+h.n)%len(h.buf)] = s
		h.n++
		return
	}
	h.buf[h.start] = s
	h.start = (h.start + 1) % len(h.buf)
}

func (h *History) Len() int { return h.n }
func (h *History) Cap() int { return len(h.buf) }

// Series returns an ordered, read-only view of the current contents.
func (h *History) Series() Series {
	out := make([]game.Snapshot, h.n)
	for i := range h.n {
		out[i] = h.buf[(h.start+i)%len(h.buf)]
	}
	return Series{snaps: out}
}

// Series is a frozen, oldest-first copy of the history.
type Series struct {
	snaps []game.Snapshot
}

func (s Series) Len() int { return len(s.snaps) }

// Latest returns the newest snapshot.
func (s Series) Latest() (game.Snapshot, bool) {
	if len(s.snaps) == 0 {
		return game.Snapshot{}, false
	}
	return s.snaps[len(s.snaps)-1], true
}

// Sample is one timed position of a body.
type Sample struct {
	At       time.Time
	Position game.Vec2
}

func sampleTime(s game.Snapshot) time.Time {
	if !s.VisionTime.IsZero() {
		return s.VisionTime
	}
	return s.Timestamp
}

// Ball returns the ball track, skipping ticks where it was not seen and
// repeated vision times.
func (s Series) Ball() []Sample {
	var out []Sample
	for _, snap := range s.snaps {
		if !snap.Ball.Visible {
			continue
		}
		out = appendSample(out, Sample{At: sampleTime(snap), Position: snap.Ball.Position})
	}
	return out
}

// Robot returns the track of robot id of colour team.
func (s Series) Robot(team game.Team, id int) []Sample {
	var out []Sample
	for _, snap := range s.snaps {
		for _, r := range snap.Robots(team) {
			if r.ID == id {
				out = appendSample(out, Sample{At: sampleTime(snap), Position: r.Position})
				break
			}
		}
	}
	return out
}

// Ticks without new vision repeat the previous capture time; only the
// first sample per time is kept.
func appendSample(out []Sample, smp Sample) []Sample {
	if n := len(out); n > 0 && !smp.At.After(out[n-1].At) {
		return out
	}
	return append(out, smp)
}
