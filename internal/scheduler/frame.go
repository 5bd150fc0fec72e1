package scheduler

import (
	"time"

	"github.com/okian/pitchside/internal/domain/game"
	"github.com/okian/pitchside/internal/domain/predict"
)

// Diagnostic kinds.
const (
	DiagRefinerError        = "refiner_error"
	DiagRuleSkipped         = "rule_skipped"
	DiagViolationSuppressed = "violation_suppressed"
	DiagCommandRejected     = "command_rejected"
	DiagJournalDropped      = "journal_dropped"
	DiagTickPanic           = "tick_panic"
)

// Diagnostic is a recoverable problem seen during one tick.
type Diagnostic struct {
	Seq     uint64    `json:"seq"`
	At      time.Time `json:"at"`
	Kind    string    `json:"kind"`
	Source  string    `json:"source"`
	Message string    `json:"message"`
}

// Frame is what a tick publishes. Consumers must treat it as read-only and
// clone the snapshot if they need to change it.
type Frame struct {
	Snapshot    game.Snapshot             `json:"snapshot"`
	Referee     game.RefereeState         `json:"referee"`
	Futures     map[string]predict.Future `json:"futures"`
	Diagnostics []Diagnostic              `json:"diagnostics,omitempty"`
}

// Subscriber receives every committed frame. Publish is called from the
// tick loop and must not block.
type Subscriber interface {
	Publish(f Frame)
}

// SubscriberFunc adapts a function to Subscriber.
type SubscriberFunc func(Frame)

func (f SubscriberFunc) Publish(fr Frame) { f(fr) }
