package scheduler

import (
	"time"

	"github.com/okian/pitchside/internal/domain/predict"
	"github.com/okian/pitchside/internal/domain/refine"
	"github.com/okian/pitchside/pkg/logger"
)

// Option applies a configuration option to the Scheduler.
type Option func(*Scheduler)

// WithPeriod sets the tick period.
func WithPeriod(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.period = d
		}
	}
}

// WithHistorySize bounds the prediction history.
func WithHistorySize(n int) Option {
	return func(s *Scheduler) {
		if n > 1 {
			s.historySize = n
		}
	}
}

// WithHorizon sets how far ahead futures look.
func WithHorizon(d time.Duration) Option {
	return func(s *Scheduler) {
		if d >= 0 {
			s.horizon = d
		}
	}
}

// WithStrategies replaces the default prediction strategies.
func WithStrategies(strategies ...predict.Strategy) Option {
	return func(s *Scheduler) {
		if len(strategies) > 0 {
			s.strategies = strategies
		}
	}
}

// WithPossessionRadius sets the nearest-robot possession threshold.
func WithPossessionRadius(r float64) Option {
	return func(s *Scheduler) {
		if r > 0 {
			s.possessionRadius = r
		}
	}
}

// WithKalman smooths fused positions with f. Nil, the default, leaves
// them as measured.
func WithKalman(f *refine.KalmanFilter) Option {
	return func(s *Scheduler) {
		s.filter = f
	}
}

// WithRequestCapacity bounds the command queue.
func WithRequestCapacity(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.requestCapacity = n
		}
	}
}

// WithJournal hands every transition to sink under matchID.
func WithJournal(sink EventSink, matchID string) Option {
	return func(s *Scheduler) {
		s.journal = sink
		s.matchID = matchID
	}
}

// WithFollowExternal injects the external referee's command whenever its
// command counter changes.
func WithFollowExternal(follow bool) Option {
	return func(s *Scheduler) {
		s.followExternal = follow
	}
}

// WithSubscriber adds a frame subscriber.
func WithSubscriber(sub Subscriber) Option {
	return func(s *Scheduler) {
		if sub != nil {
			s.subscribers = append(s.subscribers, sub)
		}
	}
}

// WithDiagnosticsBuffer sizes the diagnostics channel.
func WithDiagnosticsBuffer(n int) Option {
	return func(s *Scheduler) {
		if n >= 0 {
			s.diagBuffer = n
		}
	}
}

// WithLogger sets a custom logger for the scheduler.
func WithLogger(l logger.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.log = l
		}
	}
}
