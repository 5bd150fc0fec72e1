// Package scheduler runs the fixed-rate tick loop. Each tick drains every
// ingestion buffer once, refines the batch into the next snapshot, records
// it for prediction, lets the referee engine judge it and publishes the
// committed frame. The loop is the only writer of pipeline, history and
// referee state.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/pitchside/internal/adapters/ingest"
	"github.com/okian/pitchside/internal/adapters/journal"
	"github.com/okian/pitchside/internal/adapters/mq/queue"
	"github.com/okian/pitchside/internal/domain/game"
	"github.com/okian/pitchside/internal/domain/predict"
	"github.com/okian/pitchside/internal/domain/referee"
	"github.com/okian/pitchside/internal/domain/refine"
	"github.com/okian/pitchside/pkg/logger"
	"github.com/okian/pitchside/pkg/metrics"
)

const (
	defaultPeriod           = time.Second / 60
	defaultHistorySize      = 120
	defaultHorizon          = 100 * time.Millisecond
	defaultPossessionRadius = 0.15
	defaultRequestCapacity  = 64
	defaultDiagBuffer       = 256

	requestQueueName = "commands"
)

// EventSink receives journal events. The journal queue satisfies it.
type EventSink interface {
	Enqueue(ctx context.Context, e journal.Event) error
}

// Stats is a point-in-time view of the loop counters.
type Stats struct {
	Seq         uint64   `json:"seq"`
	Ticks       uint64   `json:"ticks"`
	Overruns    uint64   `json:"overruns"`
	Panics      uint64   `json:"panics"`
	Diagnostics uint64   `json:"diagnostics"`
	HistoryLen  int      `json:"history_len"`
	Pending     int      `json:"pending_requests"`
	Refiners    []string `json:"refiners"`
	Filtered    bool     `json:"filtered"`
}

// Scheduler owns the tick loop.
type Scheduler struct {
	sources   *ingest.Sources
	engine    *referee.Engine
	pipeline  *refine.Pipeline
	predictor *predict.Predictor
	restart   *referee.AutoRestart
	requests  *queue.InMemoryQueue[Request]

	period           time.Duration
	historySize      int
	horizon          time.Duration
	strategies       []predict.Strategy
	possessionRadius float64
	filter           *refine.KalmanFilter
	requestCapacity  int
	diagBuffer       int

	journal EventSink
	matchID string

	followExternal  bool
	externalSeen    bool
	externalCounter uint32

	subscribers []Subscriber
	diagnostics chan Diagnostic

	snapshot game.Snapshot
	current  atomic.Pointer[Frame]

	ticks       atomic.Uint64
	overruns    atomic.Uint64
	panics      atomic.Uint64
	diagCount   atomic.Uint64
	historyLen  atomic.Int64
	refinerList []string

	shutdown chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	log logger.Logger
}

// New wires a scheduler around sources and engine. The pipeline is built
// from the engine's profile geometry.
func New(sources *ingest.Sources, engine *referee.Engine, perspective game.Perspective, opts ...Option) (*Scheduler, error) {
	if sources == nil {
		return nil, ErrNoSources
	}
	if engine == nil {
		return nil, ErrNoEngine
	}
	s := &Scheduler{
		sources:          sources,
		engine:           engine,
		period:           defaultPeriod,
		historySize:      defaultHistorySize,
		horizon:          defaultHorizon,
		possessionRadius: defaultPossessionRadius,
		requestCapacity:  defaultRequestCapacity,
		diagBuffer:       defaultDiagBuffer,
		snapshot:         game.NewSnapshot(perspective),
		shutdown:         make(chan struct{}),
		done:             make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.Get().Named("scheduler")
	}

	pipeline, err := refine.Standard(engine.Profile().Geometry, s.possessionRadius, refine.WithKalman(s.filter))
	if err != nil {
		return nil, fmt.Errorf("build pipeline: %w", err)
	}
	s.pipeline = pipeline
	s.refinerList = pipeline.Names()
	s.predictor = predict.NewPredictor(s.historySize, s.horizon, s.strategies...)
	s.restart = referee.NewAutoRestart(engine.Profile())
	s.requests = queue.NewInMemoryQueue[Request](requestQueueName, queue.WithCapacity(s.requestCapacity))
	s.diagnostics = make(chan Diagnostic, s.diagBuffer)
	return s, nil
}

// Diagnostics returns the channel of recoverable per-tick problems. Sends
// never block; diagnostics are dropped when nobody reads.
func (s *Scheduler) Diagnostics() <-chan Diagnostic { return s.diagnostics }

// Current returns the last committed frame.
func (s *Scheduler) Current() (Frame, bool) {
	f := s.current.Load()
	if f == nil {
		return Frame{}, false
	}
	return *f, true
}

// Period returns the tick period.
func (s *Scheduler) Period() time.Duration { return s.period }

// Stats returns the loop counters.
func (s *Scheduler) Stats() Stats {
	st := Stats{
		Ticks:       s.ticks.Load(),
		Overruns:    s.overruns.Load(),
		Panics:      s.panics.Load(),
		Diagnostics: s.diagCount.Load(),
		HistoryLen:  int(s.historyLen.Load()),
		Pending:     s.requests.Len(),
		Refiners:    append([]string(nil), s.refinerList...),
		Filtered:    s.filter != nil,
	}
	if f := s.current.Load(); f != nil {
		st.Seq = f.Snapshot.Seq
	}
	return st
}

// Post queues r for the next tick without waiting for it.
func (s *Scheduler) Post(ctx context.Context, r Request) error {
	if r.Kind < RequestCommand || r.Kind > RequestProfile {
		return fmt.Errorf("%w: %s", ErrInvalidRequest, r.Kind)
	}
	if err := s.requests.Enqueue(ctx, r); err != nil {
		if errors.Is(err, queue.ErrClosed) {
			return ErrStopped
		}
		return err
	}
	return nil
}

// Submit queues r and waits until a tick has applied it.
func (s *Scheduler) Submit(ctx context.Context, r Request) error {
	r.reply = make(chan error, 1)
	if err := s.Post(ctx, r); err != nil {
		return err
	}
	select {
	case err := <-r.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run ticks at the configured period until ctx is canceled or Stop is
// called. A slow tick is not caught up: the ticker drops missed ticks and
// the next one reads whatever is newest.
func (s *Scheduler) Run(ctx context.Context) {
	defer close(s.done)
	defer s.drainStopped()

	ticker := time.NewTicker(s.period)
	defer ticker.Stop()

	s.log.Info(ctx, "tick loop started", logger.Duration("period", s.period))
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.shutdown:
			return
		case now := <-ticker.C:
			start := time.Now()
			s.Step(ctx, now)
			if elapsed := time.Since(start); elapsed > s.period {
				s.overruns.Add(1)
				metrics.RecordTickOverrun()
				s.log.Debug(ctx, "tick overrun", logger.Duration("elapsed", elapsed))
			}
		}
	}
}

// Stop asks Run to return after the tick in flight.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.shutdown) })
}

// Shutdown stops the loop and waits for it to finish.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.Stop()
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Step runs one tick at now. It never returns an error: problems become
// diagnostics on the returned frame, and a panic leaves the previously
// committed state in place.
func (s *Scheduler) Step(ctx context.Context, now time.Time) (frame Frame) {
	start := time.Now()
	seq := s.snapshot.Seq + 1
	var diags []Diagnostic

	defer func() {
		if r := recover(); r != nil {
			s.panics.Add(1)
			metrics.RecordTickPanic()
			s.log.Error(ctx, "tick panicked", logger.Uint64("seq", seq), logger.Any("panic", r))
			d := s.diagnose(seq, now, DiagTickPanic, "scheduler", fmt.Sprint(r))
			if prev := s.current.Load(); prev != nil {
				frame = *prev
			}
			frame.Diagnostics = []Diagnostic{d}
		}
		s.ticks.Add(1)
		metrics.RecordTick(time.Since(start))
	}()

	diags = s.applyRequests(ctx, seq, now, diags)

	batch := s.sources.Drain()
	next, errs := s.pipeline.Run(s.snapshot, batch)
	for _, e := range errs {
		s.log.Warn(ctx, "refiner failed",
			logger.Uint64("seq", seq),
			logger.String("refiner", e.Refiner),
			logger.String("source", e.Source),
			logger.Error(e.Err))
		diags = append(diags, s.diagnose(seq, now, DiagRefinerError, e.Refiner, e.Error()))
	}
	next.Seq = seq
	next.Timestamp = now

	diags = s.followReferee(ctx, next, seq, now, diags)

	res := s.engine.Step(ctx, next)
	switch {
	case res.Skipped != "":
		diags = append(diags, s.diagnose(seq, now, DiagRuleSkipped, "referee", res.Skipped))
	case res.Suppressed != nil && !errors.Is(res.Suppressed, referee.ErrCooldown):
		diags = append(diags, s.diagnose(seq, now, DiagViolationSuppressed, res.Violation.Kind.String(), res.Suppressed.Error()))
	case res.HasTransition:
		diags = s.record(ctx, seq, res.Transition, diags)
	}
	next.Referee = s.engine.State()

	s.predictor.Observe(next)
	futures := s.predictor.Futures()
	s.historyLen.Store(int64(s.predictor.HistoryLen()))

	s.snapshot = next
	committed := Frame{Snapshot: next, Referee: next.Referee, Futures: futures, Diagnostics: diags}
	s.current.Store(&committed)
	frame = committed

	metrics.UpdateSnapshotSequence(seq)
	metrics.UpdateHistoryLength(s.predictor.HistoryLen())

	if s.restart.Due(next.Referee, now) {
		if err := s.Post(ctx, CommandRequest(game.CommandForceStart, referee.CauseRestart)); err != nil {
			s.log.Warn(ctx, "auto restart not queued", logger.Error(err))
		} else {
			s.restart.Fired(next.Referee)
			s.log.Info(ctx, "auto restart queued", logger.Uint64("seq", seq))
		}
	}

	for _, sub := range s.subscribers {
		sub.Publish(frame)
	}
	return frame
}

func (s *Scheduler) applyRequests(ctx context.Context, seq uint64, now time.Time, diags []Diagnostic) []Diagnostic {
	defer metrics.UpdateQueueSize(requestQueueName, s.requests.Len())
	for {
		r, ok := s.requests.TryDequeue()
		if !ok {
			return diags
		}
		t, changed, err := s.apply(ctx, r, now)
		r.respond(err)
		if err != nil {
			s.log.Warn(ctx, "request rejected",
				logger.String("kind", r.Kind.String()),
				logger.String("cause", string(r.Cause)),
				logger.Error(err))
			diags = append(diags, s.diagnose(seq, now, DiagCommandRejected, r.Kind.String(), err.Error()))
			continue
		}
		if changed {
			diags = s.record(ctx, seq, t, diags)
		}
	}
}

func (s *Scheduler) apply(ctx context.Context, r Request, now time.Time) (referee.Transition, bool, error) {
	switch r.Kind {
	case RequestCommand:
		t, err := s.engine.Command(ctx, r.Command, r.Cause, now)
		return t, err == nil, err
	case RequestStage:
		t, err := s.engine.AdvanceStage(ctx, r.Stage, now)
		return t, err == nil, err
	case RequestProfile:
		return referee.Transition{}, false, s.swapProfile(ctx, r)
	default:
		return referee.Transition{}, false, fmt.Errorf("%w: %s", ErrInvalidRequest, r.Kind)
	}
}

func (s *Scheduler) swapProfile(ctx context.Context, r Request) error {
	pipeline, err := refine.Standard(r.Profile.Geometry, s.possessionRadius, refine.WithKalman(s.filter))
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}
	if err := s.engine.SwapProfile(ctx, r.Profile); err != nil {
		return err
	}
	s.pipeline = pipeline
	s.restart = referee.NewAutoRestart(r.Profile)
	return nil
}

// followReferee injects the external command when its counter moves.
func (s *Scheduler) followReferee(ctx context.Context, next game.Snapshot, seq uint64, now time.Time, diags []Diagnostic) []Diagnostic {
	if !s.followExternal || !next.HasExternalReferee {
		return diags
	}
	pkt := next.ExternalReferee
	if s.externalSeen && pkt.CommandCounter == s.externalCounter {
		return diags
	}
	s.externalSeen, s.externalCounter = true, pkt.CommandCounter

	t, err := s.engine.Command(ctx, pkt.Command, referee.CauseExternal, now)
	if err != nil {
		return append(diags, s.diagnose(seq, now, DiagCommandRejected, "external_referee", err.Error()))
	}
	return s.record(ctx, seq, t, diags)
}

// record hands a transition to the journal.
func (s *Scheduler) record(ctx context.Context, seq uint64, t referee.Transition, diags []Diagnostic) []Diagnostic {
	if s.journal == nil {
		return diags
	}
	if err := s.journal.Enqueue(ctx, eventFrom(s.matchID, seq, t)); err != nil {
		s.log.Warn(ctx, "journal event dropped", logger.Uint64("seq", seq), logger.Error(err))
		return append(diags, s.diagnose(seq, t.At, DiagJournalDropped, "journal", err.Error()))
	}
	return diags
}

func (s *Scheduler) diagnose(seq uint64, at time.Time, kind, source, msg string) Diagnostic {
	d := Diagnostic{Seq: seq, At: at, Kind: kind, Source: source, Message: msg}
	s.diagCount.Add(1)
	metrics.RecordDiagnostic(kind)
	select {
	case s.diagnostics <- d:
	default:
	}
	return d
}

// drainStopped fails requests that will never see a tick.
func (s *Scheduler) drainStopped() {
	_ = s.requests.Close()
	for {
		r, ok := s.requests.TryDequeue()
		if !ok {
			return
		}
		r.respond(ErrStopped)
	}
}

func eventFrom(matchID string, seq uint64, t referee.Transition) journal.Event {
	st := t.State
	return journal.Event{
		MatchID:       matchID,
		Seq:           seq,
		At:            t.At,
		Cause:         string(t.Cause),
		Rule:          t.Rule,
		From:          t.From,
		Command:       st.Command,
		Next:          st.NextCommand,
		HasNext:       st.HasNextCommand,
		Designated:    st.DesignatedPosition,
		HasDesignated: st.HasDesignatedPosition,
		Stage:         st.Stage,
		ScoreYellow:   st.Yellow.Score,
		ScoreBlue:     st.Blue.Score,
		Message:       t.Message,
	}
}
