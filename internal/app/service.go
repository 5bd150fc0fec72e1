// Package service wires the ingestion sources, tick loop, referee engine,
// journal and stream hub into one process and implements the dependencies
// required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/okian/pitchside/internal/adapters/http/stream"
	"github.com/okian/pitchside/internal/adapters/ingest"
	"github.com/okian/pitchside/internal/adapters/journal"
	"github.com/okian/pitchside/internal/adapters/mq/queue"
	"github.com/okian/pitchside/internal/adapters/mq/worker"
	"github.com/okian/pitchside/internal/config"
	"github.com/okian/pitchside/internal/domain/game"
	"github.com/okian/pitchside/internal/domain/profile"
	"github.com/okian/pitchside/internal/domain/referee"
	"github.com/okian/pitchside/internal/domain/refine"
	"github.com/okian/pitchside/internal/replay"
	"github.com/okian/pitchside/internal/scheduler"
	"github.com/okian/pitchside/internal/simfeed"
	"github.com/okian/pitchside/pkg/logger"
)

const (
	journalQueueName  = "journal"
	replayQueueName   = "replay"
	recentDiagnostics = 16
	simGoalInterval   = 30 * time.Second
)

// Service owns every long-lived component of one match.
type Service struct {
	mu sync.RWMutex

	cfg      *config.Config
	override *profile.Profile
	active   profile.Profile

	// Core components
	sources  *ingest.Sources
	engine   *referee.Engine
	sched    *scheduler.Scheduler
	hub      *stream.Hub
	feed     *simfeed.Feed
	store    *journal.Store
	events   *queue.InMemoryQueue[journal.Event]
	writer   *worker.JournalWriter
	matchID  string

	// Replay recording, nil when disabled
	recordings   *queue.InMemoryQueue[journal.Recording]
	replayWriter *worker.Writer[journal.Recording]
	recorder     *replay.Recorder
	recent   []scheduler.Diagnostic

	// State
	started      bool
	cancel       context.CancelFunc
	cancelWriter context.CancelFunc
	wg           sync.WaitGroup

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithConfig sets the process configuration.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		if cfg != nil {
			s.cfg = cfg
		}
	}
}

// WithProfile uses p instead of resolving the configured profile.
func WithProfile(p profile.Profile) Option {
	return func(s *Service) { s.override = &p }
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{cfg: config.New()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start validates the configuration, opens the journal and starts the tick
// loop, the journal writer and, when simulating, the synthetic feed.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	if err := s.cfg.Validate(); err != nil {
		return err
	}

	p, err := s.resolveProfile()
	if err != nil {
		return err
	}
	s.active = p

	s.logger.Info(ctx, "starting pitchside service...",
		logger.String("profile", p.Name),
		logger.Int("tick_rate_hz", s.cfg.TickRateHz))

	perspective := game.Perspective{MyTeamIsYellow: s.cfg.MyTeamIsYellow, MyTeamIsRight: s.cfg.MyTeamIsRight}
	robotIDs := make([]int, s.cfg.RobotsPerTeam)
	for i := range robotIDs {
		robotIDs[i] = i
	}
	now := time.Now()

	s.sources = ingest.NewSources(s.cfg.CameraCount, robotIDs)
	s.engine = referee.NewEngine(p, now, s.logger.Named("referee"))
	s.hub = stream.NewHub(
		stream.WithWriteTimeout(s.cfg.StreamWriteTimeout()),
		stream.WithLogger(s.logger.Named("stream")),
	)

	schedOpts := []scheduler.Option{
		scheduler.WithPeriod(s.cfg.TickPeriod()),
		scheduler.WithHistorySize(s.cfg.HistorySize),
		scheduler.WithHorizon(s.cfg.PredictionHorizon()),
		scheduler.WithPossessionRadius(s.cfg.PossessionRadiusM),
		scheduler.WithRequestCapacity(s.cfg.CommandQueueSize),
		scheduler.WithFollowExternal(s.cfg.FollowExternalReferee),
		scheduler.WithSubscriber(s.hub),
		scheduler.WithLogger(s.logger.Named("scheduler")),
	}
	if s.cfg.KalmanEnabled {
		filter, err := refine.NewKalmanFilter(s.cfg.KalmanNoiseSDM)
		if err != nil {
			s.hub.Close()
			return fmt.Errorf("build position filter: %w", err)
		}
		schedOpts = append(schedOpts, scheduler.WithKalman(filter))
	}
	if s.cfg.JournalPath != "" {
		if err := s.openJournal(ctx, p, perspective, now); err != nil {
			s.hub.Close()
			return err
		}
		schedOpts = append(schedOpts, scheduler.WithJournal(s.events, s.matchID))
		if s.recorder != nil {
			schedOpts = append(schedOpts, scheduler.WithSubscriber(s.recorder))
		}
	}

	sched, err := scheduler.New(s.sources, s.engine, perspective, schedOpts...)
	if err != nil {
		_ = s.closeJournal(ctx)
		s.hub.Close()
		return fmt.Errorf("build scheduler: %w", err)
	}
	s.sched = sched

	if s.cfg.Simulate {
		feed, err := simfeed.New(s.sources, p.Geometry, perspective,
			simfeed.WithCameras(s.cfg.CameraCount),
			simfeed.WithRobots(s.cfg.RobotsPerTeam),
			simfeed.WithGoalEvery(simGoalInterval),
			simfeed.WithLogger(s.logger.Named("simfeed")),
		)
		if err != nil {
			_ = s.closeJournal(ctx)
			s.hub.Close()
			return fmt.Errorf("build synthetic feed: %w", err)
		}
		s.feed = feed
	}

	// Long-running goroutines must outlive the start request.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		s.sched.Run(runCtx)
	}()
	go func() {
		defer s.wg.Done()
		s.watchDiagnostics(runCtx)
	}()
	if s.feed != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.feed.Run(runCtx)
		}()
	}

	s.started = true
	s.logger.Info(ctx, "pitchside service started",
		logger.String("match", s.matchID),
		logger.Int("cameras", s.cfg.CameraCount),
		logger.Int("robots_per_team", s.cfg.RobotsPerTeam),
		logger.Bool("simulate", s.cfg.Simulate),
		logger.Bool("journal", s.store != nil))
	return nil
}

func (s *Service) resolveProfile() (profile.Profile, error) {
	if s.override != nil {
		if err := s.override.Validate(); err != nil {
			return profile.Profile{}, err
		}
		return *s.override, nil
	}
	return profile.Resolve(s.cfg.Profile, s.cfg.ProfilePath)
}

func (s *Service) openJournal(ctx context.Context, p profile.Profile, perspective game.Perspective, now time.Time) error {
	store, err := journal.Open(ctx, s.cfg.JournalPath)
	if err != nil {
		return err
	}
	match, err := store.StartMatch(ctx, p.Name, perspective, now)
	if err != nil {
		_ = store.Close()
		return err
	}
	s.store = store
	s.matchID = match.ID
	s.recordings, s.replayWriter, s.recorder = nil, nil, nil
	s.events = queue.NewInMemoryQueue[journal.Event](journalQueueName, queue.WithCapacity(s.cfg.JournalQueueSize))
	s.writer = worker.NewJournalWriter(s.events, store,
		worker.WithName(journalQueueName),
		worker.WithLogger(s.logger.Named("journal")),
	)

	if s.cfg.ReplayRecordEvery > 0 {
		s.recordings = queue.NewInMemoryQueue[journal.Recording](replayQueueName, queue.WithCapacity(s.cfg.ReplayQueueSize))
		recorder, err := replay.NewRecorder(s.recordings, s.matchID, s.cfg.ReplayRecordEvery, s.logger.Named("replay"))
		if err != nil {
			_ = store.Close()
			s.store = nil
			return err
		}
		s.recorder = recorder
		s.replayWriter = worker.New(s.recordings, worker.AppendFunc[journal.Recording](store.AppendRecording),
			worker.WithName(replayQueueName),
			worker.WithLogger(s.logger.Named("replay")),
		)
	}

	// Writers keep their own context so they can drain after the tick
	// loop has stopped.
	writerCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancelWriter = cancel
	go s.writer.Run(writerCtx)
	if s.replayWriter != nil {
		go s.replayWriter.Run(writerCtx)
	}
	return nil
}

// closeJournal drains the journal and replay queues, marks the match ended
// and closes the store.
func (s *Service) closeJournal(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	var errs []error
	_ = s.events.Close()
	if s.recordings != nil {
		_ = s.recordings.Close()
	}
	if err := s.writer.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if s.replayWriter != nil {
		if err := s.replayWriter.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	s.cancelWriter()
	if err := s.store.EndMatch(ctx, s.matchID, time.Now()); err != nil {
		errs = append(errs, err)
	}
	if err := s.store.Close(); err != nil {
		errs = append(errs, err)
	}
	s.store = nil
	return errors.Join(errs...)
}

func (s *Service) watchDiagnostics(ctx context.Context) {
	diags := s.sched.Diagnostics()
	for {
		select {
		case <-ctx.Done():
			return
		case d := <-diags:
			s.mu.Lock()
			s.recent = append(s.recent, d)
			if len(s.recent) > recentDiagnostics {
				s.recent = s.recent[len(s.recent)-recentDiagnostics:]
			}
			s.mu.Unlock()
		}
	}
}

// Stop gracefully shuts down the service. Queued journal events are
// written before the match is closed.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	sched, cancel := s.sched, s.cancel
	s.mu.Unlock()

	s.logger.Info(ctx, "stopping pitchside service...")

	var errs []error
	if err := sched.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	cancel()
	s.wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.closeJournal(ctx); err != nil {
		errs = append(errs, err)
	}
	s.hub.Close()

	s.logger.Info(ctx, "pitchside service stopped")
	return errors.Join(errs...)
}

// Current returns the last committed frame.
func (s *Service) Current() (scheduler.Frame, bool) {
	s.mu.RLock()
	sched := s.sched
	s.mu.RUnlock()
	if sched == nil {
		return scheduler.Frame{}, false
	}
	return sched.Current()
}

// Submit hands r to the tick loop and waits until it is applied.
func (s *Service) Submit(ctx context.Context, r scheduler.Request) error {
	s.mu.RLock()
	sched, started := s.sched, s.started
	s.mu.RUnlock()
	if !started {
		return scheduler.ErrStopped
	}
	if err := sched.Submit(ctx, r); err != nil {
		return err
	}
	if r.Kind == scheduler.RequestProfile {
		s.mu.Lock()
		s.active = r.Profile
		s.mu.Unlock()
		s.logger.Info(ctx, "profile swapped", logger.String("profile", r.Profile.Name))
	}
	return nil
}

// Profile returns the active rule profile.
func (s *Service) Profile() profile.Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// Sources exposes the ingestion buffers to feed adapters.
func (s *Service) Sources() *ingest.Sources {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sources
}

// StreamHandler returns the frame stream endpoint, or nil before Start.
func (s *Service) StreamHandler() http.Handler {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.hub == nil {
		return nil
	}
	return s.hub
}

// MatchID returns the journal match id, empty when the journal is off.
func (s *Service) MatchID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.matchID
}

func (s *Service) journalStore() (*journal.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.store == nil {
		return nil, journal.ErrDisabled
	}
	return s.store, nil
}

// Matches lists the journal's matches, newest first.
func (s *Service) Matches(ctx context.Context) ([]journal.Match, error) {
	store, err := s.journalStore()
	if err != nil {
		return nil, err
	}
	return store.Matches(ctx)
}

// Match loads one match from the journal.
func (s *Service) Match(ctx context.Context, id string) (journal.Match, error) {
	store, err := s.journalStore()
	if err != nil {
		return journal.Match{}, err
	}
	return store.Match(ctx, id)
}

// Events returns the referee transitions of a match.
func (s *Service) Events(ctx context.Context, matchID string) ([]journal.Event, error) {
	store, err := s.journalStore()
	if err != nil {
		return nil, err
	}
	if _, err := store.Match(ctx, matchID); err != nil {
		return nil, err
	}
	return store.Events(ctx, matchID)
}

// Recordings returns a page of a match's replay recordings.
func (s *Service) Recordings(ctx context.Context, matchID string, from uint64, limit int) ([]journal.Recording, error) {
	store, err := s.journalStore()
	if err != nil {
		return nil, err
	}
	if _, err := store.Match(ctx, matchID); err != nil {
		return nil, err
	}
	return store.Recordings(ctx, matchID, from, limit)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":  s.started,
		"profile":  s.active.Name,
		"simulate": s.cfg.Simulate,
	}
	if s.sched == nil {
		return stats
	}

	stats["scheduler"] = s.sched.Stats()
	stats["ingest"] = map[string]any{
		"cameras":    s.sources.CameraCount(),
		"robots":     len(s.sources.RobotIDs()),
		"overwrites": s.sources.Overwrites(),
	}
	stats["stream"] = map[string]any{"clients": s.hub.Clients()}
	if s.writer != nil {
		written, failed := s.writer.Stats()
		stats["journal"] = map[string]any{
			"match":   s.matchID,
			"written": written,
			"failed":  failed,
			"pending": s.events.Len(),
		}
	}
	if s.replayWriter != nil {
		written, failed := s.replayWriter.Stats()
		recorded, dropped := s.recorder.Stats()
		stats["replay"] = map[string]any{
			"every":    s.cfg.ReplayRecordEvery,
			"recorded": recorded,
			"dropped":  dropped,
			"written":  written,
			"failed":   failed,
			"pending":  s.recordings.Len(),
		}
	}
	if s.feed != nil {
		frames, reports, errs := s.feed.Stats()
		stats["simfeed"] = map[string]any{
			"run_id":  s.feed.RunID(),
			"frames":  frames,
			"reports": reports,
			"errors":  errs,
		}
	}
	stats["recent_diagnostics"] = append([]scheduler.Diagnostic(nil), s.recent...)
	return stats
}
