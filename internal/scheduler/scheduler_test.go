package scheduler_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/pitchside/internal/adapters/ingest"
	"github.com/okian/pitchside/internal/adapters/journal"
	"github.com/okian/pitchside/internal/domain/game"
	"github.com/okian/pitchside/internal/domain/profile"
	"github.com/okian/pitchside/internal/domain/referee"
	"github.com/okian/pitchside/internal/domain/refine"
	"github.com/okian/pitchside/internal/scheduler"
	"github.com/okian/pitchside/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

var t0 = time.Unix(1_700_000_000, 0)

const tick = time.Second / 60

var ours = game.Perspective{MyTeamIsYellow: true}

func at(i int) time.Time { return t0.Add(time.Duration(i) * tick) }

type sink struct {
	mu     sync.Mutex
	events []journal.Event
	err    error
}

func (s *sink) Enqueue(_ context.Context, e journal.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, e)
	return nil
}

func (s *sink) all() []journal.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]journal.Event(nil), s.events...)
}

func newScheduler(p profile.Profile, opts ...scheduler.Option) (*scheduler.Scheduler, *ingest.Sources) {
	src := ingest.NewSources(2, []int{0, 1})
	eng := referee.NewEngine(p, t0, logger.Nop())
	opts = append([]scheduler.Option{scheduler.WithLogger(logger.Nop())}, opts...)
	s, err := scheduler.New(src, eng, ours, opts...)
	So(err, ShouldBeNil)
	return s, src
}

func ballAt(cam int, ts time.Time, pos game.Vec2) game.VisionFrame {
	return game.VisionFrame{
		Camera:    cam,
		Timestamp: ts,
		Balls:     []game.BallObservation{{Position: pos, Confidence: 0.9}},
	}
}

func kickOff(s *scheduler.Scheduler) {
	So(s.Post(context.Background(), scheduler.CommandRequest(game.CommandNormalStart, referee.CauseOperator)), ShouldBeNil)
}

func TestNew(t *testing.T) {
	Convey("New rejects missing collaborators", t, func() {
		eng := referee.NewEngine(profile.Default(), t0, logger.Nop())
		_, err := scheduler.New(nil, eng, ours)
		So(errors.Is(err, scheduler.ErrNoSources), ShouldBeTrue)
		_, err = scheduler.New(ingest.NewSources(1, nil), nil, ours)
		So(errors.Is(err, scheduler.ErrNoEngine), ShouldBeTrue)
	})
}

func TestStepGoal(t *testing.T) {
	Convey("Given a live match fed through the camera buffers", t, func() {
		events := &sink{}
		var published []scheduler.Frame
		s, src := newScheduler(profile.Default(),
			scheduler.WithJournal(events, "match-1"),
			scheduler.WithSubscriber(scheduler.SubscriberFunc(func(f scheduler.Frame) {
				published = append(published, f)
			})))
		ctx := context.Background()

		kickOff(s)
		So(src.WriteVision(ballAt(0, at(1), game.Vec2{})), ShouldBeNil)
		first := s.Step(ctx, at(1))
		So(first.Referee.Command, ShouldEqual, game.CommandNormalStart)

		Convey("When the ball enters the right goal", func() {
			So(src.WriteVision(ballAt(1, at(2), game.Vec2{X: 4.6})), ShouldBeNil)
			f := s.Step(ctx, at(2))

			Convey("Then blue scores and the match stops with a yellow kickoff queued", func() {
				So(f.Snapshot.Seq, ShouldEqual, 2)
				So(f.Snapshot.Timestamp, ShouldEqual, at(2))
				So(f.Referee.Command, ShouldEqual, game.CommandStop)
				So(f.Referee.Blue.Score, ShouldEqual, 1)
				next, ok := f.Referee.Next()
				So(ok, ShouldBeTrue)
				So(next, ShouldEqual, game.CommandPrepareKickoffYellow)
				So(f.Snapshot.Referee, ShouldResemble, f.Referee)
			})

			Convey("Then both transitions reach the journal in order", func() {
				got := events.all()
				So(got, ShouldHaveLength, 2)
				So(got[0].Cause, ShouldEqual, string(referee.CauseOperator))
				So(got[0].Seq, ShouldEqual, 1)
				So(got[1].Cause, ShouldEqual, string(referee.CauseViolation))
				So(got[1].Rule, ShouldEqual, "goal")
				So(got[1].MatchID, ShouldEqual, "match-1")
				So(got[1].ScoreBlue, ShouldEqual, 1)
			})

			Convey("Then every frame is published and the latest is current", func() {
				So(published, ShouldHaveLength, 2)
				cur, ok := s.Current()
				So(ok, ShouldBeTrue)
				So(cur.Snapshot.Seq, ShouldEqual, 2)
				So(cur.Futures, ShouldContainKey, "linear")
			})

			Convey("Then the engine stays in STOP without a command", func() {
				for i := 3; i < 400; i++ {
					So(src.WriteVision(ballAt(0, at(i), game.Vec2{})), ShouldBeNil)
					s.Step(ctx, at(i))
				}
				cur, _ := s.Current()
				So(cur.Referee.Command, ShouldEqual, game.CommandStop)
			})
		})
	})
}

func TestStepTakesLatest(t *testing.T) {
	Convey("Given several frames written between two ticks", t, func() {
		s, src := newScheduler(profile.Default())
		for i := 1; i <= 5; i++ {
			So(src.WriteVision(ballAt(0, at(i), game.Vec2{X: float64(i) / 10})), ShouldBeNil)
		}

		f := s.Step(context.Background(), at(5))

		Convey("Then only the newest is fused and the rest count as overwrites", func() {
			So(f.Snapshot.Ball.Position.X, ShouldAlmostEqual, 0.5)
			So(f.Snapshot.VisionTime, ShouldEqual, at(5))
			So(src.Overwrites(), ShouldEqual, 4)
		})

		Convey("Then a tick with nothing new carries the state forward", func() {
			g := s.Step(context.Background(), at(6))
			So(g.Snapshot.Seq, ShouldEqual, 2)
			So(g.Snapshot.Ball, ShouldResemble, f.Snapshot.Ball)
		})
	})
}

func TestStepDiagnostics(t *testing.T) {
	Convey("Given a scheduler", t, func() {
		s, src := newScheduler(profile.Default())
		ctx := context.Background()
		So(src.WriteVision(ballAt(0, at(1), game.Vec2{X: 1})), ShouldBeNil)
		s.Step(ctx, at(1))

		Convey("When a camera frame has no timestamp", func() {
			So(src.WriteVision(game.VisionFrame{Camera: 0}), ShouldBeNil)
			f := s.Step(ctx, at(2))

			Convey("Then the refiner error is reported and the ball is kept", func() {
				So(f.Snapshot.Seq, ShouldEqual, 2)
				So(f.Snapshot.Ball.Position.X, ShouldAlmostEqual, 1)
				So(f.Diagnostics, ShouldHaveLength, 1)
				So(f.Diagnostics[0].Kind, ShouldEqual, scheduler.DiagRefinerError)
				So(f.Diagnostics[0].Source, ShouldEqual, "position")

				d := <-s.Diagnostics()
				So(d.Seq, ShouldEqual, 2)
			})
		})

		Convey("When the ball is far outside the field", func() {
			So(src.WriteVision(ballAt(0, at(2), game.Vec2{X: 10})), ShouldBeNil)
			f := s.Step(ctx, at(2))

			Convey("Then rule evaluation is skipped for the tick", func() {
				So(f.Diagnostics, ShouldHaveLength, 1)
				So(f.Diagnostics[0].Kind, ShouldEqual, scheduler.DiagRuleSkipped)
				So(f.Diagnostics[0].Message, ShouldEqual, referee.SkipBallOutOfRange)
				So(s.Stats().Diagnostics, ShouldEqual, 1)
			})
		})

		Convey("When an unknown command is posted", func() {
			So(s.Post(ctx, scheduler.CommandRequest(game.Command(99), referee.CauseOperator)), ShouldBeNil)
			f := s.Step(ctx, at(2))

			Convey("Then it is rejected without touching the state", func() {
				So(f.Diagnostics[0].Kind, ShouldEqual, scheduler.DiagCommandRejected)
				So(f.Referee.Command, ShouldEqual, game.CommandHalt)
			})
		})

		Convey("When a request has no kind", func() {
			err := s.Post(ctx, scheduler.Request{})
			So(errors.Is(err, scheduler.ErrInvalidRequest), ShouldBeTrue)
		})
	})
}

func TestStepPanic(t *testing.T) {
	Convey("Given a subscriber that panics once", t, func() {
		calls := 0
		s, _ := newScheduler(profile.Default(), scheduler.WithSubscriber(scheduler.SubscriberFunc(func(scheduler.Frame) {
			calls++
			if calls == 1 {
				panic("boom")
			}
		})))
		ctx := context.Background()

		f := s.Step(ctx, at(1))

		Convey("Then the tick reports it and the loop carries on", func() {
			So(f.Diagnostics, ShouldHaveLength, 1)
			So(f.Diagnostics[0].Kind, ShouldEqual, scheduler.DiagTickPanic)
			So(s.Stats().Panics, ShouldEqual, 1)

			g := s.Step(ctx, at(2))
			So(g.Snapshot.Seq, ShouldEqual, 2)
			So(g.Diagnostics, ShouldBeEmpty)
			So(s.Stats().Ticks, ShouldEqual, 2)
		})
	})
}

func TestJournalBackpressure(t *testing.T) {
	Convey("Given a journal that refuses events", t, func() {
		events := &sink{err: errors.New("full")}
		s, _ := newScheduler(profile.Default(), scheduler.WithJournal(events, "m"))
		kickOff(s)

		f := s.Step(context.Background(), at(1))

		Convey("Then the transition still happens and the drop is reported", func() {
			So(f.Referee.Command, ShouldEqual, game.CommandNormalStart)
			So(f.Diagnostics[0].Kind, ShouldEqual, scheduler.DiagJournalDropped)
		})
	})
}

func TestFollowExternalReferee(t *testing.T) {
	Convey("Given a scheduler following the external referee", t, func() {
		events := &sink{}
		s, src := newScheduler(profile.Default(),
			scheduler.WithFollowExternal(true),
			scheduler.WithJournal(events, "m"))
		ctx := context.Background()
		pkt := game.RefereePacket{
			Timestamp:      at(1),
			Command:        game.CommandStop,
			CommandCounter: 7,
			Stage:          game.StageNormalFirstHalfPre,
		}

		src.WriteReferee(pkt)
		f := s.Step(ctx, at(1))

		Convey("Then the packet's command is injected once per counter value", func() {
			So(f.Referee.Command, ShouldEqual, game.CommandStop)
			So(f.Snapshot.HasExternalReferee, ShouldBeTrue)

			pkt.Timestamp = at(2)
			src.WriteReferee(pkt)
			s.Step(ctx, at(2))
			So(events.all(), ShouldHaveLength, 1)

			pkt.Timestamp, pkt.CommandCounter, pkt.Command = at(3), 8, game.CommandForceStart
			src.WriteReferee(pkt)
			g := s.Step(ctx, at(3))
			So(g.Referee.Command, ShouldEqual, game.CommandForceStart)
			got := events.all()
			So(got, ShouldHaveLength, 2)
			So(got[1].Cause, ShouldEqual, string(referee.CauseExternal))
		})
	})

	Convey("Given a scheduler not following the external referee", t, func() {
		s, src := newScheduler(profile.Default())
		src.WriteReferee(game.RefereePacket{Timestamp: at(1), Command: game.CommandForceStart, CommandCounter: 1})
		f := s.Step(context.Background(), at(1))

		Convey("Then the packet is only copied into the snapshot", func() {
			So(f.Snapshot.ExternalReferee.Command, ShouldEqual, game.CommandForceStart)
			So(f.Referee.Command, ShouldEqual, game.CommandHalt)
		})
	})
}

func TestAutoRestartInjection(t *testing.T) {
	Convey("Given the arcade profile after a goal", t, func() {
		arcade, err := profile.Builtin("arcade")
		So(err, ShouldBeNil)
		s, src := newScheduler(arcade)
		ctx := context.Background()
		kickOff(s)
		s.Step(ctx, at(1))
		So(src.WriteVision(ballAt(0, at(2), game.Vec2{X: 4.7})), ShouldBeNil)
		So(s.Step(ctx, at(2)).Referee.Command, ShouldEqual, game.CommandStop)

		Convey("Then FORCE_START is queued once the stop has lasted long enough", func() {
			So(src.WriteVision(ballAt(0, at(3), game.Vec2{})), ShouldBeNil)
			So(s.Step(ctx, at(3)).Referee.Command, ShouldEqual, game.CommandStop)

			later := at(2).Add(arcade.Game.StopDuration())
			So(s.Step(ctx, later).Referee.Command, ShouldEqual, game.CommandStop)
			So(s.Stats().Pending, ShouldEqual, 1)

			f := s.Step(ctx, later.Add(tick))
			So(f.Referee.Command, ShouldEqual, game.CommandForceStart)
		})

		Convey("Then a restart that cannot be queued is retried on the next tick", func() {
			later := at(2).Add(arcade.Game.StopDuration())
			refused, cancel := context.WithCancel(ctx)
			cancel()
			So(s.Step(refused, later).Referee.Command, ShouldEqual, game.CommandStop)
			So(s.Stats().Pending, ShouldEqual, 0)

			So(s.Step(ctx, later.Add(tick)).Referee.Command, ShouldEqual, game.CommandStop)
			So(s.Stats().Pending, ShouldEqual, 1)

			f := s.Step(ctx, later.Add(2*tick))
			So(f.Referee.Command, ShouldEqual, game.CommandForceStart)
		})
	})
}

func TestProfileSwap(t *testing.T) {
	Convey("Given a halted match", t, func() {
		s, _ := newScheduler(profile.Default())
		ctx := context.Background()
		exhibition, err := profile.Builtin("exhibition")
		So(err, ShouldBeNil)

		Convey("When a swap is submitted", func() {
			done := make(chan error, 1)
			go func() { done <- s.Submit(ctx, scheduler.ProfileRequest(exhibition)) }()
			waitPending(s)
			s.Step(ctx, at(1))

			Convey("Then it is applied between ticks", func() {
				So(<-done, ShouldBeNil)
			})
		})

		Convey("When a swap is submitted mid-match", func() {
			kickOff(s)
			s.Step(ctx, at(1))
			done := make(chan error, 1)
			go func() { done <- s.Submit(ctx, scheduler.ProfileRequest(exhibition)) }()
			waitPending(s)
			s.Step(ctx, at(2))

			Convey("Then it is refused", func() {
				So(errors.Is(<-done, referee.ErrMatchInProgress), ShouldBeTrue)
			})
		})
	})
}

func TestKalmanFiltering(t *testing.T) {
	Convey("Given a scheduler with a Kalman filter", t, func() {
		f, err := refine.NewKalmanFilter(0.02)
		So(err, ShouldBeNil)
		s, src := newScheduler(profile.Default(), scheduler.WithKalman(f))
		ctx := context.Background()

		So(src.WriteVision(ballAt(0, at(1), game.Vec2{X: 1})), ShouldBeNil)
		s.Step(ctx, at(1))
		So(src.WriteVision(ballAt(0, at(2), game.Vec2{X: 1.2})), ShouldBeNil)
		frame := s.Step(ctx, at(2))

		Convey("Then the ball is smoothed towards the measurement", func() {
			So(s.Stats().Filtered, ShouldBeTrue)
			So(frame.Snapshot.Ball.Position.X, ShouldAlmostEqual, 1.15, 1e-9)
		})

		Convey("Then a profile swap keeps the filter", func() {
			exhibition, err := profile.Builtin("exhibition")
			So(err, ShouldBeNil)
			done := make(chan error, 1)
			go func() { done <- s.Submit(ctx, scheduler.ProfileRequest(exhibition)) }()
			waitPending(s)
			s.Step(ctx, at(3))
			So(<-done, ShouldBeNil)
			So(s.Stats().Filtered, ShouldBeTrue)

			So(src.WriteVision(ballAt(0, at(4), game.Vec2{X: 1.35})), ShouldBeNil)
			next := s.Step(ctx, at(4))
			So(next.Snapshot.Ball.Position.X, ShouldNotEqual, 1.35)
			So(next.Snapshot.Ball.Covariance.IsZero(), ShouldBeFalse)
		})
	})

	Convey("Given a scheduler without a filter", t, func() {
		s, _ := newScheduler(profile.Default())

		Convey("Then positions are reported unfiltered", func() {
			So(s.Stats().Filtered, ShouldBeFalse)
		})
	})
}

func waitPending(s *scheduler.Scheduler) {
	deadline := time.Now().Add(time.Second)
	for s.Stats().Pending == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
}

func TestRunShutdown(t *testing.T) {
	Convey("Given a running loop", t, func() {
		s, _ := newScheduler(profile.Default(), scheduler.WithPeriod(time.Millisecond))
		ctx := context.Background()
		go s.Run(ctx)

		deadline := time.Now().Add(2 * time.Second)
		for s.Stats().Ticks < 3 && time.Now().Before(deadline) {
			time.Sleep(time.Millisecond)
		}
		So(s.Stats().Ticks, ShouldBeGreaterThanOrEqualTo, 3)

		Convey("When it is shut down", func() {
			shutdownCtx, cancel := context.WithTimeout(ctx, time.Second)
			defer cancel()
			So(s.Shutdown(shutdownCtx), ShouldBeNil)

			Convey("Then ticking stops and requests are refused", func() {
				ticks := s.Stats().Ticks
				time.Sleep(5 * time.Millisecond)
				So(s.Stats().Ticks, ShouldEqual, ticks)
				err := s.Post(ctx, scheduler.CommandRequest(game.CommandStop, referee.CauseOperator))
				So(errors.Is(err, scheduler.ErrStopped), ShouldBeTrue)
			})
		})
	})
}
