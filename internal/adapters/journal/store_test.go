package journal_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/pitchside/internal/adapters/journal"
	"github.com/okian/pitchside/internal/domain/game"
	. "github.com/smartystreets/goconvey/convey"
)

func openStore(t *testing.T) *journal.Store {
	t.Helper()
	s, err := journal.Open(context.Background(), filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestJournal(t *testing.T) {
	Convey("Given a fresh journal", t, func() {
		ctx := context.Background()
		s := openStore(t)
		start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		p := game.Perspective{MyTeamIsYellow: false, MyTeamIsRight: true}

		m, err := s.StartMatch(ctx, "strict_ai", p, start)
		So(err, ShouldBeNil)
		So(m.ID, ShouldHaveLength, 36)

		Convey("When transitions are appended", func() {
			goal := journal.Event{
				MatchID: m.ID, Seq: 42, At: start.Add(time.Minute), Cause: "violation", Rule: "goal",
				From: game.CommandNormalStart, Command: game.CommandStop,
				Next: game.CommandPrepareKickoffYellow, HasNext: true,
				HasDesignated: true,
				Stage:         game.StageNormalFirstHalf, ScoreBlue: 1, Message: "goal by blue",
			}
			start2 := journal.Event{
				MatchID: m.ID, Seq: 300, At: start.Add(2 * time.Minute), Cause: "operator",
				From: game.CommandStop, Command: game.CommandNormalStart,
				Stage: game.StageNormalFirstHalf, ScoreBlue: 1,
			}
			So(s.Append(ctx, goal), ShouldBeNil)
			So(s.Append(ctx, start2), ShouldBeNil)

			Convey("Then they read back in order with optional fields intact", func() {
				events, err := s.Events(ctx, m.ID)
				So(err, ShouldBeNil)
				So(events, ShouldHaveLength, 2)
				So(events[0], ShouldResemble, goal)
				So(events[1].HasNext, ShouldBeFalse)
				So(events[1].HasDesignated, ShouldBeFalse)
				So(events[1].Command, ShouldEqual, game.CommandNormalStart)
			})
		})

		Convey("Ending the match stamps the end time", func() {
			So(s.EndMatch(ctx, m.ID, start.Add(time.Hour)), ShouldBeNil)
			got, err := s.Match(ctx, m.ID)
			So(err, ShouldBeNil)
			So(got.Profile, ShouldEqual, "strict_ai")
			So(got.Perspective, ShouldResemble, p)
			So(got.EndedAt.Equal(start.Add(time.Hour)), ShouldBeTrue)
		})

		Convey("Unknown matches are reported", func() {
			So(errors.Is(s.EndMatch(ctx, "nope", start), journal.ErrUnknownMatch), ShouldBeTrue)
			_, err := s.Match(ctx, "nope")
			So(errors.Is(err, journal.ErrUnknownMatch), ShouldBeTrue)
		})

		Convey("Events for an unknown match violate the foreign key", func() {
			err := s.Append(ctx, journal.Event{MatchID: "nope", At: start, Cause: "operator"})
			So(err, ShouldNotBeNil)
		})
	})
}

func TestOpenFailure(t *testing.T) {
	Convey("Opening inside a missing directory fails", t, func() {
		_, err := journal.Open(context.Background(), filepath.Join(t.TempDir(), "missing", "j.db"))
		So(errors.Is(err, journal.ErrOpenJournal), ShouldBeTrue)
	})
}
