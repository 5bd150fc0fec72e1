package journal_test

import (
	"context"
	"testing"
	"time"

	"github.com/okian/pitchside/internal/adapters/journal"
	"github.com/okian/pitchside/internal/domain/game"
	. "github.com/smartystreets/goconvey/convey"
)

func recordedSnapshot(seq uint64, at time.Time) game.Snapshot {
	s := game.NewSnapshot(game.Perspective{MyTeamIsYellow: true})
	s.Seq, s.Timestamp = seq, at
	s.Ball = game.Ball{Position: game.Vec2{X: float64(seq) / 10}, Visible: true, Confidence: 0.9}
	s.Friendly = []game.Robot{{ID: 1, Position: game.Vec2{X: -1, Y: 0.5}}}
	s.Possession = game.Possession{Team: game.TeamYellow, RobotID: 1}
	s.Referee = game.RefereeState{Command: game.CommandNormalStart, Stage: game.StageNormalFirstHalf}
	s.Referee.Blue.Score = 2
	return s
}

func TestRecordings(t *testing.T) {
	Convey("Given a match with recorded snapshots", t, func() {
		ctx := context.Background()
		s := openStore(t)
		start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		m, err := s.StartMatch(ctx, "strict_ai", game.Perspective{MyTeamIsYellow: true}, start)
		So(err, ShouldBeNil)

		for _, seq := range []uint64{6, 12, 18, 24} {
			at := start.Add(time.Duration(seq) * 100 * time.Millisecond)
			So(s.AppendRecording(ctx, journal.Recording{MatchID: m.ID, Seq: seq, At: at, Snapshot: recordedSnapshot(seq, at)}), ShouldBeNil)
		}

		Convey("Then a page starting mid-match reads back in order", func() {
			got, err := s.Recordings(ctx, m.ID, 10, 2)
			So(err, ShouldBeNil)
			So(got, ShouldHaveLength, 2)
			So(got[0].Seq, ShouldEqual, 12)
			So(got[1].Seq, ShouldEqual, 18)
			So(got[0].At.Equal(start.Add(1200*time.Millisecond)), ShouldBeTrue)
		})

		Convey("Then the snapshot survives the round trip", func() {
			got, err := s.Recordings(ctx, m.ID, 0, 0)
			So(err, ShouldBeNil)
			So(got, ShouldHaveLength, 4)
			snap := got[0].Snapshot
			So(snap.Seq, ShouldEqual, 6)
			So(snap.Ball.Position.X, ShouldAlmostEqual, 0.6)
			So(snap.Friendly, ShouldHaveLength, 1)
			So(snap.Possession.Team, ShouldEqual, game.TeamYellow)
			So(snap.Referee.Command, ShouldEqual, game.CommandNormalStart)
			So(snap.Referee.Blue.Score, ShouldEqual, 2)
		})

		Convey("Then recording a sequence id twice fails", func() {
			err := s.AppendRecording(ctx, journal.Recording{MatchID: m.ID, Seq: 6, At: start, Snapshot: recordedSnapshot(6, start)})
			So(err, ShouldNotBeNil)
		})

		Convey("Then an unknown match has no recordings", func() {
			got, err := s.Recordings(ctx, "nope", 0, 10)
			So(err, ShouldBeNil)
			So(got, ShouldBeEmpty)
		})
	})
}

func TestMatches(t *testing.T) {
	Convey("Given two matches", t, func() {
		ctx := context.Background()
		s := openStore(t)
		start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		first, err := s.StartMatch(ctx, "strict_ai", game.Perspective{}, start)
		So(err, ShouldBeNil)
		second, err := s.StartMatch(ctx, "arcade", game.Perspective{MyTeamIsYellow: true}, start.Add(time.Hour))
		So(err, ShouldBeNil)

		Convey("Then they are listed newest first", func() {
			got, err := s.Matches(ctx)
			So(err, ShouldBeNil)
			So(got, ShouldHaveLength, 2)
			So(got[0].ID, ShouldEqual, second.ID)
			So(got[1].ID, ShouldEqual, first.ID)
			So(got[0].EndedAt.IsZero(), ShouldBeTrue)
		})
	})
}
