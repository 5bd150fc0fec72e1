package predict_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/pitchside/internal/domain/game"
	"github.com/okian/pitchside/internal/domain/predict"
	. "github.com/smartystreets/goconvey/convey"
)

var t0 = time.Unix(1_700_000_000, 0)

// moving builds a snapshot with the ball and yellow robot 1 travelling at
// v m/s along x, observed every 20 ms.
func moving(seq int, v float64) game.Snapshot {
	at := t0.Add(time.Duration(seq) * 20 * time.Millisecond)
	x := v * at.Sub(t0).Seconds()
	s := game.NewSnapshot(game.Perspective{MyTeamIsYellow: true})
	s.Seq = uint64(seq)
	s.Timestamp = at
	s.VisionTime = at
	s.Ball = game.Ball{Position: game.Vec2{X: x, Y: 1}, Visible: true}
	s.Friendly = []game.Robot{{ID: 1, Position: game.Vec2{X: -x}}}
	return s
}

func track(points ...float64) []predict.Sample {
	out := make([]predict.Sample, len(points))
	for i, x := range points {
		out[i] = predict.Sample{At: t0.Add(time.Duration(i) * 100 * time.Millisecond), Position: game.Vec2{X: x}}
	}
	return out
}

func TestHistory(t *testing.T) {
	Convey("Given a history of capacity 3", t, func() {
		h := predict.NewHistory(3)
		So(h.Cap(), ShouldEqual, 3)
		_, ok := h.Series().Latest()
		So(ok, ShouldBeFalse)

		Convey("When five snapshots are pushed", func() {
			for i := range 5 {
				h.Push(moving(i, 1))
			}

			Convey("Then only the newest three remain, oldest first", func() {
				So(h.Len(), ShouldEqual, 3)
				s := h.Series()
				latest, ok := s.Latest()
				So(ok, ShouldBeTrue)
				So(latest.Seq, ShouldEqual, 4)
				ball := s.Ball()
				So(ball, ShouldHaveLength, 3)
				So(ball[0].At, ShouldEqual, t0.Add(40*time.Millisecond))
			})

			Convey("Then the series does not change when more is pushed", func() {
				s := h.Series()
				h.Push(moving(9, 1))
				latest, _ := s.Latest()
				So(latest.Seq, ShouldEqual, 4)
			})
		})

		Convey("Ticks without new vision are collapsed", func() {
			a := moving(1, 1)
			h.Push(a)
			h.Push(a)
			So(h.Series().Ball(), ShouldHaveLength, 1)
			So(h.Series().Robot(game.TeamYellow, 1), ShouldHaveLength, 1)
			So(h.Series().Robot(game.TeamBlue, 1), ShouldBeEmpty)
		})
	})
}

func TestStrategies(t *testing.T) {
	Convey("Given a body moving at 2 m/s", t, func() {
		samples := track(0, 0.2, 0.4, 0.6, 0.8)
		horizon := 500 * time.Millisecond
		des, err := predict.NewDoubleExponential(0.5, 0.3)
		So(err, ShouldBeNil)

		for _, st := range []predict.Strategy{predict.Linear{}, des, predict.LeastSquares{Window: 4}} {
			Convey("Strategy "+st.Name()+" extrapolates the line", func() {
				e, ok := st.Estimate(samples, horizon)
				So(ok, ShouldBeTrue)
				So(e.Velocity.X, ShouldAlmostEqual, 2, 1e-6)
				So(e.Position.X, ShouldAlmostEqual, 1.8, 1e-6)
			})
		}
	})

	Convey("Given too little data", t, func() {
		So(func() bool { _, ok := predict.Linear{}.Estimate(track(1), time.Second); return ok }(), ShouldBeFalse)
		So(func() bool {
			_, ok := predict.DoubleExponential{Alpha: 0.5, Beta: 0.5}.Estimate(track(1), time.Second)
			return ok
		}(), ShouldBeFalse)
		So(func() bool { _, ok := predict.LeastSquares{}.Estimate(track(1, 2), time.Second); return ok }(), ShouldBeFalse)
	})

	Convey("Given samples at the same instant", t, func() {
		same := []predict.Sample{{At: t0}, {At: t0}, {At: t0}}
		_, ok := predict.LeastSquares{}.Estimate(same, time.Second)
		So(ok, ShouldBeFalse)
		_, ok = predict.Linear{}.Estimate(same, time.Second)
		So(ok, ShouldBeFalse)
	})

	Convey("Smoothing factors outside (0,1] are rejected", t, func() {
		_, err := predict.NewDoubleExponential(0, 0.5)
		So(errors.Is(err, predict.ErrInvalidStrategy), ShouldBeTrue)
		_, err = predict.NewDoubleExponential(0.5, 1.5)
		So(errors.Is(err, predict.ErrInvalidStrategy), ShouldBeTrue)
	})
}

func TestPredictor(t *testing.T) {
	Convey("Given a predictor with a 100 ms horizon", t, func() {
		p := predict.NewPredictor(10, 100*time.Millisecond)

		Convey("An empty history yields no futures", func() {
			So(p.Futures(), ShouldBeNil)
		})

		Convey("When a steady motion is observed", func() {
			for i := range 6 {
				p.Observe(moving(i, 1))
			}
			futures := p.Futures()

			Convey("Then every default strategy publishes a future", func() {
				So(p.HistoryLen(), ShouldEqual, 6)
				So(futures, ShouldHaveLength, 3)
				for _, name := range []string{"linear", "double_exponential", "least_squares"} {
					f, ok := futures[name]
					So(ok, ShouldBeTrue)
					So(f.BaseSeq, ShouldEqual, 5)
					So(f.HasBall, ShouldBeTrue)
					So(f.Ball.Position.X, ShouldAlmostEqual, 0.2, 1e-6)
					So(f.Ball.Position.Y, ShouldAlmostEqual, 1, 1e-6)
					So(f.Friendly, ShouldHaveLength, 1)
					So(f.Friendly[0].Velocity.X, ShouldAlmostEqual, -1, 1e-6)
				}
			})
		})
	})
}
