package refine_test

import (
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/okian/pitchside/internal/domain/field"
	"github.com/okian/pitchside/internal/domain/game"
	"github.com/okian/pitchside/internal/domain/refine"
	. "github.com/smartystreets/goconvey/convey"
)

const noiseSD = 0.02

func TestNewKalmanFilter(t *testing.T) {
	Convey("Given measurement noise values", t, func() {
		Convey("A positive standard deviation is accepted", func() {
			f, err := refine.NewKalmanFilter(noiseSD)
			So(err, ShouldBeNil)
			So(f.MeasurementCovariance(), ShouldResemble, game.Cov2{XX: noiseSD * noiseSD, YY: noiseSD * noiseSD})
		})

		Convey("Zero, negative and non-finite values are rejected", func() {
			for _, sd := range []float64{0, -0.1, math.NaN(), math.Inf(1)} {
				_, err := refine.NewKalmanFilter(sd)
				So(errors.Is(err, refine.ErrInvalidFilter), ShouldBeTrue)
			}
		})
	})
}

func TestKalmanFilterUpdate(t *testing.T) {
	Convey("Given a filter", t, func() {
		f, err := refine.NewKalmanFilter(noiseSD)
		So(err, ShouldBeNil)
		r := f.MeasurementCovariance()

		Convey("A track without covariance starts at the measurement", func() {
			pos, cov := f.Update(game.Vec2{X: 5}, game.Cov2{}, game.Vec2{X: 1}, 0.1, game.Vec2{X: 1, Y: 2})
			So(pos, ShouldResemble, game.Vec2{X: 1, Y: 2})
			So(cov, ShouldResemble, r)
		})

		Convey("An update lands between the prediction and the measurement", func() {
			pos, cov := f.Update(game.Vec2{}, r, game.Vec2{}, 0.1, game.Vec2{X: 1})
			// P = 3 var before the update, so the gain is 3/4.
			So(pos.X, ShouldAlmostEqual, 0.75, 1e-9)
			So(pos.Y, ShouldAlmostEqual, 0, 1e-9)
			So(cov.XX, ShouldAlmostEqual, 0.75*r.XX, 1e-12)
			So(cov.XY, ShouldAlmostEqual, 0, 1e-12)
			So(cov.YY, ShouldAlmostEqual, 0.75*r.YY, 1e-12)
		})

		Convey("The prediction uses the previous velocity", func() {
			pos, _ := f.Update(game.Vec2{}, r, game.Vec2{X: 1}, 0.5, game.Vec2{X: 0.5})
			So(pos.X, ShouldAlmostEqual, 0.5, 1e-9)
		})

		Convey("Repeated measurements converge", func() {
			pos, cov := game.Vec2{}, r
			z := game.Vec2{X: 2, Y: 1}
			for range 30 {
				pos, cov = f.Update(pos, cov, game.Vec2{}, 1.0/60, z)
			}
			So(pos.Dist(z), ShouldBeLessThan, 1e-6)
			So(cov.XX, ShouldBeGreaterThan, 0)
			So(cov.XX, ShouldBeLessThan, 2*r.XX)
		})
	})
}

func TestKalmanFilterPredict(t *testing.T) {
	Convey("Given an estimate moving along x", t, func() {
		f, err := refine.NewKalmanFilter(noiseSD)
		So(err, ShouldBeNil)
		r := f.MeasurementCovariance()

		pos, cov := f.Predict(game.Vec2{X: 1, Y: 1}, r, game.Vec2{X: 2}, 0.5)

		Convey("Then it moves by velocity times dt and grows less certain", func() {
			So(pos, ShouldResemble, game.Vec2{X: 2, Y: 1})
			So(cov.XX, ShouldAlmostEqual, 3*r.XX, 1e-12)
			So(cov.YY, ShouldAlmostEqual, 3*r.YY, 1e-12)
		})
	})
}

func TestFilteredPositionRefiner(t *testing.T) {
	Convey("Given the standard pipeline with a Kalman filter", t, func() {
		f, err := refine.NewKalmanFilter(noiseSD)
		So(err, ShouldBeNil)
		p, err := refine.Standard(field.Default(), 0.15, refine.WithKalman(f))
		So(err, ShouldBeNil)

		s, errs := p.Run(game.NewSnapshot(persp), visionBatch(t0, game.Vec2{X: 1}, robotAt(2, 0, 0)))
		So(errs, ShouldBeEmpty)

		Convey("The first frame is taken as measured", func() {
			So(s.Ball.Position.X, ShouldEqual, 1)
			So(s.Friendly[0].Position.X, ShouldEqual, 0)
			So(s.Friendly[0].Covariance, ShouldResemble, f.MeasurementCovariance())
		})

		Convey("When the next frame moves robot and ball", func() {
			next, errs := p.Run(s, visionBatch(t0.Add(100*time.Millisecond), game.Vec2{X: 1.2}, robotAt(2, 0.1, 0)))
			So(errs, ShouldBeEmpty)

			Convey("Then both are smoothed and velocity follows the filtered track", func() {
				So(next.Friendly[0].Position.X, ShouldAlmostEqual, 0.075, 1e-9)
				So(next.Friendly[0].Velocity.X, ShouldAlmostEqual, 0.75, 1e-9)
				So(next.Ball.Position.X, ShouldAlmostEqual, 1.15, 1e-9)
				So(next.Ball.Velocity.X, ShouldAlmostEqual, 1.5, 1e-9)
			})

			Convey("Then a robot that vanishes coasts one step and stops", func() {
				before := next.Clone()
				gone, errs := p.Run(next, visionBatch(t0.Add(200*time.Millisecond), game.Vec2{X: 1.3}))
				So(errs, ShouldBeEmpty)
				So(reflect.DeepEqual(next, before), ShouldBeTrue)
				So(gone.Friendly, ShouldHaveLength, 1)
				So(gone.Friendly[0].Position.X, ShouldAlmostEqual, 0.15, 1e-9)
				So(gone.Friendly[0].Velocity, ShouldResemble, game.Vec2{})
				So(gone.Friendly[0].Covariance.XX, ShouldBeGreaterThan, next.Friendly[0].Covariance.XX)
			})
		})
	})

	Convey("Given a position refiner without a filter", t, func() {
		r := refine.NewPositionRefiner(refine.NewCameraCombiner(field.Default()))

		Convey("Then positions pass through unfiltered", func() {
			So(r.Filtered(), ShouldBeFalse)
			s, _ := r.Refine(game.NewSnapshot(persp), visionBatch(t0, game.Vec2{X: 1}, robotAt(2, 0, 0)).Vision)
			So(s.Friendly[0].Covariance.IsZero(), ShouldBeTrue)
		})
	})
}
