package predict

import (
	"fmt"
	"time"

	"github.com/okian/pitchside/internal/domain/game"
	"gonum.org/v1/gonum/mat"
)

// Estimate is a predicted position and velocity.
type Estimate struct {
	Position game.Vec2 `json:"position"`
	Velocity game.Vec2 `json:"velocity"`
}

// Strategy extrapolates one body's track horizon past its last sample.
// ok is false when the track is too short for the method.
type Strategy interface {
	Name() string
	Estimate(track []Sample, horizon time.Duration) (e Estimate, ok bool)
}

func seconds(from, to time.Time) float64 { return to.Sub(from).Seconds() }

// Linear extrapolates from the last two samples.
type Linear struct{}

func (Linear) Name() string { return "linear" }

func (Linear) Estimate(track []Sample, horizon time.Duration) (Estimate, bool) {
	if len(track) < 2 {
		return Estimate{}, false
	}
	a, b := track[len(track)-2], track[len(track)-1]
	dt := seconds(a.At, b.At)
	if dt <= 0 {
		return Estimate{}, false
	}
	v := b.Position.Sub(a.Position).Scale(1 / dt)
	return Estimate{Position: b.Position.Add(v.Scale(horizon.Seconds())), Velocity: v}, true
}

// DoubleExponential is Holt's linear smoothing with a per-second trend,
// so irregular sample spacing is handled.
type DoubleExponential struct {
	Alpha float64
	Beta  float64
}

// NewDoubleExponential validates the smoothing factors.
func NewDoubleExponential(alpha, beta float64) (DoubleExponential, error) {
	if alpha <= 0 || alpha > 1 || beta <= 0 || beta > 1 {
		return DoubleExponential{}, fmt.Errorf("%w: alpha %v beta %v", ErrInvalidStrategy, alpha, beta)
	}
	return DoubleExponential{Alpha: alpha, Beta: beta}, nil
}

func (DoubleExponential) Name() string { return "double_exponential" }

func (d DoubleExponential) Estimate(track []Sample, horizon time.Duration) (Estimate, bool) {
	if len(track) < 2 {
		return Estimate{}, false
	}
	dt0 := seconds(track[0].At, track[1].At)
	if dt0 <= 0 {
		return Estimate{}, false
	}
	level := track[1].Position
	trend := track[1].Position.Sub(track[0].Position).Scale(1 / dt0)
	for i := 2; i < len(track); i++ {
		dt := seconds(track[i-1].At, track[i].At)
		if dt <= 0 {
			continue
		}
		forecast := level.Add(trend.Scale(dt))
		next := track[i].Position.Scale(d.Alpha).Add(forecast.Scale(1 - d.Alpha))
		trend = next.Sub(level).Scale(d.Beta / dt).Add(trend.Scale(1 - d.Beta))
		level = next
	}
	return Estimate{Position: level.Add(trend.Scale(horizon.Seconds())), Velocity: trend}, true
}

// LeastSquares fits x(t) and y(t) as straight lines over the last Window
// samples.
type LeastSquares struct {
	Window int
}

func (LeastSquares) Name() string { return "least_squares" }

func (l LeastSquares) Estimate(track []Sample, horizon time.Duration) (Estimate, bool) {
	if l.Window > 0 && len(track) > l.Window {
		track = track[len(track)-l.Window:]
	}
	n := len(track)
	if n < 3 {
		return Estimate{}, false
	}
	last := track[n-1].At
	if seconds(track[0].At, last) <= 0 {
		return Estimate{}, false
	}

	// Time is measured relative to the newest sample, so the intercept is
	// the fitted current position.
	design := mat.NewDense(n, 2, nil)
	xs := make([]float64, n)
	ys := make([]float64, n)
	for i, s := range track {
		design.Set(i, 0, 1)
		design.Set(i, 1, seconds(last, s.At))
		xs[i] = s.Position.X
		ys[i] = s.Position.Y
	}

	var cx, cy mat.VecDense
	if err := cx.SolveVec(design, mat.NewVecDense(n, xs)); err != nil {
		return Estimate{}, false
	}
	if err := cy.SolveVec(design, mat.NewVecDense(n, ys)); err != nil {
		return Estimate{}, false
	}
	pos := game.Vec2{X: cx.AtVec(0), Y: cy.AtVec(0)}
	vel := game.Vec2{X: cx.AtVec(1), Y: cy.AtVec(1)}
	if !pos.IsFinite() || !vel.IsFinite() {
		return Estimate{}, false
	}
	return Estimate{Position: pos.Add(vel.Scale(horizon.Seconds())), Velocity: vel}, true
}
