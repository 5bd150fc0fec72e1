package refine

import (
	"fmt"
	"math"

	"github.com/okian/pitchside/internal/domain/game"
	"gonum.org/v1/gonum/mat"
)

// KalmanFilter smooths fused positions. The state is the position alone;
// the prediction step carries it forward by the previous velocity and
// both axes share one measurement variance. The process noise is twice
// the measurement variance.
//
// The filter holds no per-object state: the estimate and its covariance
// live on the snapshot, so refining stays a pure function.
type KalmanFilter struct {
	variance float64
}

// NewKalmanFilter returns a filter for a camera noise standard deviation
// in metres.
func NewKalmanFilter(noiseSD float64) (*KalmanFilter, error) {
	if !(noiseSD > 0) || math.IsInf(noiseSD, 0) {
		return nil, fmt.Errorf("%w: noise standard deviation must be positive, got %v", ErrInvalidFilter, noiseSD)
	}
	return &KalmanFilter{variance: noiseSD * noiseSD}, nil
}

// MeasurementCovariance is the covariance a fresh track starts with.
func (k *KalmanFilter) MeasurementCovariance() game.Cov2 {
	return game.Cov2{XX: k.variance, YY: k.variance}
}

// Predict moves an estimate dt seconds along vel and grows its covariance.
func (k *KalmanFilter) Predict(pos game.Vec2, cov game.Cov2, vel game.Vec2, dt float64) (game.Vec2, game.Cov2) {
	q := 2 * k.variance
	return pos.Add(vel.Scale(dt)), game.Cov2{XX: cov.XX + q, XY: cov.XY, YY: cov.YY + q}
}

// Update folds measurement z into the previous estimate. An estimate
// without covariance is a new track and takes z as is.
func (k *KalmanFilter) Update(pos game.Vec2, cov game.Cov2, vel game.Vec2, dt float64, z game.Vec2) (game.Vec2, game.Cov2) {
	if cov.IsZero() {
		return z, k.MeasurementCovariance()
	}
	pred, predCov := k.Predict(pos, cov, vel, dt)

	p := dense(predCov)
	r := mat.NewDiagDense(2, []float64{k.variance, k.variance})

	var innovCov mat.Dense
	innovCov.Add(p, r)
	var inv mat.Dense
	if err := inv.Inverse(&innovCov); err != nil {
		// P+R is positive definite; only NaN input gets here.
		return z, k.MeasurementCovariance()
	}
	var gain mat.Dense
	gain.Mul(p, &inv)

	var corr mat.VecDense
	corr.MulVec(&gain, mat.NewVecDense(2, []float64{z.X - pred.X, z.Y - pred.Y}))
	est := game.Vec2{X: pred.X + corr.AtVec(0), Y: pred.Y + corr.AtVec(1)}

	// Joseph form keeps the covariance symmetric and positive.
	var residual mat.Dense
	residual.Sub(mat.NewDiagDense(2, []float64{1, 1}), &gain)
	var next, noise mat.Dense
	next.Product(&residual, p, residual.T())
	noise.Product(&gain, r, gain.T())
	next.Add(&next, &noise)

	return est, game.Cov2{
		XX: next.At(0, 0),
		XY: (next.At(0, 1) + next.At(1, 0)) / 2,
		YY: next.At(1, 1),
	}
}

func dense(c game.Cov2) *mat.Dense {
	return mat.NewDense(2, 2, []float64{c.XX, c.XY, c.XY, c.YY})
}
