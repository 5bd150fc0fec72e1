package refine

import (
	"fmt"
	"slices"

	"github.com/okian/pitchside/internal/domain/game"
)

// PositionRefiner writes fused ball and robot positions and derives
// velocity by finite difference against the previous vision time. With a
// Kalman filter the positions are smoothed first, and robots missing from
// a frame coast one step along their last velocity.
type PositionRefiner struct {
	combiner CameraCombiner
	filter   *KalmanFilter
}

// PositionOption configures a PositionRefiner.
type PositionOption func(*PositionRefiner)

// WithKalman smooths positions with f. A nil filter leaves them raw.
func WithKalman(f *KalmanFilter) PositionOption {
	return func(r *PositionRefiner) { r.filter = f }
}

func NewPositionRefiner(c CameraCombiner, opts ...PositionOption) *PositionRefiner {
	r := &PositionRefiner{combiner: c}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Filtered reports whether a Kalman filter is attached.
func (r *PositionRefiner) Filtered() bool { return r.filter != nil }

func (*PositionRefiner) Name() string  { return "position" }
func (*PositionRefiner) Reads() Field  { return 0 }
func (*PositionRefiner) Writes() Field { return FieldBall | FieldRobots | FieldVisionTime }

func (*PositionRefiner) Select(b game.Batch) (game.Datapoint, bool) {
	if len(b.Vision.Frames) == 0 {
		return nil, false
	}
	return b.Vision, true
}

func (r *PositionRefiner) Refine(s game.Snapshot, d game.Datapoint) (game.Snapshot, error) {
	vb, ok := d.(game.VisionBatch)
	if !ok {
		return s, fmt.Errorf("%w: %T", ErrUnexpectedDatapoint, d)
	}
	fused, err := r.combiner.Combine(vb.Frames)
	if err != nil {
		return s, err
	}

	var dt float64
	if !s.VisionTime.IsZero() {
		dt = fused.Time.Sub(s.VisionTime).Seconds()
		if dt <= 0 {
			// Older than what we already fused; keep the newer state.
			return s, nil
		}
	}

	out := s.Clone()

	if fused.Ball.Visible {
		ball := fused.Ball
		if dt > 0 && s.Ball.Visible {
			if r.filter != nil {
				ball.Position, ball.Covariance = r.filter.Update(
					s.Ball.Position, s.Ball.Covariance, s.Ball.Velocity, dt, ball.Position)
			}
			ball.Velocity = ball.Position.Sub(s.Ball.Position).Scale(1 / dt)
		} else if r.filter != nil {
			ball.Covariance = r.filter.MeasurementCovariance()
		}
		out.Ball = ball
	}

	out.Friendly = r.mergeRobots(s.Friendly, fusedFor(fused, s.Perspective.Friendly()), dt)
	out.Enemy = r.mergeRobots(s.Enemy, fusedFor(fused, s.Perspective.Enemy()), dt)
	out.VisionTime = fused.Time
	return out, nil
}

func fusedFor(f Fused, t game.Team) []game.Robot {
	if t == game.TeamBlue {
		return f.Blue
	}
	return f.Yellow
}

// mergeRobots updates robots seen this tick. Unseen robots keep their
// state, or coast one step with zero velocity when filtering. prev is not
// modified. HasBall carries over; telemetry owns it.
func (r *PositionRefiner) mergeRobots(prev, seen []game.Robot, dt float64) []game.Robot {
	out := slices.Clone(prev)
	for _, robot := range seen {
		i := slices.IndexFunc(out, func(o game.Robot) bool { return o.ID == robot.ID })
		if i < 0 {
			if r.filter != nil {
				robot.Covariance = r.filter.MeasurementCovariance()
			}
			out = append(out, robot)
			continue
		}
		old := out[i]
		robot.HasBall = old.HasBall
		if dt > 0 {
			if r.filter != nil {
				robot.Position, robot.Covariance = r.filter.Update(
					old.Position, old.Covariance, old.Velocity, dt, robot.Position)
			}
			robot.Velocity = robot.Position.Sub(old.Position).Scale(1 / dt)
		}
		out[i] = robot
	}
	if r.filter != nil && dt > 0 {
		for i := range len(prev) {
			id := out[i].ID
			if out[i].Covariance.IsZero() || slices.ContainsFunc(seen, func(o game.Robot) bool { return o.ID == id }) {
				continue
			}
			out[i].Position, out[i].Covariance = r.filter.Predict(out[i].Position, out[i].Covariance, out[i].Velocity, dt)
			out[i].Velocity = game.Vec2{}
		}
	}
	slices.SortFunc(out, func(a, b game.Robot) int { return a.ID - b.ID })
	return out
}
