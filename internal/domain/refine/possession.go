package refine

import (
	"github.com/okian/pitchside/internal/domain/game"
)

// PossessionRefiner decides who controls the ball. A friendly robot that
// reports the ball on its sensor wins; otherwise the nearest robot of
// either team within Radius of the ball.
type PossessionRefiner struct {
	Radius float64
}

func NewPossessionRefiner(radius float64) *PossessionRefiner {
	return &PossessionRefiner{Radius: radius}
}

func (*PossessionRefiner) Name() string  { return "possession" }
func (*PossessionRefiner) Reads() Field  { return FieldBall | FieldRobots }
func (*PossessionRefiner) Writes() Field { return FieldPossession }

// Select fires whenever positions or sensor flags may have moved.
func (*PossessionRefiner) Select(b game.Batch) (game.Datapoint, bool) {
	switch {
	case len(b.Vision.Frames) > 0:
		return b.Vision, true
	case len(b.Telemetry.Reports) > 0:
		return b.Telemetry, true
	default:
		return nil, false
	}
}

func (r *PossessionRefiner) Refine(s game.Snapshot, _ game.Datapoint) (game.Snapshot, error) {
	out := s.Clone()
	out.Possession = r.resolve(s)
	return out, nil
}

func (r *PossessionRefiner) resolve(s game.Snapshot) game.Possession {
	for _, rb := range s.Friendly {
		if rb.HasBall {
			return game.Possession{Team: s.Perspective.Friendly(), RobotID: rb.ID}
		}
	}
	if !s.Ball.Visible {
		return game.Possession{}
	}
	best := game.Possession{}
	bestDist := r.Radius
	check := func(team game.Team, robots []game.Robot) {
		for _, rb := range robots {
			if d := rb.Position.Dist(s.Ball.Position); d <= bestDist {
				bestDist = d
				best = game.Possession{Team: team, RobotID: rb.ID}
			}
		}
	}
	check(s.Perspective.Friendly(), s.Friendly)
	check(s.Perspective.Enemy(), s.Enemy)
	return best
}
