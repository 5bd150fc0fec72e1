package referee

import (
	"github.com/okian/pitchside/internal/domain/field"
	"github.com/okian/pitchside/internal/domain/game"
	"github.com/okian/pitchside/internal/domain/profile"
)

// OutOfBoundsRule awards a direct free kick against the last team to touch
// the ball when it leaves the field outside a goal.
type OutOfBoundsRule struct {
	cfg       profile.OutOfBounds
	lastTouch game.Team
}

func NewOutOfBoundsRule(cfg profile.OutOfBounds) *OutOfBoundsRule {
	return &OutOfBoundsRule{cfg: cfg}
}

func (*OutOfBoundsRule) Kind() Kind { return KindOutOfBounds }

// LastTouch returns the team believed to have touched the ball last.
func (r *OutOfBoundsRule) LastTouch() game.Team { return r.lastTouch }

func (r *OutOfBoundsRule) Check(s game.Snapshot, g field.Geometry, cmd game.Command) (Violation, bool) {
	if !cmd.IsLive() || !s.Ball.Visible {
		return Violation{}, false
	}
	r.track(s)

	p := s.Ball.Position
	if g.InField(p) || g.InGoal(p) {
		return Violation{}, false
	}
	kicker := r.assign()
	return Violation{
		Kind:          KindOutOfBounds,
		Offender:      kicker.Opponent(),
		Beneficiary:   kicker,
		Command:       game.CommandStop,
		Next:          game.DirectFree(kicker),
		HasNext:       true,
		Designated:    g.Inset(p, r.cfg.InfieldOffset),
		HasDesignated: true,
		Message:       "ball out of bounds",
	}, true
}

func (r *OutOfBoundsRule) assign() game.Team {
	switch r.cfg.FreeKickAssigner {
	case profile.AssignYellow:
		return game.TeamYellow
	case profile.AssignBlue:
		return game.TeamBlue
	}
	if r.lastTouch == game.TeamUnknown {
		return game.TeamYellow
	}
	return r.lastTouch.Opponent()
}

// track updates the last toucher: our ball sensor first, otherwise the
// nearest robot within the touch radius.
func (r *OutOfBoundsRule) track(s game.Snapshot) {
	for _, rb := range s.Friendly {
		if rb.HasBall {
			r.lastTouch = s.Perspective.Friendly()
			return
		}
	}
	best, bestDist := game.TeamUnknown, r.cfg.TouchRadius
	for _, team := range []game.Team{s.Perspective.Friendly(), s.Perspective.Enemy()} {
		for _, rb := range s.Robots(team) {
			if d := rb.Position.Dist(s.Ball.Position); d <= bestDist {
				best, bestDist = team, d
			}
		}
	}
	if best != game.TeamUnknown {
		r.lastTouch = best
	}
}

func (r *OutOfBoundsRule) Reset() { r.lastTouch = game.TeamUnknown }
