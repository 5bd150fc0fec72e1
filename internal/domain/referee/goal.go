package referee

import (
	"time"

	"github.com/okian/pitchside/internal/domain/field"
	"github.com/okian/pitchside/internal/domain/game"
	"github.com/okian/pitchside/pkg/metrics"
)

// GoalRule fires when the ball is past a goal line inside the mouth during
// live play. The conceding side comes from the snapshot perspective, so the
// rule is symmetric in which half a team defends.
type GoalRule struct {
	cooldown time.Duration
	last     time.Time
}

func NewGoalRule(cooldown time.Duration) *GoalRule {
	return &GoalRule{cooldown: cooldown}
}

func (*GoalRule) Kind() Kind { return KindGoal }

func (r *GoalRule) Check(s game.Snapshot, g field.Geometry, cmd game.Command) (Violation, bool) {
	if !cmd.IsLive() || !s.Ball.Visible {
		return Violation{}, false
	}
	var conceding game.Team
	switch {
	case g.InRightGoal(s.Ball.Position):
		conceding = s.Perspective.DefendingRight()
	case g.InLeftGoal(s.Ball.Position):
		conceding = s.Perspective.DefendingLeft()
	default:
		return Violation{}, false
	}
	if !r.last.IsZero() && s.Timestamp.Sub(r.last) < r.cooldown {
		metrics.RecordViolationSuppressed("goal_cooldown")
		return Violation{}, false
	}
	r.last = s.Timestamp

	scorer := conceding.Opponent()
	return Violation{
		Kind:          KindGoal,
		Offender:      conceding,
		Beneficiary:   scorer,
		Command:       game.CommandStop,
		Next:          game.PrepareKickoff(conceding),
		HasNext:       true,
		HasDesignated: true,
		Message:       "goal by " + scorer.String(),
	}, true
}

// Reset keeps the cooldown: a ball resting in the net must not score again
// because the command changed.
func (*GoalRule) Reset() {}
