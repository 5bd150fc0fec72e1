// Package referee polices refined snapshots.
//
// Rules are evaluated in a fixed priority order every tick: goal,
// out-of-bounds, defense area, keep-out. The first rule that fires wins and
// the rest are skipped. A violation moves the state machine into STOP; only
// an explicit command (operator, script or the auto-restart policy) moves
// it out again.
package referee

import (
	"github.com/okian/pitchside/internal/domain/field"
	"github.com/okian/pitchside/internal/domain/game"
	"github.com/okian/pitchside/internal/domain/profile"
)

// Kind names a rule.
type Kind int

const (
	KindGoal Kind = iota
	KindOutOfBounds
	KindDefenseArea
	KindKeepOut
)

func (k Kind) String() string {
	switch k {
	case KindGoal:
		return "goal"
	case KindOutOfBounds:
		return "out_of_bounds"
	case KindDefenseArea:
		return "defense_area"
	case KindKeepOut:
		return "keep_out"
	default:
		return "unknown"
	}
}

// Violation is what a rule reports for one tick. Offender is the team that
// conceded or fouled, Beneficiary the team that scored or gets the restart.
type Violation struct {
	Kind        Kind
	Offender    game.Team
	Beneficiary game.Team

	Command game.Command
	Next    game.Command
	HasNext bool

	Designated    game.Vec2
	HasDesignated bool

	Message string
}

// Rule checks one compliance rule against a snapshot. cmd is the command
// currently in force; rules only fire in the commands they apply to.
type Rule interface {
	Kind() Kind
	Check(s game.Snapshot, g field.Geometry, cmd game.Command) (Violation, bool)
	// Reset clears per-rule counters when the command changes.
	Reset()
}

// NewRules builds the enabled rules of p in priority order.
func NewRules(p profile.Profile) []Rule {
	r := p.Rules
	var rules []Rule
	if r.GoalDetection.Enabled {
		rules = append(rules, NewGoalRule(r.GoalDetection.Cooldown()))
	}
	if r.OutOfBounds.Enabled {
		rules = append(rules, NewOutOfBoundsRule(r.OutOfBounds))
	}
	if r.DefenseArea.Enabled {
		rules = append(rules, NewDefenseAreaRule(r.DefenseArea))
	}
	if r.KeepOut.Enabled {
		rules = append(rules, NewKeepOutRule(r.KeepOut))
	}
	return rules
}
