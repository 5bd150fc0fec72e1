package referee

import (
	"github.com/okian/pitchside/internal/domain/field"
	"github.com/okian/pitchside/internal/domain/game"
	"github.com/okian/pitchside/internal/domain/profile"
)

// DefenseAreaRule checks our own defense area during live play: too many
// of our robots inside it, or an attacker inside it.
type DefenseAreaRule struct {
	cfg profile.DefenseArea
}

func NewDefenseAreaRule(cfg profile.DefenseArea) *DefenseAreaRule {
	return &DefenseAreaRule{cfg: cfg}
}

func (*DefenseAreaRule) Kind() Kind { return KindDefenseArea }

func (r *DefenseAreaRule) Check(s game.Snapshot, g field.Geometry, cmd game.Command) (Violation, bool) {
	if !cmd.IsLive() {
		return Violation{}, false
	}
	right := s.Perspective.FriendlyDefendsRight()
	friendly, enemy := s.Perspective.Friendly(), s.Perspective.Enemy()

	defenders := 0
	for _, rb := range s.Friendly {
		if g.InDefenseArea(rb.Position, right) {
			defenders++
		}
	}
	if defenders > r.cfg.MaxDefenders {
		return r.violation(s, g, friendly, "too many defenders in own area"), true
	}
	if r.cfg.AttackerInfringement {
		for _, rb := range s.Enemy {
			if g.InDefenseArea(rb.Position, right) {
				return r.violation(s, g, enemy, "attacker in defense area"), true
			}
		}
	}
	return Violation{}, false
}

func (r *DefenseAreaRule) violation(s game.Snapshot, g field.Geometry, offender game.Team, msg string) Violation {
	v := Violation{
		Kind:        KindDefenseArea,
		Offender:    offender,
		Beneficiary: offender.Opponent(),
		Command:     game.CommandStop,
		Next:        game.DirectFree(offender.Opponent()),
		HasNext:     true,
		Message:     msg,
	}
	if s.Ball.Visible && g.InField(s.Ball.Position) {
		v.Designated, v.HasDesignated = s.Ball.Position, true
	}
	return v
}

func (*DefenseAreaRule) Reset() {}
