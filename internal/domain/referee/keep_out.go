package referee

import (
	"github.com/okian/pitchside/internal/domain/field"
	"github.com/okian/pitchside/internal/domain/game"
	"github.com/okian/pitchside/internal/domain/profile"
)

// KeepOutRule enforces the distance to the ball during stoppages. The
// kicking team is exempt; during STOP both teams are checked. A violation
// is only reported after PersistenceFrames consecutive encroaching frames,
// and any clean frame resets the count.
type KeepOutRule struct {
	cfg   profile.KeepOut
	count int
}

func NewKeepOutRule(cfg profile.KeepOut) *KeepOutRule {
	return &KeepOutRule{cfg: cfg}
}

func (*KeepOutRule) Kind() Kind { return KindKeepOut }

// Count returns the current run of consecutive encroaching frames.
func (r *KeepOutRule) Count() int { return r.count }

func (r *KeepOutRule) Check(s game.Snapshot, _ field.Geometry, cmd game.Command) (Violation, bool) {
	if !cmd.IsStoppage() || !s.Ball.Visible {
		r.count = 0
		return Violation{}, false
	}
	kicking := cmd.KickingTeam()
	offender := game.TeamUnknown
	for _, team := range []game.Team{s.Perspective.Friendly(), s.Perspective.Enemy()} {
		if team == kicking {
			continue
		}
		if r.encroaching(s.Robots(team), s.Ball.Position) {
			offender = team
			break
		}
	}
	if offender == game.TeamUnknown {
		r.count = 0
		return Violation{}, false
	}
	r.count++
	if r.count < r.cfg.PersistenceFrames {
		return Violation{}, false
	}
	r.count = 0

	award := kicking
	if award == game.TeamUnknown {
		award = game.TeamYellow
	}
	return Violation{
		Kind:        KindKeepOut,
		Offender:    offender,
		Beneficiary: award,
		Command:     game.CommandStop,
		Next:        game.DirectFree(award),
		HasNext:     true,
		Message:     "keep-out circle violation by " + offender.String(),
	}, true
}

func (r *KeepOutRule) encroaching(robots []game.Robot, ball game.Vec2) bool {
	for _, rb := range robots {
		if rb.Position.Dist(ball) < r.cfg.RadiusMeters {
			return true
		}
	}
	return false
}

func (r *KeepOutRule) Reset() { r.count = 0 }
