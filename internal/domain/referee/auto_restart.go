package referee

import (
	"time"

	"github.com/okian/pitchside/internal/domain/game"
	"github.com/okian/pitchside/internal/domain/profile"
)

// AutoRestart is the scripted operator used by arcade profiles: once a
// goal-driven STOP has lasted the configured stop duration it asks for
// FORCE_START. It only decides; the caller injects the command and
// reports back with Fired once it is queued.
type AutoRestart struct {
	enabled bool
	stop    time.Duration

	fired    bool
	firedFor uint32
}

func NewAutoRestart(p profile.Profile) *AutoRestart {
	return &AutoRestart{enabled: p.Game.ForceStartAfterGoal, stop: p.Game.StopDuration()}
}

// Due reports whether FORCE_START should be issued for st at now. It stays
// due until Fired is called for the same STOP, so a restart that could not
// be queued is asked for again on the next tick.
func (a *AutoRestart) Due(st game.RefereeState, now time.Time) bool {
	if !a.enabled || st.Command != game.CommandStop {
		return false
	}
	if !st.HasLastViolation || st.LastViolation.Rule != KindGoal.String() {
		return false
	}
	if next, ok := st.Next(); !ok || (next != game.CommandPrepareKickoffYellow && next != game.CommandPrepareKickoffBlue) {
		return false
	}
	if a.fired && a.firedFor == st.CommandCounter {
		return false
	}
	return now.Sub(st.CommandTimestamp) >= a.stop
}

// Fired records that the restart for the STOP in st has been queued.
func (a *AutoRestart) Fired(st game.RefereeState) {
	a.fired, a.firedFor = true, st.CommandCounter
}
