package referee

import (
	"fmt"
	"time"

	"github.com/okian/pitchside/internal/domain/game"
	"github.com/okian/pitchside/internal/domain/profile"
)

// Cause says what drove a transition.
type Cause string

const (
	CauseViolation Cause = "violation"
	CauseOperator  Cause = "operator"
	CauseExternal  Cause = "external"
	CauseStage     Cause = "stage"
	CauseRestart   Cause = "auto_restart"
)

// Transition records one state machine change.
type Transition struct {
	Cause   Cause
	Rule    string
	From    game.Command
	State   game.RefereeState
	At      time.Time
	Message string
}

// Machine owns the referee state: command, next command, stage clock,
// scores and fouls. It is driven by the engine from the tick loop and is
// not safe for concurrent use.
type Machine struct {
	state game.RefereeState

	halfDuration time.Duration
	cooldown     time.Duration

	stageStart     time.Time
	lastTransition time.Time
}

// NewMachine starts in HALT at the first half pre-stage.
func NewMachine(p profile.Profile, now time.Time) *Machine {
	m := &Machine{
		halfDuration: p.Game.HalfDuration(),
		cooldown:     p.Game.TransitionCooldown(),
		stageStart:   now,
	}
	m.state = game.RefereeState{
		Command:          game.CommandHalt,
		CommandTimestamp: now,
		Stage:            game.StageNormalFirstHalfPre,
		StageTimeLeft:    m.halfDuration,
		Yellow:           game.NewTeamInfo("yellow"),
		Blue:             game.NewTeamInfo("blue"),
		NextCommand:      game.PrepareKickoff(p.Game.Kickoff()),
		HasNextCommand:   true,
	}
	return m
}

// State returns a copy of the current state.
func (m *Machine) State() game.RefereeState { return m.state }

// Tick refreshes the stage clock.
func (m *Machine) Tick(now time.Time) {
	m.state.StageTimeLeft = max(0, m.halfDuration-now.Sub(m.stageStart))
}

// Apply moves to the violation's command. It refuses while halted or in a
// timeout, and inside the transition cooldown.
func (m *Machine) Apply(v Violation, now time.Time) (Transition, error) {
	from := m.state.Command
	switch from {
	case game.CommandHalt, game.CommandTimeoutYellow, game.CommandTimeoutBlue:
		return Transition{}, fmt.Errorf("%w: %s during %s", ErrInvalidTransition, v.Kind, from)
	}
	if !m.lastTransition.IsZero() && now.Sub(m.lastTransition) < m.cooldown {
		return Transition{}, fmt.Errorf("%w: %s", ErrCooldown, v.Kind)
	}

	if v.Kind == KindGoal {
		m.team(v.Beneficiary).Score++
	} else if v.Offender != game.TeamUnknown {
		m.team(v.Offender).FoulCounter++
	}

	m.setCommand(v.Command, now)
	m.state.NextCommand, m.state.HasNextCommand = v.Next, v.HasNext
	m.state.DesignatedPosition, m.state.HasDesignatedPosition = v.Designated, v.HasDesignated
	m.state.LastViolation = game.ViolationInfo{
		Rule:     v.Kind.String(),
		Offender: v.Offender,
		Message:  v.Message,
		At:       now,
	}
	m.state.HasLastViolation = true
	m.lastTransition = now

	return m.record(CauseViolation, v.Kind.String(), from, now, v.Message), nil
}

// SetCommand is the manual override. NORMAL_START or FORCE_START during a
// pre-stage also starts the half.
func (m *Machine) SetCommand(cmd game.Command, cause Cause, now time.Time) (Transition, error) {
	if !cmd.Valid() {
		return Transition{}, fmt.Errorf("%w: %d", game.ErrUnknownCommand, int(cmd))
	}
	from := m.state.Command
	m.setCommand(cmd, now)

	switch {
	case cmd.IsLive():
		m.state.HasNextCommand = false
		m.state.HasDesignatedPosition = false
		if m.state.Stage.IsPre() {
			m.advance(m.state.Stage.Active(), now)
		}
	case m.state.HasNextCommand && cmd == m.state.NextCommand:
		m.state.HasNextCommand = false
	}
	switch cmd {
	case game.CommandTimeoutYellow:
		m.useTimeout(game.TeamYellow)
	case game.CommandTimeoutBlue:
		m.useTimeout(game.TeamBlue)
	}
	return m.record(cause, "", from, now, "command "+cmd.String()), nil
}

// AdvanceStage moves to stage and restarts the stage clock.
func (m *Machine) AdvanceStage(stage game.Stage, now time.Time) (Transition, error) {
	if !stage.Valid() {
		return Transition{}, fmt.Errorf("%w: %d", game.ErrUnknownStage, int(stage))
	}
	from := m.state.Command
	m.advance(stage, now)
	return m.record(CauseStage, "", from, now, "stage "+stage.String()), nil
}

func (m *Machine) advance(stage game.Stage, now time.Time) {
	m.state.Stage = stage
	m.stageStart = now
	m.state.StageTimeLeft = m.halfDuration
}

func (m *Machine) setCommand(cmd game.Command, now time.Time) {
	m.state.Command = cmd
	m.state.CommandCounter++
	m.state.CommandTimestamp = now
}

func (m *Machine) team(t game.Team) *game.TeamInfo {
	if t == game.TeamBlue {
		return &m.state.Blue
	}
	return &m.state.Yellow
}

func (m *Machine) useTimeout(t game.Team) {
	if info := m.team(t); info.Timeouts > 0 {
		info.Timeouts--
	}
}

func (m *Machine) record(cause Cause, rule string, from game.Command, now time.Time, msg string) Transition {
	return Transition{Cause: cause, Rule: rule, From: from, State: m.state, At: now, Message: msg}
}

// setProfile applies new match settings at a match boundary.
func (m *Machine) setProfile(p profile.Profile) {
	m.halfDuration = p.Game.HalfDuration()
	m.cooldown = p.Game.TransitionCooldown()
}
