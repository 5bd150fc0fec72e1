package referee

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/pitchside/internal/domain/game"
	"github.com/okian/pitchside/internal/domain/profile"
	"github.com/okian/pitchside/pkg/logger"
	"github.com/okian/pitchside/pkg/metrics"
)

// Skip reasons reported when a tick's evaluation is not run.
const (
	SkipBallNotFinite  = "ball_not_finite"
	SkipBallOutOfRange = "ball_out_of_range"
)

// Result is the outcome of one engine step.
type Result struct {
	Violation    Violation
	HasViolation bool

	Transition    Transition
	HasTransition bool

	// Suppressed is set when a violation fired but the machine refused it.
	Suppressed error
	// Skipped names why evaluation did not run, empty otherwise.
	Skipped string
}

// Engine evaluates the rules in priority order and drives the machine.
type Engine struct {
	profile profile.Profile
	rules   []Rule
	machine *Machine
	log     logger.Logger
}

// NewEngine builds rules and machine from a validated profile.
func NewEngine(p profile.Profile, now time.Time, log logger.Logger) *Engine {
	return &Engine{
		profile: p,
		rules:   NewRules(p),
		machine: NewMachine(p, now),
		log:     log,
	}
}

// State returns the current referee state.
func (e *Engine) State() game.RefereeState { return e.machine.State() }

// Profile returns the active profile.
func (e *Engine) Profile() profile.Profile { return e.profile }

// Step evaluates one committed snapshot. The snapshot timestamp is the
// engine clock.
func (e *Engine) Step(ctx context.Context, s game.Snapshot) Result {
	now := s.Timestamp
	e.machine.Tick(now)

	if reason := e.sanity(s); reason != "" {
		metrics.RecordEvaluationSkipped(reason)
		e.log.Warn(ctx, "rule evaluation skipped",
			logger.Uint64("seq", s.Seq),
			logger.String("reason", reason),
			logger.Float64("ball_x", s.Ball.Position.X),
			logger.Float64("ball_y", s.Ball.Position.Y))
		return Result{Skipped: reason}
	}

	cmd := e.machine.State().Command
	for _, r := range e.rules {
		v, ok := r.Check(s, e.profile.Geometry, cmd)
		if !ok {
			continue
		}
		metrics.RecordViolation(v.Kind.String())
		res := Result{Violation: v, HasViolation: true}

		t, err := e.machine.Apply(v, now)
		if err != nil {
			reason := "invalid_transition"
			if errors.Is(err, ErrCooldown) {
				reason = "transition_cooldown"
			}
			metrics.RecordViolationSuppressed(reason)
			e.log.Debug(ctx, "violation not applied",
				logger.Uint64("seq", s.Seq),
				logger.String("rule", v.Kind.String()),
				logger.Error(err))
			res.Suppressed = err
			return res
		}

		e.observe(t)
		e.log.Info(ctx, "violation",
			logger.Uint64("seq", s.Seq),
			logger.String("rule", v.Kind.String()),
			logger.String("offender", v.Offender.String()),
			logger.String("command", t.State.Command.String()),
			logger.String("next", t.State.NextCommand.String()),
			logger.Int("score_yellow", t.State.Yellow.Score),
			logger.Int("score_blue", t.State.Blue.Score))
		res.Transition, res.HasTransition = t, true
		return res
	}
	return Result{}
}

func (e *Engine) sanity(s game.Snapshot) string {
	p := s.Ball.Position
	if !p.IsFinite() {
		return SkipBallNotFinite
	}
	if !e.profile.Geometry.WithinMargin(p, e.profile.Game.SanityMarginMeters) {
		return SkipBallOutOfRange
	}
	return ""
}

// Command applies an explicit command. Rule counters are reset whenever the
// command changes.
func (e *Engine) Command(ctx context.Context, cmd game.Command, cause Cause, now time.Time) (Transition, error) {
	t, err := e.machine.SetCommand(cmd, cause, now)
	if err != nil {
		return Transition{}, err
	}
	if t.From != cmd {
		for _, r := range e.rules {
			r.Reset()
		}
	}
	e.observe(t)
	e.log.Info(ctx, "command",
		logger.String("cause", string(cause)),
		logger.String("from", t.From.String()),
		logger.String("to", cmd.String()),
		logger.String("stage", t.State.Stage.String()))
	return t, nil
}

// AdvanceStage is the operator stage change.
func (e *Engine) AdvanceStage(ctx context.Context, stage game.Stage, now time.Time) (Transition, error) {
	t, err := e.machine.AdvanceStage(stage, now)
	if err != nil {
		return Transition{}, err
	}
	e.observe(t)
	e.log.Info(ctx, "stage", logger.String("stage", stage.String()))
	return t, nil
}

// SwapProfile replaces the active profile. Only allowed at a match
// boundary: while halted or after the game.
func (e *Engine) SwapProfile(ctx context.Context, p profile.Profile) error {
	st := e.machine.State()
	if st.Command != game.CommandHalt && st.Stage != game.StagePostGame {
		return fmt.Errorf("%w: command %s stage %s", ErrMatchInProgress, st.Command, st.Stage)
	}
	if err := p.Validate(); err != nil {
		return err
	}
	e.profile = p
	e.rules = NewRules(p)
	e.machine.setProfile(p)
	e.log.Info(ctx, "profile swapped", logger.String("profile", p.Name))
	return nil
}

func (e *Engine) observe(t Transition) {
	metrics.RecordTransition(string(t.Cause))
	metrics.UpdateCommand(int(t.State.Command))
	metrics.UpdateScore(game.TeamYellow.String(), t.State.Yellow.Score)
	metrics.UpdateScore(game.TeamBlue.String(), t.State.Blue.Score)
}
