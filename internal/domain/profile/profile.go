// Package profile loads referee profiles: per-rule toggles and thresholds,
// game settings and the field geometry they apply to.
//
// Profiles are decoded strictly (unknown keys fail) and validated before a
// match starts. A Profile is read-only once loaded.
package profile

import (
	"fmt"
	"math"
	"time"

	"github.com/okian/pitchside/internal/domain/field"
	"github.com/okian/pitchside/internal/domain/game"
)

// Free kick assignment policies for out-of-bounds restarts.
const (
	AssignLastTouch = "last_touch"
	AssignYellow    = "yellow"
	AssignBlue      = "blue"
)

// Profile is one complete referee configuration.
type Profile struct {
	Name     string         `yaml:"name" json:"name"`
	Geometry field.Geometry `yaml:"geometry" json:"geometry"`
	Rules    Rules          `yaml:"rules" json:"rules"`
	Game     Game           `yaml:"game" json:"game"`
}

// Rules groups the rule checker settings.
type Rules struct {
	GoalDetection GoalDetection `yaml:"goal_detection" json:"goal_detection"`
	OutOfBounds   OutOfBounds   `yaml:"out_of_bounds" json:"out_of_bounds"`
	DefenseArea   DefenseArea   `yaml:"defense_area" json:"defense_area"`
	KeepOut       KeepOut       `yaml:"keep_out" json:"keep_out"`
}

type GoalDetection struct {
	Enabled         bool    `yaml:"enabled" json:"enabled"`
	CooldownSeconds float64 `yaml:"cooldown_seconds" json:"cooldown_seconds"`
}

// Cooldown is the minimum frame time between two goals.
func (g GoalDetection) Cooldown() time.Duration { return seconds(g.CooldownSeconds) }

type OutOfBounds struct {
	Enabled          bool    `yaml:"enabled" json:"enabled"`
	FreeKickAssigner string  `yaml:"free_kick_assigner" json:"free_kick_assigner"`
	InfieldOffset    float64 `yaml:"infield_offset_meters" json:"infield_offset_meters"`
	TouchRadius      float64 `yaml:"touch_radius_meters" json:"touch_radius_meters"`
}

type DefenseArea struct {
	Enabled              bool `yaml:"enabled" json:"enabled"`
	MaxDefenders         int  `yaml:"max_defenders" json:"max_defenders"`
	AttackerInfringement bool `yaml:"attacker_infringement" json:"attacker_infringement"`
}

type KeepOut struct {
	Enabled           bool    `yaml:"enabled" json:"enabled"`
	RadiusMeters      float64 `yaml:"radius_meters" json:"radius_meters"`
	PersistenceFrames int     `yaml:"violation_persistence_frames" json:"violation_persistence_frames"`
}

// Game holds match-level settings.
type Game struct {
	HalfDurationSeconds       float64 `yaml:"half_duration_seconds" json:"half_duration_seconds"`
	KickoffTeam               string  `yaml:"kickoff_team" json:"kickoff_team"`
	ForceStartAfterGoal       bool    `yaml:"force_start_after_goal" json:"force_start_after_goal"`
	StopDurationSeconds       float64 `yaml:"stop_duration_seconds" json:"stop_duration_seconds"`
	TransitionCooldownSeconds float64 `yaml:"transition_cooldown_seconds" json:"transition_cooldown_seconds"`
	SanityMarginMeters        float64 `yaml:"sanity_margin_meters" json:"sanity_margin_meters"`
}

func (g Game) HalfDuration() time.Duration       { return seconds(g.HalfDurationSeconds) }
func (g Game) StopDuration() time.Duration       { return seconds(g.StopDurationSeconds) }
func (g Game) TransitionCooldown() time.Duration { return seconds(g.TransitionCooldownSeconds) }

// Kickoff returns the team taking the first kickoff.
func (g Game) Kickoff() game.Team {
	t, err := game.ParseTeam(g.KickoffTeam)
	if err != nil {
		return game.TeamYellow
	}
	return t
}

func seconds(s float64) time.Duration { return time.Duration(s * float64(time.Second)) }

// Default returns the strict_ai profile.
func Default() Profile {
	return Profile{
		Name:     "strict_ai",
		Geometry: field.Default(),
		Rules: Rules{
			GoalDetection: GoalDetection{Enabled: true, CooldownSeconds: 1.0},
			OutOfBounds: OutOfBounds{
				Enabled:          true,
				FreeKickAssigner: AssignLastTouch,
				InfieldOffset:    0.1,
				TouchRadius:      0.15,
			},
			DefenseArea: DefenseArea{Enabled: true, MaxDefenders: 1, AttackerInfringement: true},
			KeepOut:     KeepOut{Enabled: true, RadiusMeters: 0.5, PersistenceFrames: 30},
		},
		Game: Game{
			HalfDurationSeconds:       300,
			KickoffTeam:               "yellow",
			StopDurationSeconds:       3.0,
			TransitionCooldownSeconds: 0.3,
			SanityMarginMeters:        1.0,
		},
	}
}

// Validate checks every value the referee depends on.
func (p Profile) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidProfile)
	}
	if err := p.Geometry.Validate(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidProfile, p.Name, err)
	}
	r, g := p.Rules, p.Game
	switch {
	case !finiteNonNegative(r.GoalDetection.CooldownSeconds):
		return p.invalid("goal_detection.cooldown_seconds must be >= 0")
	case r.OutOfBounds.FreeKickAssigner != AssignLastTouch &&
		r.OutOfBounds.FreeKickAssigner != AssignYellow && r.OutOfBounds.FreeKickAssigner != AssignBlue:
		return p.invalid("out_of_bounds.free_kick_assigner must be last_touch, yellow or blue")
	case !(r.OutOfBounds.InfieldOffset > 0) ||
		r.OutOfBounds.InfieldOffset >= math.Min(p.Geometry.HalfLength, p.Geometry.HalfWidth):
		return p.invalid("out_of_bounds.infield_offset_meters must be positive and inside the field")
	case !(r.OutOfBounds.TouchRadius > 0) || math.IsInf(r.OutOfBounds.TouchRadius, 0):
		return p.invalid("out_of_bounds.touch_radius_meters must be positive")
	case r.DefenseArea.MaxDefenders < 0:
		return p.invalid("defense_area.max_defenders must be >= 0")
	case !(r.KeepOut.RadiusMeters > 0) || math.IsInf(r.KeepOut.RadiusMeters, 0):
		return p.invalid("keep_out.radius_meters must be positive")
	case r.KeepOut.PersistenceFrames < 1:
		return p.invalid("keep_out.violation_persistence_frames must be >= 1")
	case !(g.HalfDurationSeconds > 0) || math.IsInf(g.HalfDurationSeconds, 0):
		return p.invalid("game.half_duration_seconds must be positive")
	case !finiteNonNegative(g.StopDurationSeconds):
		return p.invalid("game.stop_duration_seconds must be >= 0")
	case !finiteNonNegative(g.TransitionCooldownSeconds):
		return p.invalid("game.transition_cooldown_seconds must be >= 0")
	case !finiteNonNegative(g.SanityMarginMeters):
		return p.invalid("game.sanity_margin_meters must be >= 0")
	}
	if _, err := game.ParseTeam(g.KickoffTeam); err != nil {
		return fmt.Errorf("%w: %s: game.kickoff_team: %w", ErrInvalidProfile, p.Name, err)
	}
	return nil
}

func (p Profile) invalid(msg string) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidProfile, p.Name, msg)
}

func finiteNonNegative(v float64) bool { return v >= 0 && !math.IsInf(v, 0) }
