// Package field describes the pitch: its dimensions and the spatial
// predicates the refiners and rule checkers share.
package field

import (
	"fmt"
	"math"

	"github.com/okian/pitchside/internal/domain/game"
)

// Geometry is the frozen field description for one match. All values are
// metres, centred on the halfway spot.
type Geometry struct {
	HalfLength         float64 `yaml:"half_length" json:"half_length"`
	HalfWidth          float64 `yaml:"half_width" json:"half_width"`
	HalfGoalWidth      float64 `yaml:"half_goal_width" json:"half_goal_width"`
	DefenseDepth       float64 `yaml:"defense_depth" json:"defense_depth"`
	HalfDefenseWidth   float64 `yaml:"half_defense_width" json:"half_defense_width"`
	CenterCircleRadius float64 `yaml:"center_circle_radius" json:"center_circle_radius"`
}

// Default returns the standard small-size field.
func Default() Geometry {
	return Geometry{
		HalfLength:         4.5,
		HalfWidth:          3.0,
		HalfGoalWidth:      0.5,
		DefenseDepth:       1.0,
		HalfDefenseWidth:   1.0,
		CenterCircleRadius: 0.5,
	}
}

// Validate rejects non-positive, non-finite or inconsistent dimensions.
func (g Geometry) Validate() error {
	for name, v := range map[string]float64{
		"half_length":          g.HalfLength,
		"half_width":           g.HalfWidth,
		"half_goal_width":      g.HalfGoalWidth,
		"defense_depth":        g.DefenseDepth,
		"half_defense_width":   g.HalfDefenseWidth,
		"center_circle_radius": g.CenterCircleRadius,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return fmt.Errorf("%w: %s must be a positive number, got %v", ErrInvalidGeometry, name, v)
		}
	}
	switch {
	case g.HalfGoalWidth >= g.HalfWidth:
		return fmt.Errorf("%w: goal wider than the field", ErrInvalidGeometry)
	case g.HalfDefenseWidth >= g.HalfWidth:
		return fmt.Errorf("%w: defense area wider than the field", ErrInvalidGeometry)
	case g.DefenseDepth >= g.HalfLength:
		return fmt.Errorf("%w: defense area reaches the halfway line", ErrInvalidGeometry)
	case g.CenterCircleRadius >= g.HalfWidth:
		return fmt.Errorf("%w: centre circle wider than the field", ErrInvalidGeometry)
	}
	return nil
}

// InField reports whether p lies on or inside the touch and goal lines.
func (g Geometry) InField(p game.Vec2) bool {
	return math.Abs(p.X) <= g.HalfLength && math.Abs(p.Y) <= g.HalfWidth
}

// InRightGoal reports whether p is past the right goal line inside the mouth.
func (g Geometry) InRightGoal(p game.Vec2) bool {
	return p.X > g.HalfLength && math.Abs(p.Y) < g.HalfGoalWidth
}

// InLeftGoal reports whether p is past the left goal line inside the mouth.
func (g Geometry) InLeftGoal(p game.Vec2) bool {
	return p.X < -g.HalfLength && math.Abs(p.Y) < g.HalfGoalWidth
}

// InGoal reports whether p is inside either goal.
func (g Geometry) InGoal(p game.Vec2) bool { return g.InLeftGoal(p) || g.InRightGoal(p) }

// InRightDefenseArea reports whether p is in the defense area at positive x.
func (g Geometry) InRightDefenseArea(p game.Vec2) bool {
	return p.X >= g.HalfLength-g.DefenseDepth && math.Abs(p.Y) <= g.HalfDefenseWidth
}

// InLeftDefenseArea reports whether p is in the defense area at negative x.
func (g Geometry) InLeftDefenseArea(p game.Vec2) bool {
	return p.X <= -g.HalfLength+g.DefenseDepth && math.Abs(p.Y) <= g.HalfDefenseWidth
}

// InDefenseArea reports whether p is in the defense area on the given side.
func (g Geometry) InDefenseArea(p game.Vec2, right bool) bool {
	if right {
		return g.InRightDefenseArea(p)
	}
	return g.InLeftDefenseArea(p)
}

// Inset clamps p to the field. Along each axis on which p is outside the
// field it is then placed offset metres inside that boundary; an axis p did
// not cross keeps its clamped value.
func (g Geometry) Inset(p game.Vec2, offset float64) game.Vec2 {
	return game.Vec2{
		X: inset(p.X, g.HalfLength, offset),
		Y: inset(p.Y, g.HalfWidth, offset),
	}
}

func inset(v, half, offset float64) float64 {
	if math.Abs(v) <= half {
		return v
	}
	return math.Copysign(half-offset, v)
}

// WithinMargin reports whether p is finite and no further than margin
// outside the field boundary.
func (g Geometry) WithinMargin(p game.Vec2, margin float64) bool {
	if !p.IsFinite() {
		return false
	}
	return math.Abs(p.X) <= g.HalfLength+margin && math.Abs(p.Y) <= g.HalfWidth+margin
}
