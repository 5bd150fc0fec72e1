// Package game holds the value types that flow through the tick loop:
// positions, robots, the ball, referee state, snapshots and the typed
// datapoints produced by external feeds.
//
// Every type here is a plain value. Slices inside a Snapshot are never
// mutated after the snapshot is built; callers that need a mutable copy
// use Clone.
package game

import "math"

// Vec2 is a point or displacement on the field plane, in metres.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns v+o.
func (v Vec2) Add(o Vec2) Vec2 { return Vec2{X: v.X + o.X, Y: v.Y + o.Y} }

// Sub returns v-o.
func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{X: v.X - o.X, Y: v.Y - o.Y} }

// Scale returns v*k.
func (v Vec2) Scale(k float64) Vec2 { return Vec2{X: v.X * k, Y: v.Y * k} }

// Norm returns the Euclidean length of v.
func (v Vec2) Norm() float64 { return math.Hypot(v.X, v.Y) }

// Dist returns the Euclidean distance between v and o.
func (v Vec2) Dist(o Vec2) float64 { return v.Sub(o).Norm() }

// Manhattan returns the L1 distance between v and o.
func (v Vec2) Manhattan(o Vec2) float64 { return math.Abs(v.X-o.X) + math.Abs(v.Y-o.Y) }

// IsFinite reports whether both components are neither NaN nor infinite.
func (v Vec2) IsFinite() bool {
	return !math.IsNaN(v.X) && !math.IsNaN(v.Y) && !math.IsInf(v.X, 0) && !math.IsInf(v.Y, 0)
}

// Cov2 is a symmetric 2x2 position covariance in square metres.
type Cov2 struct {
	XX, XY, YY float64
}

// IsZero reports whether no estimate has been made yet.
func (c Cov2) IsZero() bool { return c == Cov2{} }
