package refine

import (
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/okian/pitchside/internal/domain/field"
	"github.com/okian/pitchside/internal/domain/game"
)

const (
	defaultBallMinConfidence = 0.1
	defaultBallMergeDistance = 0.05
	defaultBoundsMargin      = 1.0
)

// Fused is the combined view of every camera frame drained in one tick.
type Fused struct {
	// Time is the newest frame timestamp.
	Time   time.Time
	Ball   game.Ball
	Yellow []game.Robot
	Blue   []game.Robot
}

// CameraCombiner merges same-tick frames from overlapping cameras.
//
// Robots seen by several cameras are averaged with confidence weights;
// orientation uses the weighted circular mean. Ball candidates below
// BallMinConfidence are dropped, candidates closer than BallMergeDistance
// (L1) are merged, and the most confident cluster wins.
type CameraCombiner struct {
	Geometry          field.Geometry
	BallMinConfidence float64
	BallMergeDistance float64
	// BoundsMargin discards robot sightings further than this outside the
	// field lines.
	BoundsMargin float64
}

// NewCameraCombiner returns a combiner with default thresholds.
func NewCameraCombiner(g field.Geometry) CameraCombiner {
	return CameraCombiner{
		Geometry:          g,
		BallMinConfidence: defaultBallMinConfidence,
		BallMergeDistance: defaultBallMergeDistance,
		BoundsMargin:      defaultBoundsMargin,
	}
}

type ballCluster struct {
	sum        game.Vec2
	weight     float64
	confidence float64
}

func (c *ballCluster) mean() game.Vec2 { return c.sum.Scale(1 / c.weight) }

type robotAcc struct {
	sum      game.Vec2
	sin, cos float64
	weight   float64
}

// Combine fuses frames. Frames without a capture time are malformed and
// skipped; an error is returned only when no frame is usable.
func (c CameraCombiner) Combine(frames []game.VisionFrame) (Fused, error) {
	var (
		out      Fused
		clusters []*ballCluster
		yellow   = map[int]*robotAcc{}
		blue     = map[int]*robotAcc{}
		usable   int
	)
	for _, f := range frames {
		if f.Timestamp.IsZero() {
			continue
		}
		usable++
		if f.Timestamp.After(out.Time) {
			out.Time = f.Timestamp
		}
		for _, b := range f.Balls {
			if !b.Position.IsFinite() || b.Confidence < c.BallMinConfidence {
				continue
			}
			clusters = c.addBall(clusters, b)
		}
		c.addRobots(yellow, f.Yellow)
		c.addRobots(blue, f.Blue)
	}
	if usable == 0 {
		return Fused{}, fmt.Errorf("%w: %d frames without capture time", ErrMalformedDatapoint, len(frames))
	}

	var best *ballCluster
	for _, cl := range clusters {
		if best == nil || cl.confidence > best.confidence {
			best = cl
		}
	}
	if best != nil {
		out.Ball = game.Ball{Position: best.mean(), Confidence: best.confidence, Visible: true}
	}
	out.Yellow = fuseRobots(yellow)
	out.Blue = fuseRobots(blue)
	return out, nil
}

func (c CameraCombiner) addBall(clusters []*ballCluster, b game.BallObservation) []*ballCluster {
	for _, cl := range clusters {
		if cl.mean().Manhattan(b.Position) < c.BallMergeDistance {
			cl.sum = cl.sum.Add(b.Position.Scale(b.Confidence))
			cl.weight += b.Confidence
			cl.confidence = math.Max(cl.confidence, b.Confidence)
			return clusters
		}
	}
	return append(clusters, &ballCluster{
		sum:        b.Position.Scale(b.Confidence),
		weight:     b.Confidence,
		confidence: b.Confidence,
	})
}

func (c CameraCombiner) addRobots(acc map[int]*robotAcc, obs []game.RobotObservation) {
	for _, o := range obs {
		if !o.Position.IsFinite() || math.IsNaN(o.Orientation) || o.Confidence <= 0 || o.ID < 0 {
			continue
		}
		if !c.Geometry.WithinMargin(o.Position, c.BoundsMargin) {
			continue
		}
		a, ok := acc[o.ID]
		if !ok {
			a = &robotAcc{}
			acc[o.ID] = a
		}
		a.sum = a.sum.Add(o.Position.Scale(o.Confidence))
		a.sin += o.Confidence * math.Sin(o.Orientation)
		a.cos += o.Confidence * math.Cos(o.Orientation)
		a.weight += o.Confidence
	}
}

func fuseRobots(acc map[int]*robotAcc) []game.Robot {
	if len(acc) == 0 {
		return nil
	}
	ids := make([]int, 0, len(acc))
	for id := range acc {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	out := make([]game.Robot, 0, len(ids))
	for _, id := range ids {
		a := acc[id]
		out = append(out, game.Robot{
			ID:          id,
			Position:    a.sum.Scale(1 / a.weight),
			Orientation: math.Atan2(a.sin, a.cos),
		})
	}
	return out
}
