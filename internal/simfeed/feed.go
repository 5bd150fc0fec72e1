// Package simfeed produces synthetic camera frames and robot telemetry for
// demos and soak runs. A deterministic scene (ball path plus two robot
// formations) is sampled by one goroutine per camera and one per robot link,
// each writing into the ingestion sources at its own rate.
package simfeed

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/pitchside/internal/domain/field"
	"github.com/okian/pitchside/internal/domain/game"
	"github.com/okian/pitchside/pkg/logger"
)

const (
	defaultCameras       = 4
	defaultRobots        = 6
	defaultCameraPeriod  = time.Second / 60
	defaultTelemetryRate = time.Second / 50
	defaultNoise         = 0.005

	ballPeriod     = 20 * time.Second
	cameraOverlap  = 0.5
	goalWindow     = 600 * time.Millisecond
	goalDepth      = 0.2
	hasBallRadius  = 0.12
	swayAmplitude  = 0.2
	swayPeriod     = 7 * time.Second
	velocityWindow = 10 * time.Millisecond
)

// Sink accepts produced datapoints. *ingest.Sources satisfies it.
type Sink interface {
	WriteVision(game.VisionFrame) error
	WriteTelemetry(game.RobotTelemetry) error
}

// Pose is one robot's ground truth.
type Pose struct {
	ID          int
	Position    game.Vec2
	Orientation float64
	Velocity    game.Vec2
}

// Scene is the ground truth at one instant.
type Scene struct {
	Ball   game.Vec2
	Yellow []Pose
	Blue   []Pose
}

// Feed drives the synthetic producers.
type Feed struct {
	sink        Sink
	geometry    field.Geometry
	perspective game.Perspective

	cameras         int
	robots          int
	cameraPeriod    time.Duration
	telemetryPeriod time.Duration
	noise           float64
	seed            uint64
	goalEvery       time.Duration
	epoch           time.Time

	runID string
	rngs  []*rand.Rand

	frames  atomic.Uint64
	reports atomic.Uint64
	errors  atomic.Uint64

	log logger.Logger
}

// New validates the options and returns a feed writing into sink.
func New(sink Sink, geometry field.Geometry, perspective game.Perspective, opts ...Option) (*Feed, error) {
	if sink == nil {
		return nil, ErrNoSink
	}
	if err := geometry.Validate(); err != nil {
		return nil, err
	}
	f := &Feed{
		sink:            sink,
		geometry:        geometry,
		perspective:     perspective,
		cameras:         defaultCameras,
		robots:          defaultRobots,
		cameraPeriod:    defaultCameraPeriod,
		telemetryPeriod: defaultTelemetryRate,
		noise:           defaultNoise,
		epoch:           time.Now(),
		runID:           uuid.New().String(),
	}
	for _, opt := range opts {
		opt(f)
	}
	switch {
	case f.cameras < 1:
		return nil, fmt.Errorf("%w: cameras must be >= 1, got %d", ErrInvalidConfig, f.cameras)
	case f.robots < 1:
		return nil, fmt.Errorf("%w: robots must be >= 1, got %d", ErrInvalidConfig, f.robots)
	case f.noise < 0 || math.IsNaN(f.noise):
		return nil, fmt.Errorf("%w: noise must be >= 0", ErrInvalidConfig)
	case f.goalEvery < 0 || (f.goalEvery > 0 && f.goalEvery <= goalWindow):
		return nil, fmt.Errorf("%w: goal interval must exceed %s", ErrInvalidConfig, goalWindow)
	}
	if f.log == nil {
		f.log = logger.Get().Named("simfeed")
	}
	f.log = f.log.With(logger.String("run_id", f.runID))

	f.rngs = make([]*rand.Rand, f.cameras)
	for i := range f.rngs {
		f.rngs[i] = rand.New(rand.NewPCG(f.seed, uint64(i)))
	}
	return f, nil
}

// RunID identifies this feed in logs.
func (f *Feed) RunID() string { return f.runID }

// Epoch is the scene's time origin.
func (f *Feed) Epoch() time.Time { return f.epoch }

// Stats returns produced frames, produced reports and sink errors.
func (f *Feed) Stats() (frames, reports, errs uint64) {
	return f.frames.Load(), f.reports.Load(), f.errors.Load()
}

// Run starts every producer and blocks until ctx is done.
func (f *Feed) Run(ctx context.Context) {
	f.log.Info(ctx, "synthetic feed started",
		logger.Int("cameras", f.cameras),
		logger.Int("robots", f.robots),
		logger.Duration("camera_period", f.cameraPeriod),
		logger.Duration("telemetry_period", f.telemetryPeriod))

	var wg sync.WaitGroup
	for c := 0; c < f.cameras; c++ {
		wg.Add(1)
		go func(camera int) {
			defer wg.Done()
			f.produce(ctx, f.cameraPeriod, func(now time.Time) error {
				f.frames.Add(1)
				return f.sink.WriteVision(f.Frame(camera, now))
			})
		}(c)
	}
	for id := 0; id < f.robots; id++ {
		wg.Add(1)
		go func(robot int) {
			defer wg.Done()
			f.produce(ctx, f.telemetryPeriod, func(now time.Time) error {
				f.reports.Add(1)
				return f.sink.WriteTelemetry(f.Report(robot, now))
			})
		}(id)
	}
	wg.Wait()

	frames, reports, errs := f.Stats()
	f.log.Info(context.Background(), "synthetic feed stopped",
		logger.Uint64("frames", frames),
		logger.Uint64("reports", reports),
		logger.Uint64("errors", errs))
}

func (f *Feed) produce(ctx context.Context, period time.Duration, emit func(time.Time) error) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if err := emit(now); err != nil {
				// Only the first failure is logged; the rest are counted.
				if f.errors.Add(1) == 1 {
					f.log.Warn(ctx, "sink rejected datapoint", logger.Error(err))
				}
			}
		}
	}
}

// Scene returns the ground truth at t.
func (f *Feed) Scene(t time.Time) Scene {
	elapsed := t.Sub(f.epoch)
	s := Scene{Ball: f.ball(elapsed)}
	friendly := f.formation(elapsed, f.perspective.FriendlyDefendsRight())
	enemy := f.formation(elapsed, !f.perspective.FriendlyDefendsRight())
	if f.perspective.Friendly() == game.TeamYellow {
		s.Yellow, s.Blue = friendly, enemy
	} else {
		s.Yellow, s.Blue = enemy, friendly
	}
	return s
}

// Frame is camera's view of the scene at t. Each camera sees one strip of
// the field plus an overlap with its neighbours; the outermost strips
// extend past the goal lines. Frame must not be called concurrently for
// the same camera.
func (f *Feed) Frame(camera int, t time.Time) game.VisionFrame {
	frame := game.VisionFrame{Camera: camera, Timestamp: t}
	if camera < 0 || camera >= f.cameras {
		return frame
	}
	rng := f.rngs[camera]
	lo, hi := f.strip(camera)
	see := func(p game.Vec2) bool { return p.X >= lo && p.X <= hi }

	scene := f.Scene(t)
	if see(scene.Ball) {
		frame.Balls = []game.BallObservation{{
			Position:   f.jitter(rng, scene.Ball),
			Confidence: 0.8 + 0.2*rng.Float64(),
		}}
	}
	observe := func(poses []Pose) []game.RobotObservation {
		var out []game.RobotObservation
		for _, p := range poses {
			if !see(p.Position) {
				continue
			}
			out = append(out, game.RobotObservation{
				ID:          p.ID,
				Position:    f.jitter(rng, p.Position),
				Orientation: p.Orientation,
				Confidence:  0.9 + 0.1*rng.Float64(),
			})
		}
		return out
	}
	frame.Yellow = observe(scene.Yellow)
	frame.Blue = observe(scene.Blue)
	return frame
}

// Report is friendly robot id's telemetry at t.
func (f *Feed) Report(id int, t time.Time) game.RobotTelemetry {
	r := game.RobotTelemetry{RobotID: id, Timestamp: t}
	scene := f.Scene(t)
	friendly := scene.Yellow
	if f.perspective.Friendly() == game.TeamBlue {
		friendly = scene.Blue
	}
	for _, p := range friendly {
		if p.ID != id {
			continue
		}
		r.Velocity, r.HasVelocity = p.Velocity, true
		r.HasBall = p.Position.Dist(scene.Ball) <= hasBallRadius
	}
	return r
}

func (f *Feed) strip(camera int) (lo, hi float64) {
	width := 2 * f.geometry.HalfLength / float64(f.cameras)
	lo = -f.geometry.HalfLength + float64(camera)*width - cameraOverlap
	hi = lo + width + 2*cameraOverlap
	if camera == 0 {
		lo = math.Inf(-1)
	}
	if camera == f.cameras-1 {
		hi = math.Inf(1)
	}
	return lo, hi
}

func (f *Feed) jitter(rng *rand.Rand, p game.Vec2) game.Vec2 {
	if f.noise == 0 {
		return p
	}
	return game.Vec2{X: p.X + rng.NormFloat64()*f.noise, Y: p.Y + rng.NormFloat64()*f.noise}
}

// ball traces a figure eight inside the field. With a goal interval the
// last goalWindow of every cycle puts it just behind a goal line,
// alternating right and left.
func (f *Feed) ball(elapsed time.Duration) game.Vec2 {
	if f.goalEvery > 0 && elapsed >= 0 {
		cycle := elapsed / f.goalEvery
		if elapsed%f.goalEvery >= f.goalEvery-goalWindow {
			x := f.geometry.HalfLength + goalDepth
			if cycle%2 == 1 {
				x = -x
			}
			return game.Vec2{X: x, Y: 0}
		}
	}
	phase := 2 * math.Pi * elapsed.Seconds() / ballPeriod.Seconds()
	return game.Vec2{
		X: 0.6 * f.geometry.HalfLength * math.Sin(phase),
		Y: 0.5 * f.geometry.HalfWidth * math.Sin(2*phase),
	}
}

// formation spreads the team over its own half, keeping clear of the
// defense area, with a slow sideways sway.
func (f *Feed) formation(elapsed time.Duration, defendsRight bool) []Pose {
	sign := -1.0
	if defendsRight {
		sign = 1
	}
	near := 0.4
	far := f.geometry.HalfLength - f.geometry.DefenseDepth - 0.3
	if far < near {
		far = near
	}
	poses := make([]Pose, f.robots)
	for i := range poses {
		pos := f.home(i, near, far, sign, elapsed)
		next := f.home(i, near, far, sign, elapsed+velocityWindow)
		orientation := 0.0
		if defendsRight {
			orientation = math.Pi
		}
		poses[i] = Pose{
			ID:          i,
			Position:    pos,
			Orientation: orientation,
			Velocity:    next.Sub(pos).Scale(1 / velocityWindow.Seconds()),
		}
	}
	return poses
}

func (f *Feed) home(i int, near, far, sign float64, elapsed time.Duration) game.Vec2 {
	depth := near
	if f.robots > 1 {
		depth = near + (far-near)*float64(i)/float64(f.robots-1)
	}
	lane := float64(i%3 - 1)
	phase := 2*math.Pi*elapsed.Seconds()/swayPeriod.Seconds() + float64(i)
	return game.Vec2{
		X: sign * depth,
		Y: 0.6*f.geometry.HalfWidth*lane + swayAmplitude*math.Sin(phase),
	}
}
