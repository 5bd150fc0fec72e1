package simfeed

import (
	"time"

	"github.com/okian/pitchside/pkg/logger"
)

// Option configures a Feed.
type Option func(*Feed)

// WithCameras sets how many cameras split the field.
func WithCameras(n int) Option {
	return func(f *Feed) { f.cameras = n }
}

// WithRobots sets the robots per team. Friendly ids are 0..n-1.
func WithRobots(n int) Option {
	return func(f *Feed) { f.robots = n }
}

// WithCameraRate sets the frame rate of every camera.
func WithCameraRate(hz float64) Option {
	return func(f *Feed) {
		if hz > 0 {
			f.cameraPeriod = time.Duration(float64(time.Second) / hz)
		}
	}
}

// WithTelemetryRate sets the report rate of every robot link.
func WithTelemetryRate(hz float64) Option {
	return func(f *Feed) {
		if hz > 0 {
			f.telemetryPeriod = time.Duration(float64(time.Second) / hz)
		}
	}
}

// WithNoise sets the standard deviation of position noise in metres.
func WithNoise(sigma float64) Option {
	return func(f *Feed) { f.noise = sigma }
}

// WithSeed makes the noise reproducible.
func WithSeed(seed uint64) Option {
	return func(f *Feed) { f.seed = seed }
}

// WithGoalEvery sends the ball into a goal once per interval. Zero keeps
// it on the field.
func WithGoalEvery(d time.Duration) Option {
	return func(f *Feed) { f.goalEvery = d }
}

// WithEpoch sets the scene's time origin.
func WithEpoch(t time.Time) Option {
	return func(f *Feed) { f.epoch = t }
}

// WithLogger sets a custom logger for the feed.
func WithLogger(l logger.Logger) Option {
	return func(f *Feed) {
		if l != nil {
			f.log = l
		}
	}
}
