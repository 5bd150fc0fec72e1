// Package config defines process configuration and its loading hooks.
//
// Match rules live in referee profiles (internal/domain/profile); this
// package only carries what the process needs to wire itself: tick rate,
// source counts, team perspective and adapter settings.
package config

import (
	"fmt"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// TickRateHz is the fixed scheduler frequency.
	TickRateHz int `koanf:"tick_rate_hz"`

	// HistorySize bounds the snapshot history used by predictors.
	HistorySize int `koanf:"history_size"`

	// CameraCount is the number of vision sources, one buffer each.
	CameraCount int `koanf:"camera_count"`

	// RobotsPerTeam is the number of friendly robot telemetry links.
	RobotsPerTeam int `koanf:"robots_per_team"`

	MyTeamIsYellow bool `koanf:"my_team_is_yellow"`
	// MyTeamIsRight is set when our team attacks the right-hand goal; we
	// then defend the left one.
	MyTeamIsRight bool `koanf:"my_team_is_right"`

	// Profile names a built-in referee profile; ProfilePath overrides it
	// with a YAML file.
	Profile     string `koanf:"profile"`
	ProfilePath string `koanf:"profile_path"`

	// JournalPath is the SQLite match journal. Empty disables the journal.
	JournalPath string `koanf:"journal_path"`

	CommandQueueSize int `koanf:"command_queue_size"`
	JournalQueueSize int `koanf:"journal_queue_size"`

	// PredictionHorizonMS is how far ahead Future views extrapolate.
	PredictionHorizonMS int `koanf:"prediction_horizon_ms"`

	// PossessionRadiusM is the nearest-robot possession threshold.
	PossessionRadiusM float64 `koanf:"possession_radius_m"`

	// FollowExternalReferee injects commands from the external referee feed.
	FollowExternalReferee bool `koanf:"follow_external_referee"`

	// Simulate starts synthetic producers instead of waiting for real feeds.
	Simulate bool `koanf:"simulate"`

	StreamWriteTimeoutMS int `koanf:"stream_write_timeout_ms"`

	// KalmanEnabled smooths robot and ball positions with a constant
	// velocity Kalman filter; KalmanNoiseSDM is the measurement noise
	// standard deviation in metres.
	KalmanEnabled  bool    `koanf:"kalman_enabled"`
	KalmanNoiseSDM float64 `koanf:"kalman_noise_sd_m"`

	// ReplayRecordEvery records one committed frame in N into the journal
	// for replay. Zero disables recording; it needs a journal.
	ReplayRecordEvery int `koanf:"replay_record_every"`
	ReplayQueueSize   int `koanf:"replay_queue_size"`

	MetricsEnabled           bool `koanf:"metrics_enabled"`
	MetricsRefreshIntervalMS int  `koanf:"metrics_refresh_interval_ms"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:             "info",
		Addr:                 ":9080",
		TickRateHz:           60,
		HistorySize:          120,
		CameraCount:          4,
		RobotsPerTeam:        6,
		MyTeamIsYellow:       true,
		MyTeamIsRight:        false,
		Profile:              "strict_ai",
		CommandQueueSize:     64,
		JournalQueueSize:     4096,
		PredictionHorizonMS:  100,
		PossessionRadiusM:    0.15,
		StreamWriteTimeoutMS: 500,

		KalmanEnabled:  true,
		KalmanNoiseSDM: 0.02,

		ReplayRecordEvery: 6,
		ReplayQueueSize:   1024,

		MetricsEnabled:           true,
		MetricsRefreshIntervalMS: 10000,
	}
}

// TickPeriod returns the scheduler period derived from TickRateHz.
func (c *Config) TickPeriod() time.Duration {
	return time.Second / time.Duration(c.TickRateHz)
}

// PredictionHorizon returns the prediction horizon as a duration.
func (c *Config) PredictionHorizon() time.Duration {
	return time.Duration(c.PredictionHorizonMS) * time.Millisecond
}

// StreamWriteTimeout returns the per-write deadline for stream subscribers.
func (c *Config) StreamWriteTimeout() time.Duration {
	return time.Duration(c.StreamWriteTimeoutMS) * time.Millisecond
}

// MetricsRefreshInterval returns how often sampled system gauges refresh.
func (c *Config) MetricsRefreshInterval() time.Duration {
	return time.Duration(c.MetricsRefreshIntervalMS) * time.Millisecond
}

// Validate rejects configurations the service cannot start with.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.TickRateHz <= 0:
		return fmt.Errorf("%w: tick_rate_hz must be positive, got %d", ErrInvalidConfig, c.TickRateHz)
	case c.HistorySize < 2:
		return fmt.Errorf("%w: history_size must be at least 2, got %d", ErrInvalidConfig, c.HistorySize)
	case c.CameraCount < 1:
		return fmt.Errorf("%w: camera_count must be at least 1, got %d", ErrInvalidConfig, c.CameraCount)
	case c.RobotsPerTeam < 1:
		return fmt.Errorf("%w: robots_per_team must be at least 1, got %d", ErrInvalidConfig, c.RobotsPerTeam)
	case c.CommandQueueSize < 1 || c.JournalQueueSize < 1:
		return fmt.Errorf("%w: queue sizes must be at least 1", ErrInvalidConfig)
	case c.PredictionHorizonMS < 0:
		return fmt.Errorf("%w: prediction_horizon_ms must not be negative", ErrInvalidConfig)
	case c.PossessionRadiusM <= 0:
		return fmt.Errorf("%w: possession_radius_m must be positive", ErrInvalidConfig)
	case c.StreamWriteTimeoutMS <= 0:
		return fmt.Errorf("%w: stream_write_timeout_ms must be positive", ErrInvalidConfig)
	case c.KalmanEnabled && c.KalmanNoiseSDM <= 0:
		return fmt.Errorf("%w: kalman_noise_sd_m must be positive", ErrInvalidConfig)
	case c.ReplayRecordEvery < 0 || c.ReplayQueueSize < 1:
		return fmt.Errorf("%w: replay_record_every must not be negative and replay_queue_size must be at least 1",
			ErrInvalidConfig)
	case c.MetricsRefreshIntervalMS <= 0:
		return fmt.Errorf("%w: metrics_refresh_interval_ms must be positive", ErrInvalidConfig)
	case c.Profile == "" && c.ProfilePath == "":
		return fmt.Errorf("%w: profile or profile_path is required", ErrInvalidConfig)
	}
	return nil
}
