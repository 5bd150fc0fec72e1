package worker

import (
	"time"

	"github.com/okian/pitchside/pkg/logger"
)

type settings struct {
	name    string
	timeout time.Duration
	logger  logger.Logger
}

// Option applies a configuration option to a Writer.
type Option func(*settings)

// WithName sets the worker name for logging and the metrics label.
func WithName(name string) Option {
	return func(s *settings) {
		if name != "" {
			s.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(logger logger.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithWriteTimeout bounds each append.
func WithWriteTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.timeout = d
		}
	}
}
