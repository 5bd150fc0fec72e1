package stream

import (
	"time"

	"github.com/okian/pitchside/pkg/logger"
)

// Option applies a configuration option to the Hub.
type Option func(*Hub)

// WithWriteTimeout bounds each write to a client.
func WithWriteTimeout(d time.Duration) Option {
	return func(h *Hub) {
		if d > 0 {
			h.writeTimeout = d
		}
	}
}

// WithLogger sets a custom logger for the hub.
func WithLogger(l logger.Logger) Option {
	return func(h *Hub) {
		if l != nil {
			h.log = l
		}
	}
}
