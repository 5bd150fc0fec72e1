package simfeed

import "errors"

var (
	ErrNoSink        = errors.New("simfeed: sink is required")
	ErrInvalidConfig = errors.New("simfeed: invalid config")
)
