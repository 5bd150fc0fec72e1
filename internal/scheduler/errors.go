package scheduler

import "errors"

var (
	ErrStopped        = errors.New("scheduler stopped")
	ErrInvalidRequest = errors.New("invalid request")
	ErrNoEngine       = errors.New("referee engine is required")
	ErrNoSources      = errors.New("ingestion sources are required")
)
