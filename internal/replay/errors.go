package replay

import "errors"

var (
	// ErrInvalidStride is returned for a recording stride below one.
	ErrInvalidStride = errors.New("invalid recording stride")
	// ErrInvalidSpeed is returned for a negative or non-finite playback speed.
	ErrInvalidSpeed = errors.New("invalid playback speed")
)
