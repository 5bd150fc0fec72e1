package refine

import "errors"

var (
	// ErrOrdering is returned when a refiner list violates its declared
	// field dependencies.
	ErrOrdering = errors.New("refiner ordering violation")
	// ErrUnexpectedDatapoint is returned when a refiner receives a
	// datapoint variant it does not handle.
	ErrUnexpectedDatapoint = errors.New("unexpected datapoint")
	// ErrMalformedDatapoint marks input a refiner cannot use.
	ErrMalformedDatapoint = errors.New("malformed datapoint")
	// ErrInvalidFilter is returned for unusable filter parameters.
	ErrInvalidFilter = errors.New("invalid filter")
)
