package drill

import "errors"

var (
	ErrUnexpectedStatus = errors.New("unexpected status")
	ErrNoProgress       = errors.New("tick sequence did not advance")
	ErrWrongCommand     = errors.New("referee command mismatch")
)
