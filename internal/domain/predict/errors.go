package predict

import "errors"

// ErrInvalidStrategy marks strategy parameters outside their valid range.
var ErrInvalidStrategy = errors.New("invalid prediction strategy")
