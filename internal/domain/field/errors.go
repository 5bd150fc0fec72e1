package field

import "errors"

// ErrInvalidGeometry marks a field description that cannot be played on.
var ErrInvalidGeometry = errors.New("invalid geometry")
