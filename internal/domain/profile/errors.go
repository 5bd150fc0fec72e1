package profile

import "errors"

// Sentinel errors. All of them are fatal at load time.
var (
	ErrInvalidProfile = errors.New("invalid profile")
	ErrLoadProfile    = errors.New("load profile failed")
	ErrUnknownProfile = errors.New("unknown profile")
)
