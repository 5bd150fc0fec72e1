package referee

import "errors"

var (
	// ErrInvalidTransition is returned when a violation arrives in a state
	// that cannot be left automatically (HALT, TIMEOUT_*).
	ErrInvalidTransition = errors.New("invalid referee transition")
	// ErrCooldown is returned inside the transition cooldown window.
	ErrCooldown = errors.New("transition cooldown active")
	// ErrMatchInProgress is returned when a profile swap is attempted
	// outside a match boundary.
	ErrMatchInProgress = errors.New("match in progress")
)
