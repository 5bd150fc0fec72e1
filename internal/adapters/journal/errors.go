package journal

import "errors"

var (
	ErrOpenJournal  = errors.New("open journal failed")
	ErrUnknownMatch = errors.New("unknown match")
	// ErrDisabled is returned by readers when no journal is configured.
	ErrDisabled = errors.New("journal disabled")
)
