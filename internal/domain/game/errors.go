package game

import "errors"

// Sentinel errors for parsing enumerations.
var (
	ErrUnknownTeam    = errors.New("unknown team")
	ErrUnknownCommand = errors.New("unknown referee command")
	ErrUnknownStage   = errors.New("unknown stage")
)
