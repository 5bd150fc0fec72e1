package scheduler

import (
	"fmt"

	"github.com/okian/pitchside/internal/domain/game"
	"github.com/okian/pitchside/internal/domain/profile"
	"github.com/okian/pitchside/internal/domain/referee"
)

// RequestKind selects what a Request changes.
type RequestKind int

const (
	RequestCommand RequestKind = iota + 1
	RequestStage
	RequestProfile
)

func (k RequestKind) String() string {
	switch k {
	case RequestCommand:
		return "command"
	case RequestStage:
		return "stage"
	case RequestProfile:
		return "profile"
	default:
		return fmt.Sprintf("request(%d)", int(k))
	}
}

// Request is a change applied at the start of the next tick.
type Request struct {
	Kind    RequestKind
	Cause   referee.Cause
	Command game.Command
	Stage   game.Stage
	Profile profile.Profile

	reply chan error
}

// CommandRequest injects cmd.
func CommandRequest(cmd game.Command, cause referee.Cause) Request {
	return Request{Kind: RequestCommand, Command: cmd, Cause: cause}
}

// StageRequest moves the match to stage.
func StageRequest(stage game.Stage) Request {
	return Request{Kind: RequestStage, Stage: stage, Cause: referee.CauseStage}
}

// ProfileRequest swaps the active profile at a match boundary.
func ProfileRequest(p profile.Profile) Request {
	return Request{Kind: RequestProfile, Profile: p, Cause: referee.CauseOperator}
}

func (r Request) respond(err error) {
	if r.reply == nil {
		return
	}
	select {
	case r.reply <- err:
	default:
	}
}
