package game

import (
	"fmt"
	"strings"
)

// Command is a referee command. Numeric ids match the referee wire protocol.
type Command int

const (
	CommandHalt Command = iota
	CommandStop
	CommandNormalStart
	CommandForceStart
	CommandPrepareKickoffYellow
	CommandPrepareKickoffBlue
	CommandPreparePenaltyYellow
	CommandPreparePenaltyBlue
	CommandDirectFreeYellow
	CommandDirectFreeBlue
	CommandIndirectFreeYellow
	CommandIndirectFreeBlue
	CommandTimeoutYellow
	CommandTimeoutBlue
	CommandGoalYellow
	CommandGoalBlue
	CommandBallPlacementYellow
	CommandBallPlacementBlue
)

var commandNames = [...]string{ //nolint:gochecknoglobals // lookup table
	CommandHalt:                 "HALT",
	CommandStop:                 "STOP",
	CommandNormalStart:          "NORMAL_START",
	CommandForceStart:           "FORCE_START",
	CommandPrepareKickoffYellow: "PREPARE_KICKOFF_YELLOW",
	CommandPrepareKickoffBlue:   "PREPARE_KICKOFF_BLUE",
	CommandPreparePenaltyYellow: "PREPARE_PENALTY_YELLOW",
	CommandPreparePenaltyBlue:   "PREPARE_PENALTY_BLUE",
	CommandDirectFreeYellow:     "DIRECT_FREE_YELLOW",
	CommandDirectFreeBlue:       "DIRECT_FREE_BLUE",
	CommandIndirectFreeYellow:   "INDIRECT_FREE_YELLOW",
	CommandIndirectFreeBlue:     "INDIRECT_FREE_BLUE",
	CommandTimeoutYellow:        "TIMEOUT_YELLOW",
	CommandTimeoutBlue:          "TIMEOUT_BLUE",
	CommandGoalYellow:           "GOAL_YELLOW",
	CommandGoalBlue:             "GOAL_BLUE",
	CommandBallPlacementYellow:  "BALL_PLACEMENT_YELLOW",
	CommandBallPlacementBlue:    "BALL_PLACEMENT_BLUE",
}

func (c Command) String() string {
	if c < 0 || int(c) >= len(commandNames) {
		return fmt.Sprintf("COMMAND(%d)", int(c))
	}
	return commandNames[c]
}

// Valid reports whether c is a known command id.
func (c Command) Valid() bool { return c >= 0 && int(c) < len(commandNames) }

// ParseCommand accepts the upper-case name (case-insensitive).
func ParseCommand(s string) (Command, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for i, n := range commandNames {
		if n == name {
			return Command(i), nil
		}
	}
	return CommandHalt, fmt.Errorf("%w: %q", ErrUnknownCommand, s)
}

func (c Command) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *Command) UnmarshalText(b []byte) error {
	v, err := ParseCommand(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// IsLive reports whether the ball is in open play.
func (c Command) IsLive() bool { return c == CommandNormalStart || c == CommandForceStart }

// IsStoppage reports whether the game is stopped around a restart: STOP or
// any set-piece preparation or free kick.
func (c Command) IsStoppage() bool {
	if c == CommandStop {
		return true
	}
	return c.KickingTeam() != TeamUnknown
}

// KickingTeam returns the team awarded a set piece by c, or TeamUnknown.
func (c Command) KickingTeam() Team {
	switch c {
	case CommandPrepareKickoffYellow, CommandPreparePenaltyYellow, CommandDirectFreeYellow,
		CommandIndirectFreeYellow, CommandBallPlacementYellow:
		return TeamYellow
	case CommandPrepareKickoffBlue, CommandPreparePenaltyBlue, CommandDirectFreeBlue,
		CommandIndirectFreeBlue, CommandBallPlacementBlue:
		return TeamBlue
	default:
		return TeamUnknown
	}
}

// PrepareKickoff returns PREPARE_KICKOFF for team.
func PrepareKickoff(team Team) Command {
	if team == TeamBlue {
		return CommandPrepareKickoffBlue
	}
	return CommandPrepareKickoffYellow
}

// DirectFree returns DIRECT_FREE for team. Unknown maps to yellow.
func DirectFree(team Team) Command {
	if team == TeamBlue {
		return CommandDirectFreeBlue
	}
	return CommandDirectFreeYellow
}
