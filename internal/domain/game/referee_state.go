package game

import "time"

const (
	defaultTimeouts       = 4
	defaultTimeoutTime    = 300 * time.Second
	defaultMaxAllowedBots = 6
)

// TeamInfo is the per-team bookkeeping carried by the referee.
type TeamInfo struct {
	Name                  string        `json:"name"`
	Score                 int           `json:"score"`
	RedCards              int           `json:"red_cards"`
	YellowCards           int           `json:"yellow_cards"`
	Timeouts              int           `json:"timeouts"`
	TimeoutTime           time.Duration `json:"timeout_time"`
	Goalkeeper            int           `json:"goalkeeper"`
	FoulCounter           int           `json:"foul_counter"`
	BallPlacementFailures int           `json:"ball_placement_failures"`
	CanPlaceBall          bool          `json:"can_place_ball"`
	MaxAllowedBots        int           `json:"max_allowed_bots"`
}

// NewTeamInfo returns a TeamInfo with tournament defaults.
func NewTeamInfo(name string) TeamInfo {
	return TeamInfo{
		Name:           name,
		Timeouts:       defaultTimeouts,
		TimeoutTime:    defaultTimeoutTime,
		CanPlaceBall:   true,
		MaxAllowedBots: defaultMaxAllowedBots,
	}
}

// ViolationInfo summarises the last violation the state machine applied.
type ViolationInfo struct {
	Rule     string    `json:"rule"`
	Offender Team      `json:"offender"`
	Message  string    `json:"message"`
	At       time.Time `json:"at"`
}

// RefereeState is the command/score/stage record produced by the state
// machine each tick.
type RefereeState struct {
	Command          Command   `json:"command"`
	CommandCounter   uint32    `json:"command_counter"`
	CommandTimestamp time.Time `json:"command_timestamp"`

	NextCommand    Command `json:"next_command"`
	HasNextCommand bool    `json:"has_next_command"`

	Stage         Stage         `json:"stage"`
	StageTimeLeft time.Duration `json:"stage_time_left"`

	Yellow TeamInfo `json:"yellow"`
	Blue   TeamInfo `json:"blue"`

	DesignatedPosition    Vec2 `json:"designated_position"`
	HasDesignatedPosition bool `json:"has_designated_position"`

	LastViolation    ViolationInfo `json:"last_violation"`
	HasLastViolation bool          `json:"has_last_violation"`
}

// Team returns the TeamInfo for colour t.
func (r RefereeState) Team(t Team) TeamInfo {
	if t == TeamBlue {
		return r.Blue
	}
	return r.Yellow
}

// Next returns the queued next command, if any.
func (r RefereeState) Next() (Command, bool) { return r.NextCommand, r.HasNextCommand }

// Designated returns the ball placement target, if any.
func (r RefereeState) Designated() (Vec2, bool) {
	return r.DesignatedPosition, r.HasDesignatedPosition
}
