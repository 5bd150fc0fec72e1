package game

import (
	"fmt"
	"strings"
)

// Team identifies a side by colour.
type Team int

const (
	TeamUnknown Team = iota
	TeamYellow
	TeamBlue
)

func (t Team) String() string {
	switch t {
	case TeamYellow:
		return "yellow"
	case TeamBlue:
		return "blue"
	default:
		return "unknown"
	}
}

// Opponent returns the other colour. Unknown stays unknown.
func (t Team) Opponent() Team {
	switch t {
	case TeamYellow:
		return TeamBlue
	case TeamBlue:
		return TeamYellow
	default:
		return TeamUnknown
	}
}

// ParseTeam parses "yellow" or "blue".
func ParseTeam(s string) (Team, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yellow":
		return TeamYellow, nil
	case "blue":
		return TeamBlue, nil
	default:
		return TeamUnknown, fmt.Errorf("%w: %q", ErrUnknownTeam, s)
	}
}

func (t Team) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *Team) UnmarshalText(b []byte) error {
	if string(b) == "unknown" || len(b) == 0 {
		*t = TeamUnknown
		return nil
	}
	v, err := ParseTeam(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Perspective fixes which colour is "ours" and which way we attack.
//
// MyTeamIsRight names the side we attack, not the side we defend: when it
// is set our team attacks the right-hand goal (positive x) and defends the
// left goal and the left defense area. A ball entering the right goal then
// scores for us. Every rule resolves sides through DefendingRight and
// FriendlyDefendsRight; nothing else interprets the flag.
type Perspective struct {
	MyTeamIsYellow bool `json:"my_team_is_yellow"`
	MyTeamIsRight  bool `json:"my_team_is_right"`
}

// Friendly returns our colour.
func (p Perspective) Friendly() Team {
	if p.MyTeamIsYellow {
		return TeamYellow
	}
	return TeamBlue
}

// Enemy returns the opponent colour.
func (p Perspective) Enemy() Team { return p.Friendly().Opponent() }

// DefendingRight returns the team whose goal is at positive x.
func (p Perspective) DefendingRight() Team {
	if p.MyTeamIsRight {
		return p.Enemy()
	}
	return p.Friendly()
}

// DefendingLeft returns the team whose goal is at negative x.
func (p Perspective) DefendingLeft() Team { return p.DefendingRight().Opponent() }

// FriendlyDefendsRight reports whether our own goal is at positive x.
func (p Perspective) FriendlyDefendsRight() bool { return p.DefendingRight() == p.Friendly() }
