package game

import (
	"fmt"
	"strings"
)

// Stage is the phase of the match.
type Stage int

const (
	StageNormalFirstHalfPre Stage = iota
	StageNormalFirstHalf
	StageNormalHalfTime
	StageNormalSecondHalfPre
	StageNormalSecondHalf
	StageExtraTimeBreak
	StageExtraFirstHalfPre
	StageExtraFirstHalf
	StageExtraHalfTime
	StageExtraSecondHalfPre
	StageExtraSecondHalf
	StagePenaltyShootoutBreak
	StagePenaltyShootout
	StagePostGame
)

var stageNames = [...]string{ //nolint:gochecknoglobals // lookup table
	StageNormalFirstHalfPre:   "NORMAL_FIRST_HALF_PRE",
	StageNormalFirstHalf:      "NORMAL_FIRST_HALF",
	StageNormalHalfTime:       "NORMAL_HALF_TIME",
	StageNormalSecondHalfPre:  "NORMAL_SECOND_HALF_PRE",
	StageNormalSecondHalf:     "NORMAL_SECOND_HALF",
	StageExtraTimeBreak:       "EXTRA_TIME_BREAK",
	StageExtraFirstHalfPre:    "EXTRA_FIRST_HALF_PRE",
	StageExtraFirstHalf:       "EXTRA_FIRST_HALF",
	StageExtraHalfTime:        "EXTRA_HALF_TIME",
	StageExtraSecondHalfPre:   "EXTRA_SECOND_HALF_PRE",
	StageExtraSecondHalf:      "EXTRA_SECOND_HALF",
	StagePenaltyShootoutBreak: "PENALTY_SHOOTOUT_BREAK",
	StagePenaltyShootout:      "PENALTY_SHOOTOUT",
	StagePostGame:             "POST_GAME",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("STAGE(%d)", int(s))
	}
	return stageNames[s]
}

// Valid reports whether s is a known stage id.
func (s Stage) Valid() bool { return s >= 0 && int(s) < len(stageNames) }

// ParseStage accepts the upper-case name (case-insensitive).
func ParseStage(v string) (Stage, error) {
	name := strings.ToUpper(strings.TrimSpace(v))
	for i, n := range stageNames {
		if n == name {
			return Stage(i), nil
		}
	}
	return StageNormalFirstHalfPre, fmt.Errorf("%w: %q", ErrUnknownStage, v)
}

func (s Stage) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Stage) UnmarshalText(b []byte) error {
	v, err := ParseStage(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// IsPre reports whether s waits for kickoff before its half starts.
func (s Stage) IsPre() bool {
	switch s {
	case StageNormalFirstHalfPre, StageNormalSecondHalfPre, StageExtraFirstHalfPre, StageExtraSecondHalfPre:
		return true
	}
	return false
}

// Active returns the running half that follows a *_PRE stage. Other
// stages are returned unchanged.
func (s Stage) Active() Stage {
	if s.IsPre() {
		return s + 1
	}
	return s
}

// IsTimed reports whether the stage clock counts down during s.
func (s Stage) IsTimed() bool {
	switch s {
	case StageNormalFirstHalf, StageNormalSecondHalf, StageExtraFirstHalf, StageExtraSecondHalf:
		return true
	}
	return false
}
