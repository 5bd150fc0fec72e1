package game

import (
	"slices"
	"time"
)

// Robot is the fused state of one robot.
type Robot struct {
	ID          int     `json:"id"`
	Position    Vec2    `json:"position"`
	Orientation float64 `json:"orientation"`
	Velocity    Vec2    `json:"velocity"`
	HasBall     bool    `json:"has_ball"`

	// Covariance is the position uncertainty kept by the Kalman filter;
	// zero when filtering is off or the robot was just seen.
	Covariance Cov2 `json:"-"`
}

// Ball is the fused ball state. Visible is false when no camera saw a
// confident ball yet.
type Ball struct {
	Position   Vec2    `json:"position"`
	Velocity   Vec2    `json:"velocity"`
	Confidence float64 `json:"confidence"`
	Visible    bool    `json:"visible"`

	Covariance Cov2 `json:"-"`
}

// Possession names the robot believed to control the ball.
type Possession struct {
	Team    Team `json:"team"`
	RobotID int  `json:"robot_id"`
}

// Held reports whether any robot holds the ball.
func (p Possession) Held() bool { return p.Team != TeamUnknown }

// Snapshot is one fully refined view of the match at a tick. It is never
// mutated after the scheduler commits it.
type Snapshot struct {
	Seq       uint64    `json:"seq"`
	Timestamp time.Time `json:"timestamp"`

	Perspective Perspective `json:"perspective"`

	// VisionTime is the capture time of the newest fused camera frame.
	VisionTime time.Time `json:"vision_time"`

	Ball       Ball       `json:"ball"`
	Friendly   []Robot    `json:"friendly"`
	Enemy      []Robot    `json:"enemy"`
	Possession Possession `json:"possession"`

	Referee RefereeState `json:"referee"`

	ExternalReferee    RefereePacket `json:"external_referee"`
	HasExternalReferee bool          `json:"has_external_referee"`
}

// NewSnapshot returns the empty snapshot a match starts from.
func NewSnapshot(p Perspective) Snapshot {
	return Snapshot{Perspective: p}
}

// Clone returns a deep copy that shares no slices with s.
func (s Snapshot) Clone() Snapshot {
	c := s
	c.Friendly = slices.Clone(s.Friendly)
	c.Enemy = slices.Clone(s.Enemy)
	return c
}

// Robots returns the robots of colour t.
func (s Snapshot) Robots(t Team) []Robot {
	switch t {
	case s.Perspective.Friendly():
		return s.Friendly
	case s.Perspective.Enemy():
		return s.Enemy
	default:
		return nil
	}
}

// FriendlyRobot finds one of our robots by id.
func (s Snapshot) FriendlyRobot(id int) (Robot, bool) {
	for _, r := range s.Friendly {
		if r.ID == id {
			return r, true
		}
	}
	return Robot{}, false
}
