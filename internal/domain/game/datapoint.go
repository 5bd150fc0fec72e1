package game

import (
	"strconv"
	"time"
)

// Datapoint is one typed, timestamped packet from an external feed. The set
// of variants is closed.
type Datapoint interface {
	// Source names the feed the datapoint came from.
	Source() string
	// Time is the capture time reported by the producer.
	Time() time.Time

	datapoint()
}

// BallObservation is one camera's sighting of a ball candidate.
type BallObservation struct {
	Position   Vec2    `json:"position"`
	Confidence float64 `json:"confidence"`
}

// RobotObservation is one camera's sighting of a robot.
type RobotObservation struct {
	ID          int     `json:"id"`
	Position    Vec2    `json:"position"`
	Orientation float64 `json:"orientation"`
	Confidence  float64 `json:"confidence"`
}

// VisionFrame is the detection output of one camera.
type VisionFrame struct {
	Camera    int                `json:"camera"`
	Timestamp time.Time          `json:"timestamp"`
	Balls     []BallObservation  `json:"balls"`
	Yellow    []RobotObservation `json:"yellow"`
	Blue      []RobotObservation `json:"blue"`
}

func (f VisionFrame) Source() string  { return "camera-" + strconv.Itoa(f.Camera) }
func (f VisionFrame) Time() time.Time { return f.Timestamp }
func (VisionFrame) datapoint()        {}

// Robots returns the observations for colour t.
func (f VisionFrame) Robots(t Team) []RobotObservation {
	if t == TeamBlue {
		return f.Blue
	}
	return f.Yellow
}

// VisionBatch groups the camera frames drained in one tick.
type VisionBatch struct {
	Frames []VisionFrame `json:"frames"`
}

func (VisionBatch) Source() string { return "vision" }

// Time returns the newest frame timestamp.
func (b VisionBatch) Time() time.Time {
	var t time.Time
	for _, f := range b.Frames {
		if f.Timestamp.After(t) {
			t = f.Timestamp
		}
	}
	return t
}
func (VisionBatch) datapoint() {}

// RobotTelemetry is a status report from one of our robots.
type RobotTelemetry struct {
	RobotID     int       `json:"robot_id"`
	Timestamp   time.Time `json:"timestamp"`
	HasBall     bool      `json:"has_ball"`
	Velocity    Vec2      `json:"velocity"`
	HasVelocity bool      `json:"has_velocity"`
}

func (t RobotTelemetry) Source() string  { return "robot-" + strconv.Itoa(t.RobotID) }
func (t RobotTelemetry) Time() time.Time { return t.Timestamp }
func (RobotTelemetry) datapoint()        {}

// TelemetryBatch groups the robot reports drained in one tick.
type TelemetryBatch struct {
	Reports []RobotTelemetry `json:"reports"`
}

func (TelemetryBatch) Source() string { return "telemetry" }

func (b TelemetryBatch) Time() time.Time {
	var t time.Time
	for _, r := range b.Reports {
		if r.Timestamp.After(t) {
			t = r.Timestamp
		}
	}
	return t
}
func (TelemetryBatch) datapoint() {}

// RefereePacket is a message from an external referee feed.
type RefereePacket struct {
	Timestamp      time.Time     `json:"timestamp"`
	Command        Command       `json:"command"`
	CommandCounter uint32        `json:"command_counter"`
	Stage          Stage         `json:"stage"`
	StageTimeLeft  time.Duration `json:"stage_time_left"`
	Yellow         TeamInfo      `json:"yellow"`
	Blue           TeamInfo      `json:"blue"`

	DesignatedPosition    Vec2    `json:"designated_position"`
	HasDesignatedPosition bool    `json:"has_designated_position"`
	NextCommand           Command `json:"next_command"`
	HasNextCommand        bool    `json:"has_next_command"`
}

func (RefereePacket) Source() string    { return "referee" }
func (p RefereePacket) Time() time.Time { return p.Timestamp }
func (RefereePacket) datapoint()        {}

// Batch is everything drained from the ingestion buffers in one tick.
// Empty members mean the corresponding sources had no new data.
type Batch struct {
	Vision    VisionBatch
	Telemetry TelemetryBatch
	Referee   RefereePacket
	// HasReferee is set when the referee buffer yielded a packet.
	HasReferee bool
}

// Empty reports whether no source produced data this tick.
func (b Batch) Empty() bool {
	return len(b.Vision.Frames) == 0 && len(b.Telemetry.Reports) == 0 && !b.HasReferee
}
