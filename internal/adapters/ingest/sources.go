package ingest

import (
	"fmt"
	"slices"

	"github.com/okian/pitchside/internal/domain/game"
)

// Sources is the fixed set of buffers created at startup: one per camera,
// one per friendly robot link and one for the referee feed.
type Sources struct {
	cameras  []*Buffer[game.VisionFrame]
	robots   map[int]*Buffer[game.RobotTelemetry]
	robotIDs []int
	referee  *Buffer[game.RefereePacket]
}

// NewSources creates buffers for cameraCount cameras and the given robot ids.
func NewSources(cameraCount int, robotIDs []int) *Sources {
	s := &Sources{
		cameras:  make([]*Buffer[game.VisionFrame], cameraCount),
		robots:   make(map[int]*Buffer[game.RobotTelemetry], len(robotIDs)),
		robotIDs: slices.Sorted(slices.Values(robotIDs)),
		referee:  NewBuffer[game.RefereePacket]("referee"),
	}
	for i := range s.cameras {
		s.cameras[i] = NewBuffer[game.VisionFrame](fmt.Sprintf("camera-%d", i))
	}
	for _, id := range robotIDs {
		s.robots[id] = NewBuffer[game.RobotTelemetry](fmt.Sprintf("robot-%d", id))
	}
	return s
}

// Camera returns the buffer for camera i.
func (s *Sources) Camera(i int) (*Buffer[game.VisionFrame], error) {
	if i < 0 || i >= len(s.cameras) {
		return nil, fmt.Errorf("%w: camera %d", ErrUnknownSource, i)
	}
	return s.cameras[i], nil
}

// Robot returns the telemetry buffer for robot id.
func (s *Sources) Robot(id int) (*Buffer[game.RobotTelemetry], error) {
	b, ok := s.robots[id]
	if !ok {
		return nil, fmt.Errorf("%w: robot %d", ErrUnknownSource, id)
	}
	return b, nil
}

// Referee returns the referee feed buffer.
func (s *Sources) Referee() *Buffer[game.RefereePacket] { return s.referee }

// CameraCount returns the number of camera buffers.
func (s *Sources) CameraCount() int { return len(s.cameras) }

// RobotIDs returns the robot ids that have a telemetry link.
func (s *Sources) RobotIDs() []int { return slices.Clone(s.robotIDs) }

// WriteVision routes a frame to its camera buffer.
func (s *Sources) WriteVision(f game.VisionFrame) error {
	b, err := s.Camera(f.Camera)
	if err != nil {
		return err
	}
	b.Write(f)
	return nil
}

// WriteTelemetry routes a report to its robot buffer.
func (s *Sources) WriteTelemetry(t game.RobotTelemetry) error {
	b, err := s.Robot(t.RobotID)
	if err != nil {
		return err
	}
	b.Write(t)
	return nil
}

// WriteReferee stores a referee packet.
func (s *Sources) WriteReferee(p game.RefereePacket) { s.referee.Write(p) }

// Drain takes the latest value from every buffer exactly once, in a fixed
// order, and never waits for a source.
func (s *Sources) Drain() game.Batch {
	var b game.Batch
	for _, c := range s.cameras {
		if f, ok := c.TakeLatest(); ok {
			b.Vision.Frames = append(b.Vision.Frames, f)
		}
	}
	for _, id := range s.robotIDs {
		if t, ok := s.robots[id].TakeLatest(); ok {
			b.Telemetry.Reports = append(b.Telemetry.Reports, t)
		}
	}
	b.Referee, b.HasReferee = s.referee.TakeLatest()
	return b
}

// Overwrites sums replaced-before-read values across every buffer.
func (s *Sources) Overwrites() uint64 {
	var n uint64
	for _, c := range s.cameras {
		_, o := c.Stats()
		n += o
	}
	for _, r := range s.robots {
		_, o := r.Stats()
		n += o
	}
	_, o := s.referee.Stats()
	return n + o
}
