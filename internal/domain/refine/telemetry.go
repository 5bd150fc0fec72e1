package refine

import (
	"fmt"
	"slices"

	"github.com/okian/pitchside/internal/domain/game"
)

// TelemetryRefiner applies our robots' own reports: the ball sensor flag
// and, when present, the measured velocity. It patches robots the position
// refiner placed, so it runs after it.
type TelemetryRefiner struct{}

func NewTelemetryRefiner() *TelemetryRefiner { return &TelemetryRefiner{} }

func (*TelemetryRefiner) Name() string  { return "telemetry" }
func (*TelemetryRefiner) Reads() Field  { return FieldRobots }
func (*TelemetryRefiner) Writes() Field { return FieldRobots }

func (*TelemetryRefiner) Select(b game.Batch) (game.Datapoint, bool) {
	if len(b.Telemetry.Reports) == 0 {
		return nil, false
	}
	return b.Telemetry, true
}

func (*TelemetryRefiner) Refine(s game.Snapshot, d game.Datapoint) (game.Snapshot, error) {
	tb, ok := d.(game.TelemetryBatch)
	if !ok {
		return s, fmt.Errorf("%w: %T", ErrUnexpectedDatapoint, d)
	}
	for _, rep := range tb.Reports {
		if rep.Timestamp.IsZero() {
			return s, fmt.Errorf("%w: robot %d report without timestamp", ErrMalformedDatapoint, rep.RobotID)
		}
	}

	out := s
	out.Friendly = slices.Clone(s.Friendly)
	for _, rep := range tb.Reports {
		i := slices.IndexFunc(out.Friendly, func(r game.Robot) bool { return r.ID == rep.RobotID })
		if i < 0 {
			// Not seen by any camera yet.
			continue
		}
		out.Friendly[i].HasBall = rep.HasBall
		if rep.HasVelocity && rep.Velocity.IsFinite() {
			out.Friendly[i].Velocity = rep.Velocity
		}
	}
	return out, nil
}
