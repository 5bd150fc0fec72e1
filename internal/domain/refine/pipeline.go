package refine

import (
	"fmt"

	"github.com/okian/pitchside/internal/domain/field"
	"github.com/okian/pitchside/internal/domain/game"
	"github.com/okian/pitchside/pkg/metrics"
)

// Pipeline runs a fixed, validated list of refiners.
type Pipeline struct {
	refiners []Refiner
}

// NewPipeline checks that no refiner reads a field written only by a
// refiner placed after it.
func NewPipeline(refiners ...Refiner) (*Pipeline, error) {
	if len(refiners) == 0 {
		return nil, fmt.Errorf("%w: no refiners", ErrOrdering)
	}
	for i, r := range refiners {
		var later Field
		for _, l := range refiners[i+1:] {
			later |= l.Writes()
		}
		if missing := r.Reads() & later; missing != 0 {
			return nil, fmt.Errorf("%w: %s reads %s before it is written", ErrOrdering, r.Name(), missing)
		}
	}
	return &Pipeline{refiners: append([]Refiner(nil), refiners...)}, nil
}

// Standard returns the documented order: position fusion, telemetry,
// possession, then the external referee copy-through. opts configure the
// position refiner.
func Standard(g field.Geometry, possessionRadius float64, opts ...PositionOption) (*Pipeline, error) {
	return NewPipeline(
		NewPositionRefiner(NewCameraCombiner(g), opts...),
		NewTelemetryRefiner(),
		NewPossessionRefiner(possessionRadius),
		NewRefereeFeedRefiner(),
	)
}

// Names returns the refiner names in execution order.
func (p *Pipeline) Names() []string {
	names := make([]string, len(p.refiners))
	for i, r := range p.refiners {
		names[i] = r.Name()
	}
	return names
}

// Run feeds the batch through every refiner in order. A failing refiner
// leaves the snapshot as it was and the run continues with the next one.
func (p *Pipeline) Run(s game.Snapshot, b game.Batch) (game.Snapshot, []RefinerError) {
	var errs []RefinerError
	for _, r := range p.refiners {
		d, ok := r.Select(b)
		if !ok {
			continue
		}
		next, err := r.Refine(s, d)
		if err != nil {
			metrics.RecordRefinerError(r.Name())
			errs = append(errs, RefinerError{Refiner: r.Name(), Source: d.Source(), Err: err})
			continue
		}
		s = next
	}
	return s, errs
}
