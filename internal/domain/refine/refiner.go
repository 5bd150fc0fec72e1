// Package refine turns the raw datapoints drained in one tick into the
// next snapshot.
//
// A Refiner is a pure step: it takes the previous snapshot plus one
// datapoint and returns a new snapshot without touching the old one.
// Refiners run in a fixed order and declare which snapshot fields they
// read and write, so NewPipeline can reject an order in which a refiner
// would read a field a later refiner has not produced yet.
package refine

import (
	"fmt"
	"strings"

	"github.com/okian/pitchside/internal/domain/game"
)

// Field is a set of snapshot fields, used to declare refiner dependencies.
type Field uint8

const (
	FieldBall Field = 1 << iota
	FieldRobots
	FieldVisionTime
	FieldPossession
	FieldExternalReferee
)

var fieldNames = []struct { //nolint:gochecknoglobals // lookup table
	f    Field
	name string
}{
	{FieldBall, "ball"},
	{FieldRobots, "robots"},
	{FieldVisionTime, "vision_time"},
	{FieldPossession, "possession"},
	{FieldExternalReferee, "external_referee"},
}

func (f Field) String() string {
	if f == 0 {
		return "none"
	}
	var parts []string
	for _, n := range fieldNames {
		if f&n.f != 0 {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "|")
}

// Refiner is one stage of the pipeline.
type Refiner interface {
	// Name identifies the refiner in diagnostics and metrics.
	Name() string
	// Reads lists fields that must have been written earlier in the same
	// tick. Values a refiner only takes from the previous tick are not
	// declared.
	Reads() Field
	// Writes lists the fields the refiner may change.
	Writes() Field
	// Select picks this refiner's input out of the tick batch. ok is false
	// when its sources had nothing new, in which case the refiner is
	// skipped and its fields carry forward.
	Select(b game.Batch) (d game.Datapoint, ok bool)
	// Refine returns the next snapshot. It must not mutate s. On error the
	// returned snapshot is ignored.
	Refine(s game.Snapshot, d game.Datapoint) (game.Snapshot, error)
}

// RefinerError records one recoverable refiner failure.
type RefinerError struct {
	Refiner string
	Source  string
	Err     error
}

func (e RefinerError) Error() string {
	return fmt.Sprintf("refiner %s (source %s): %v", e.Refiner, e.Source, e.Err)
}

func (e RefinerError) Unwrap() error { return e.Err }
