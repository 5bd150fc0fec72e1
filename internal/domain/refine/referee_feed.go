package refine

import (
	"fmt"

	"github.com/okian/pitchside/internal/domain/game"
)

// RefereeFeedRefiner copies the external referee packet into the snapshot.
// It never touches the referee state the local state machine owns.
type RefereeFeedRefiner struct{}

func NewRefereeFeedRefiner() *RefereeFeedRefiner { return &RefereeFeedRefiner{} }

func (*RefereeFeedRefiner) Name() string  { return "referee_feed" }
func (*RefereeFeedRefiner) Reads() Field  { return 0 }
func (*RefereeFeedRefiner) Writes() Field { return FieldExternalReferee }

func (*RefereeFeedRefiner) Select(b game.Batch) (game.Datapoint, bool) {
	if !b.HasReferee {
		return nil, false
	}
	return b.Referee, true
}

func (*RefereeFeedRefiner) Refine(s game.Snapshot, d game.Datapoint) (game.Snapshot, error) {
	p, ok := d.(game.RefereePacket)
	if !ok {
		return s, fmt.Errorf("%w: %T", ErrUnexpectedDatapoint, d)
	}
	if !p.Command.Valid() || !p.Stage.Valid() {
		return s, fmt.Errorf("%w: command %d stage %d", ErrMalformedDatapoint, int(p.Command), int(p.Stage))
	}
	out := s.Clone()
	out.ExternalReferee = p
	out.HasExternalReferee = true
	return out, nil
}
