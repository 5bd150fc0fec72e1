package replay

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/okian/pitchside/internal/adapters/journal"
)

const defaultPage = 200

// Source pages through a match's recordings.
type Source interface {
	Match(ctx context.Context, id string) (journal.Match, error)
	Recordings(ctx context.Context, matchID string, from uint64, limit int) ([]journal.Recording, error)
}

// Player reads recordings back in sequence order.
type Player struct {
	src   Source
	speed float64
	page  int
}

// PlayerOption configures a Player.
type PlayerOption func(*Player)

// WithSpeed scales playback: 2 plays twice as fast. Zero plays without
// pauses.
func WithSpeed(speed float64) PlayerOption {
	return func(p *Player) { p.speed = speed }
}

// WithPageSize sets how many recordings are read per query.
func WithPageSize(n int) PlayerOption {
	return func(p *Player) {
		if n > 0 {
			p.page = n
		}
	}
}

// NewPlayer creates a player over src, at recorded pace by default.
func NewPlayer(src Source, opts ...PlayerOption) (*Player, error) {
	p := &Player{src: src, speed: 1, page: defaultPage}
	for _, opt := range opts {
		opt(p)
	}
	if p.speed < 0 || math.IsNaN(p.speed) || math.IsInf(p.speed, 0) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSpeed, p.speed)
	}
	return p, nil
}

// Play hands every recording of matchID with a sequence id of at least
// from to emit, waiting between them as long as the recorded gap divided
// by the speed. It stops at the first emit error or when ctx ends.
func (p *Player) Play(ctx context.Context, matchID string, from uint64, emit func(journal.Recording) error) error {
	if _, err := p.src.Match(ctx, matchID); err != nil {
		return err
	}
	var last time.Time
	for {
		page, err := p.src.Recordings(ctx, matchID, from, p.page)
		if err != nil {
			return err
		}
		for _, r := range page {
			if !last.IsZero() {
				if err := p.wait(ctx, r.At.Sub(last)); err != nil {
					return err
				}
			}
			last = r.At
			if err := emit(r); err != nil {
				return err
			}
			from = r.Seq + 1
		}
		if len(page) < p.page {
			return nil
		}
	}
}

func (p *Player) wait(ctx context.Context, gap time.Duration) error {
	if p.speed == 0 || gap <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(time.Duration(float64(gap) / p.speed))
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
