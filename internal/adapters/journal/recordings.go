package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/okian/pitchside/internal/domain/game"
)

// DefaultRecordingPage bounds Recordings when no limit is given.
const DefaultRecordingPage = 500

// Recording is one committed snapshot kept for replay. The referee state
// travels inside the snapshot.
type Recording struct {
	MatchID  string        `json:"match_id"`
	Seq      uint64        `json:"seq"`
	At       time.Time     `json:"at"`
	Snapshot game.Snapshot `json:"snapshot"`
}

// AppendRecording stores one snapshot. Recording a sequence id twice is an
// error.
func (s *Store) AppendRecording(ctx context.Context, r Recording) error {
	data, err := json.Marshal(r.Snapshot)
	if err != nil {
		return fmt.Errorf("encode snapshot %d: %w", r.Seq, err)
	}
	ref := r.Snapshot.Referee
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO recordings (match_id, seq, at, command, stage, score_yellow, score_blue, snapshot)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.MatchID, int64(r.Seq), formatTime(r.At.UTC()), ref.Command.String(), ref.Stage.String(),
		ref.Yellow.Score, ref.Blue.Score, string(data),
	)
	if err != nil {
		return fmt.Errorf("insert recording: %w", err)
	}
	return nil
}

// Recordings returns up to limit recordings of a match with a sequence id
// of at least from, in sequence order. A non-positive limit uses
// DefaultRecordingPage.
func (s *Store) Recordings(ctx context.Context, matchID string, from uint64, limit int) ([]Recording, error) {
	if limit <= 0 {
		limit = DefaultRecordingPage
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, at, snapshot FROM recordings WHERE match_id = ? AND seq >= ? ORDER BY seq LIMIT ?`,
		matchID, int64(from), limit)
	if err != nil {
		return nil, fmt.Errorf("query recordings: %w", err)
	}
	defer rows.Close()

	var out []Recording
	for rows.Next() {
		var (
			r        Recording
			seq      int64
			at, data string
		)
		if err := rows.Scan(&seq, &at, &data); err != nil {
			return nil, fmt.Errorf("scan recording: %w", err)
		}
		r.MatchID, r.Seq = matchID, uint64(seq)
		if r.At, err = parseTime(at); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(data), &r.Snapshot); err != nil {
			return nil, fmt.Errorf("decode recording %d: %w", seq, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
