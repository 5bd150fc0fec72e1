// Package journal persists matches, referee transitions and replay
// recordings in SQLite.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/okian/pitchside/internal/domain/game"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS matches (
	match_id         TEXT PRIMARY KEY,
	profile          TEXT NOT NULL,
	my_team_yellow   INTEGER NOT NULL,
	my_team_right    INTEGER NOT NULL,
	started_at       TEXT NOT NULL,
	ended_at         TEXT
);

CREATE TABLE IF NOT EXISTS referee_events (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	match_id         TEXT NOT NULL,
	seq              INTEGER NOT NULL,
	at               TEXT NOT NULL,
	cause            TEXT NOT NULL,
	rule             TEXT,
	from_command     TEXT NOT NULL,
	command          TEXT NOT NULL,
	next_command     TEXT,
	designated_x     REAL,
	designated_y     REAL,
	stage            TEXT NOT NULL,
	score_yellow     INTEGER NOT NULL,
	score_blue       INTEGER NOT NULL,
	message          TEXT,
	FOREIGN KEY (match_id) REFERENCES matches(match_id)
);

CREATE INDEX IF NOT EXISTS referee_events_match ON referee_events(match_id, id);

CREATE TABLE IF NOT EXISTS recordings (
	match_id         TEXT NOT NULL,
	seq              INTEGER NOT NULL,
	at               TEXT NOT NULL,
	command          TEXT NOT NULL,
	stage            TEXT NOT NULL,
	score_yellow     INTEGER NOT NULL,
	score_blue       INTEGER NOT NULL,
	snapshot         TEXT NOT NULL,
	PRIMARY KEY (match_id, seq),
	FOREIGN KEY (match_id) REFERENCES matches(match_id)
);
`

// Match is one row of the matches table. EndedAt is zero while the match
// is running.
type Match struct {
	ID          string           `json:"id"`
	Profile     string           `json:"profile"`
	Perspective game.Perspective `json:"perspective"`
	StartedAt   time.Time        `json:"started_at"`
	EndedAt     time.Time        `json:"ended_at"`
}

// Event is one referee transition.
type Event struct {
	MatchID string    `json:"match_id"`
	Seq     uint64    `json:"seq"`
	At      time.Time `json:"at"`
	Cause   string    `json:"cause"`
	Rule    string    `json:"rule,omitempty"`

	From    game.Command `json:"from"`
	Command game.Command `json:"command"`
	Next    game.Command `json:"next"`
	HasNext bool         `json:"has_next"`

	Designated    game.Vec2 `json:"designated"`
	HasDesignated bool      `json:"has_designated"`

	Stage       game.Stage `json:"stage"`
	ScoreYellow int        `json:"score_yellow"`
	ScoreBlue   int        `json:"score_blue"`
	Message     string     `json:"message,omitempty"`
}

// Store manages the journal database.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and runs migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrOpenJournal, path, err)
	}
	// One writer; SQLite serialises anyway.
	db.SetMaxOpenConns(1)
	for _, stmt := range []string{"PRAGMA journal_mode=WAL", "PRAGMA foreign_keys=ON", schema} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%w: %s: %w", ErrOpenJournal, path, err)
		}
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// StartMatch records a new match and returns it with a fresh id.
func (s *Store) StartMatch(ctx context.Context, profile string, p game.Perspective, at time.Time) (Match, error) {
	m := Match{ID: uuid.New().String(), Profile: profile, Perspective: p, StartedAt: at.UTC()}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO matches (match_id, profile, my_team_yellow, my_team_right, started_at)
		 VALUES (?, ?, ?, ?, ?)`,
		m.ID, profile, p.MyTeamIsYellow, p.MyTeamIsRight, formatTime(m.StartedAt),
	)
	if err != nil {
		return Match{}, fmt.Errorf("insert match: %w", err)
	}
	return m, nil
}

// EndMatch stamps the end time of a match.
func (s *Store) EndMatch(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `UPDATE matches SET ended_at = ? WHERE match_id = ?`, formatTime(at.UTC()), id)
	if err != nil {
		return fmt.Errorf("end match: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrUnknownMatch, id)
	}
	return nil
}

// Append stores one transition.
func (s *Store) Append(ctx context.Context, e Event) error {
	var next, dx, dy any
	if e.HasNext {
		next = e.Next.String()
	}
	if e.HasDesignated {
		dx, dy = e.Designated.X, e.Designated.Y
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO referee_events (match_id, seq, at, cause, rule, from_command, command, next_command,
		 designated_x, designated_y, stage, score_yellow, score_blue, message)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.MatchID, int64(e.Seq), formatTime(e.At.UTC()), e.Cause, e.Rule, e.From.String(), e.Command.String(), next,
		dx, dy, e.Stage.String(), e.ScoreYellow, e.ScoreBlue, e.Message,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

const matchColumns = `match_id, profile, my_team_yellow, my_team_right, started_at, ended_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanMatch(row scanner) (Match, error) {
	var (
		m       Match
		started string
		ended   sql.NullString
	)
	if err := row.Scan(&m.ID, &m.Profile, &m.Perspective.MyTeamIsYellow, &m.Perspective.MyTeamIsRight,
		&started, &ended); err != nil {
		return Match{}, err
	}
	var err error
	if m.StartedAt, err = parseTime(started); err != nil {
		return Match{}, err
	}
	if ended.Valid {
		if m.EndedAt, err = parseTime(ended.String); err != nil {
			return Match{}, err
		}
	}
	return m, nil
}

// Match loads one match by id.
func (s *Store) Match(ctx context.Context, id string) (Match, error) {
	m, err := scanMatch(s.db.QueryRowContext(ctx, `SELECT `+matchColumns+` FROM matches WHERE match_id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Match{}, fmt.Errorf("%w: %s", ErrUnknownMatch, id)
	}
	if err != nil {
		return Match{}, fmt.Errorf("query match: %w", err)
	}
	return m, nil
}

// Matches lists every match, most recently started first.
func (s *Store) Matches(ctx context.Context) ([]Match, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+matchColumns+` FROM matches ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query matches: %w", err)
	}
	defer rows.Close()

	var out []Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Events returns a match's transitions in insertion order.
func (s *Store) Events(ctx context.Context, matchID string) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, at, cause, COALESCE(rule, ''), from_command, command, next_command,
		 designated_x, designated_y, stage, score_yellow, score_blue, COALESCE(message, '')
		 FROM referee_events WHERE match_id = ? ORDER BY id`, matchID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var (
			e                    Event
			seq                  int64
			at, from, cmd, stage string
			next                 sql.NullString
			dx, dy               sql.NullFloat64
		)
		if err := rows.Scan(&seq, &at, &e.Cause, &e.Rule, &from, &cmd, &next, &dx, &dy, &stage,
			&e.ScoreYellow, &e.ScoreBlue, &e.Message); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.MatchID, e.Seq = matchID, uint64(seq)
		if e.At, err = parseTime(at); err != nil {
			return nil, err
		}
		if e.From, err = game.ParseCommand(from); err != nil {
			return nil, err
		}
		if e.Command, err = game.ParseCommand(cmd); err != nil {
			return nil, err
		}
		if next.Valid {
			if e.Next, err = game.ParseCommand(next.String); err != nil {
				return nil, err
			}
			e.HasNext = true
		}
		if dx.Valid && dy.Valid {
			e.Designated, e.HasDesignated = game.Vec2{X: dx.Float64, Y: dy.Float64}, true
		}
		if e.Stage, err = game.ParseStage(stage); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func formatTime(t time.Time) string { return t.Format(time.RFC3339Nano) }

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}
