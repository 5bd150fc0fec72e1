package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/okian/pitchside/internal/adapters/journal"
)

// maxRecordingPage caps the limit a client may ask for.
const maxRecordingPage = 2000

// JournalReader reads recorded matches back out of the journal.
type JournalReader interface {
	Matches(ctx context.Context) ([]journal.Match, error)
	Match(ctx context.Context, id string) (journal.Match, error)
	Events(ctx context.Context, matchID string) ([]journal.Event, error)
	Recordings(ctx context.Context, matchID string, from uint64, limit int) ([]journal.Recording, error)
}

// MatchHandler serves matches, their referee events and replay pages.
type MatchHandler struct {
	reader JournalReader
}

// NewMatchHandler creates a new match handler.
func NewMatchHandler(reader JournalReader) *MatchHandler {
	return &MatchHandler{reader: reader}
}

type recordingPage struct {
	Recordings []journal.Recording `json:"recordings"`
	// Next is the from value of the following page; zero on the last one.
	Next uint64 `json:"next,omitempty"`
}

// HandleMatches handles GET /matches.
func (h *MatchHandler) HandleMatches(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	matches, err := h.reader.Matches(r.Context())
	if err != nil {
		fail(w, err)
		return
	}
	if matches == nil {
		matches = []journal.Match{}
	}
	writeJSON(w, http.StatusOK, matches)
}

// HandleMatch handles GET /matches/{id}.
func (h *MatchHandler) HandleMatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	m, err := h.reader.Match(r.Context(), r.PathValue("id"))
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// HandleEvents handles GET /matches/{id}/events.
func (h *MatchHandler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	events, err := h.reader.Events(r.Context(), r.PathValue("id"))
	if err != nil {
		fail(w, err)
		return
	}
	if events == nil {
		events = []journal.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

// HandleRecordings handles GET /matches/{id}/recordings?from=&limit=.
func (h *MatchHandler) HandleRecordings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	q := r.URL.Query()
	var (
		from  uint64
		limit = journal.DefaultRecordingPage
		err   error
	)
	if v := q.Get("from"); v != "" {
		if from, err = strconv.ParseUint(v, 10, 64); err != nil {
			fail(w, fmt.Errorf("%w: from: %w", ErrBadRequest, err))
			return
		}
	}
	if v := q.Get("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil || limit < 1 || limit > maxRecordingPage {
			fail(w, fmt.Errorf("%w: limit must be between 1 and %d", ErrBadRequest, maxRecordingPage))
			return
		}
	}

	recs, err := h.reader.Recordings(r.Context(), r.PathValue("id"), from, limit)
	if err != nil {
		fail(w, err)
		return
	}
	page := recordingPage{Recordings: recs}
	if page.Recordings == nil {
		page.Recordings = []journal.Recording{}
	}
	if len(recs) == limit {
		page.Next = recs[len(recs)-1].Seq + 1
	}
	writeJSON(w, http.StatusOK, page)
}
