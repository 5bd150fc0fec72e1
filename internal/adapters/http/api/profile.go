package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/okian/pitchside/internal/domain/profile"
	"github.com/okian/pitchside/internal/scheduler"
)

type profileRequest struct {
	Name string `json:"name"`
}

// ProfileHandler reads and swaps the active referee profile.
type ProfileHandler struct {
	deps Dependencies
}

// NewProfileHandler creates a new profile handler.
func NewProfileHandler(deps Dependencies) *ProfileHandler {
	return &ProfileHandler{deps: deps}
}

// HandleProfile handles GET and POST /profile requests.
func (h *ProfileHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.deps.Profile())
	case http.MethodPost:
		h.swap(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *ProfileHandler) swap(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := decode(w, r, &req); err != nil {
		fail(w, fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}
	p, err := profile.Builtin(req.Name)
	if err != nil {
		fail(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), applyTimeout)
	defer cancel()
	if err := h.deps.Submit(ctx, scheduler.ProfileRequest(p)); err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, appliedResponse{Status: "applied", Value: p.Name})
}
