package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/okian/pitchside/internal/domain/game"
	"github.com/okian/pitchside/internal/domain/referee"
	"github.com/okian/pitchside/internal/scheduler"
)

type commandRequest struct {
	Command string `json:"command"`
}

type stageRequest struct {
	Stage string `json:"stage"`
}

// RefereeHandler handles operator commands.
type RefereeHandler struct {
	deps Dependencies
}

// NewRefereeHandler creates a new referee handler.
func NewRefereeHandler(deps Dependencies) *RefereeHandler {
	return &RefereeHandler{deps: deps}
}

// HandleCommand handles POST /referee/command requests.
func (h *RefereeHandler) HandleCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req commandRequest
	if err := decode(w, r, &req); err != nil {
		fail(w, fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}
	cmd, err := game.ParseCommand(req.Command)
	if err != nil {
		fail(w, fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}
	h.submit(w, r, scheduler.CommandRequest(cmd, referee.CauseOperator), cmd.String())
}

// HandleStage handles POST /referee/stage requests.
func (h *RefereeHandler) HandleStage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req stageRequest
	if err := decode(w, r, &req); err != nil {
		fail(w, fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}
	stage, err := game.ParseStage(req.Stage)
	if err != nil {
		fail(w, fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}
	h.submit(w, r, scheduler.StageRequest(stage), stage.String())
}

func (h *RefereeHandler) submit(w http.ResponseWriter, r *http.Request, req scheduler.Request, value string) {
	ctx, cancel := context.WithTimeout(r.Context(), applyTimeout)
	defer cancel()
	if err := h.deps.Submit(ctx, req); err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, appliedResponse{Status: "applied", Value: value})
}
