package api

import (
	"net/http"
)

// SnapshotHandler serves the last committed frame.
type SnapshotHandler struct {
	deps Dependencies
}

// NewSnapshotHandler creates a new snapshot handler.
func NewSnapshotHandler(deps Dependencies) *SnapshotHandler {
	return &SnapshotHandler{deps: deps}
}

// HandleSnapshot handles GET /snapshot requests.
func (h *SnapshotHandler) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	f, ok := h.deps.Current()
	if !ok {
		fail(w, ErrNotReady)
		return
	}
	writeJSON(w, http.StatusOK, f)
}
