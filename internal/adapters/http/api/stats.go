package api

import (
	"errors"
	"net/http"
)

// StatsProvider defines the interface for getting service statistics.
type StatsProvider interface {
	GetStats() map[string]any
}

// StatsHandler handles stats requests.
type StatsHandler struct {
	statsProvider StatsProvider
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(statsProvider StatsProvider) *StatsHandler {
	return &StatsHandler{statsProvider: statsProvider}
}

var errUnknownSection = errors.New("unknown stats section")

// HandleStats handles GET /stats. With ?section=<name> only that entry of
// the provider's map is returned, such as "scheduler" or "journal".
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	stats := h.statsProvider.GetStats()
	section := r.URL.Query().Get("section")
	if section == "" {
		writeJSON(w, http.StatusOK, stats)
		return
	}
	v, ok := stats[section]
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", errUnknownSection)
		return
	}
	writeJSON(w, http.StatusOK, v)
}
