package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/eshaffer321/auditflow/internal/api/dto"
	"github.com/eshaffer321/auditflow/internal/infrastructure/storage"
)

// StatsHandler handles stats-related HTTP requests.
type StatsHandler struct {
	*Base
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(repo storage.Repository, logger *slog.Logger) *StatsHandler {
	return &StatsHandler{
		Base: NewBase(repo, logger),
	}
}

// Get handles GET /api/stats - returns aggregate statistics.
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	stats, err := h.repo.GetStats()
	if err != nil {
		h.WriteInternal(w, "failed to load stats", err)
		return
	}

	h.WriteJSON(w, http.StatusOK, dto.StatsResponse{
		Stats:       *stats,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
	})
}
