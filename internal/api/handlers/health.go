package handlers

import (
	"net/http"

	"github.com/eshaffer321/auditflow/internal/api/dto"
	"github.com/eshaffer321/auditflow/internal/infrastructure/storage"
)

// HealthHandler handles health check requests.
type HealthHandler struct {
	*Base
}

// NewHealthHandler creates a new health handler. With a nil repo only the
// process itself is reported.
func NewHealthHandler(repo storage.Repository) *HealthHandler {
	return &HealthHandler{Base: NewBase(repo, nil)}
}

// ServeHTTP handles the health check request.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	response := dto.NewHealthResponse()
	if h.repo == nil {
		h.WriteJSON(w, http.StatusOK, response)
		return
	}

	if _, err := h.repo.GetStats(); err != nil {
		response.Status = "degraded"
		response.Database = "unavailable"
		h.WriteJSON(w, http.StatusServiceUnavailable, response)
		return
	}

	response.Database = "ok"
	h.WriteJSON(w, http.StatusOK, response)
}
