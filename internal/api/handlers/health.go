package handlers

import (
	"net/http"

	"github.com/eshaffer321/nubank-ynab-sync/internal/api/dto"
)

// HealthHandler handles health check requests.
type HealthHandler struct {
	*Base
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{Base: &Base{}}
}

// ServeHTTP handles the health check request.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.WriteJSON(w, http.StatusOK, dto.NewHealthResponse())
}
