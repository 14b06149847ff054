package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/eshaffer321/nubank-ynab-sync/internal/api/dto"
	"github.com/eshaffer321/nubank-ynab-sync/internal/infrastructure/storage"
)

// RunsHandler handles sync run history requests.
type RunsHandler struct {
	*Base
}

// NewRunsHandler creates a new runs handler.
func NewRunsHandler(repo storage.Repository) *RunsHandler {
	return &RunsHandler{
		Base: NewBase(repo),
	}
}

// List handles GET /api/runs - returns the most recent sync runs.
func (h *RunsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := ParseIntParam(r, "limit", storage.DefaultListLimit)

	runs, err := h.repo.ListSyncRuns(limit)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	response := dto.SyncRunListResponse{
		Runs:  make([]dto.SyncRunResponse, 0, len(runs)),
		Count: len(runs),
	}

	for _, run := range runs {
		response.Runs = append(response.Runs, dto.NewSyncRunResponse(run))
	}

	h.WriteJSON(w, http.StatusOK, response)
}

// Get handles GET /api/runs/{id} - returns a run with its warnings and API calls.
func (h *RunsHandler) Get(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")
	if idStr == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("run ID is required"))
		return
	}

	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invalid run ID"))
		return
	}

	run, err := h.repo.GetSyncRun(id)
	if errors.Is(err, storage.ErrRunNotFound) {
		h.WriteError(w, http.StatusNotFound, dto.NotFoundError("sync run"))
		return
	}
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	calls, err := h.repo.GetAPICallsByRunID(id)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	response := dto.NewSyncRunResponse(*run)
	for _, call := range calls {
		response.APICalls = append(response.APICalls, dto.NewAPICallResponse(call))
	}

	h.WriteJSON(w, http.StatusOK, response)
}
