package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/eshaffer321/nubank-ynab-sync/internal/api/dto"
	"github.com/eshaffer321/nubank-ynab-sync/internal/application/service"
)

// SyncHandler handles sync-related HTTP requests.
type SyncHandler struct {
	*Base
	syncService *service.SyncService
}

// NewSyncHandler creates a new sync handler.
func NewSyncHandler(syncService *service.SyncService) *SyncHandler {
	return &SyncHandler{
		Base:        &Base{},
		syncService: syncService,
	}
}

// StartSync handles POST /api/sync - starts a new sync job.
// An empty body starts a run with the configured defaults.
func (h *SyncHandler) StartSync(w http.ResponseWriter, r *http.Request) {
	var req dto.StartSyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invalid request body"))
		return
	}

	if err := req.Validate(); err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.ValidationError(err.Error()))
		return
	}

	jobID, err := h.syncService.StartSync(r.Context(), service.SyncRequest{
		DryRun:  req.DryRun,
		Since:   req.SinceDate(),
		Verbose: req.Verbose,
	})
	if errors.Is(err, service.ErrSyncRunning) {
		h.WriteError(w, http.StatusConflict, dto.NewAPIError(dto.ErrCodeSyncRunning, err.Error()))
		return
	}
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	h.WriteJSON(w, http.StatusAccepted, dto.StartSyncResponse{
		JobID:  jobID,
		Status: string(service.StatusPending),
	})
}

// GetSyncStatus handles GET /api/sync/{jobId} - gets sync job status.
func (h *SyncHandler) GetSyncStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")
	if jobID == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("job ID is required"))
		return
	}

	job, err := h.syncService.GetSyncJob(jobID)
	if err != nil {
		h.WriteError(w, http.StatusNotFound, dto.NotFoundError("sync job"))
		return
	}

	h.WriteJSON(w, http.StatusOK, toSyncJobResponse(job))
}

// CancelSync handles DELETE /api/sync/{jobId} - cancels a sync job.
func (h *SyncHandler) CancelSync(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")
	if jobID == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("job ID is required"))
		return
	}

	err := h.syncService.CancelSync(jobID)
	if errors.Is(err, service.ErrJobNotFound) {
		h.WriteError(w, http.StatusNotFound, dto.NotFoundError("sync job"))
		return
	}
	if err != nil {
		h.WriteError(w, http.StatusConflict, dto.NewAPIError(dto.ErrCodeCancelFailed, err.Error()))
		return
	}

	h.WriteJSON(w, http.StatusOK, dto.MessageResponse{
		Message: "Sync job cancelled successfully",
	})
}

// toSyncJobResponse converts a service model to an API response.
func toSyncJobResponse(job *service.SyncJob) dto.SyncJobResponse {
	response := dto.SyncJobResponse{
		JobID:     job.ID,
		Status:    string(job.Status),
		DryRun:    job.Request.DryRun,
		StartedAt: job.StartedAt.Format(time.RFC3339),
		Progress: dto.SyncProgressResponse{
			CurrentPhase:  job.Progress.CurrentPhase,
			CheckingCount: job.Progress.CheckingCount,
			CreditCount:   job.Progress.CreditCount,
			LastUpdate:    job.Progress.LastUpdate.Format(time.RFC3339),
		},
	}

	if !job.Request.Since.IsZero() {
		response.Since = job.Request.Since.Format(dto.DateLayout)
	}

	if job.CompletedAt != nil {
		completedAt := job.CompletedAt.Format(time.RFC3339)
		response.CompletedAt = &completedAt
	}

	if res := job.Result; res != nil {
		response.Result = &dto.SyncResultResponse{
			RunID:              res.RunID,
			SinceDate:          res.SinceDate,
			TodayDate:          res.TodayDate,
			CheckingCount:      res.CheckingCount,
			CreditCount:        res.CreditCount,
			SubmittedCount:     len(res.Transactions),
			ImportedCount:      res.ImportedCount,
			DuplicateImportIDs: res.DuplicateImportIDs,
			Summary:            []string{res.CountLine(), res.ImportedLine()},
			Warnings:           res.Warnings(),
		}
	}

	if job.Error != nil {
		errMsg := job.Error.Error()
		response.Error = &errMsg
	}

	return response
}
