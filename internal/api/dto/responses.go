package dto

import (
	"time"

	"github.com/eshaffer321/nubank-ynab-sync/internal/infrastructure/storage"
)

// HealthResponse is returned by the health check endpoint.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// NewHealthResponse creates a health response with current timestamp.
func NewHealthResponse() HealthResponse {
	return HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// SyncRunResponse represents a recorded sync run in API responses.
type SyncRunResponse struct {
	ID              int64                `json:"id"`
	Source          string               `json:"source"`
	StartedAt       string               `json:"started_at"`
	CompletedAt     string               `json:"completed_at,omitempty"`
	SinceDate       string               `json:"since_date"`
	TodayDate       string               `json:"today_date"`
	DryRun          bool                 `json:"dry_run"`
	CheckingCount   int                  `json:"checking_count"`
	CreditCount     int                  `json:"credit_count"`
	ImportedCount   int                  `json:"imported_count"`
	DuplicateCount  int                  `json:"duplicate_count"`
	AdjustmentCount int                  `json:"adjustment_count"`
	Status          string               `json:"status"`
	ErrorMessage    string               `json:"error_message,omitempty"`
	Warnings        []RunWarningResponse `json:"warnings,omitempty"`
	APICalls        []APICallResponse    `json:"api_calls,omitempty"`
}

// RunWarningResponse is one warning line recorded for a run.
type RunWarningResponse struct {
	ImportID string `json:"import_id,omitempty"`
	Message  string `json:"message"`
}

// APICallResponse is one outbound call recorded for a run.
type APICallResponse struct {
	Method     string `json:"method"`
	ItemCount  int    `json:"item_count"`
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"duration_ms"`
	Timestamp  string `json:"timestamp"`
}

// SyncRunListResponse is returned when listing sync runs.
type SyncRunListResponse struct {
	Runs  []SyncRunResponse `json:"runs"`
	Count int               `json:"count"`
}

// NewSyncRunResponse converts a stored run to its API form.
func NewSyncRunResponse(run storage.SyncRun) SyncRunResponse {
	resp := SyncRunResponse{
		ID:              run.ID,
		Source:          run.Source,
		StartedAt:       run.StartedAt.UTC().Format(time.RFC3339),
		SinceDate:       run.SinceDate,
		TodayDate:       run.TodayDate,
		DryRun:          run.DryRun,
		CheckingCount:   run.CheckingCount,
		CreditCount:     run.CreditCount,
		ImportedCount:   run.ImportedCount,
		DuplicateCount:  run.DuplicateCount,
		AdjustmentCount: run.AdjustmentCount,
		Status:          run.Status,
		ErrorMessage:    run.ErrorMessage,
	}
	if run.CompletedAt != nil {
		resp.CompletedAt = run.CompletedAt.UTC().Format(time.RFC3339)
	}
	for _, w := range run.Warnings {
		resp.Warnings = append(resp.Warnings, RunWarningResponse{ImportID: w.ImportID, Message: w.Message})
	}
	return resp
}

// NewAPICallResponse converts a logged call to its API form.
func NewAPICallResponse(call storage.APICall) APICallResponse {
	return APICallResponse{
		Method:     call.Method,
		ItemCount:  call.ItemCount,
		Error:      call.Error,
		DurationMs: call.DurationMs,
		Timestamp:  call.Timestamp.UTC().Format(time.RFC3339),
	}
}
