package dto

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"

// StartSyncRequest is the request body for starting a sync.
type StartSyncRequest struct {
	DryRun  bool   `json:"dry_run"` // Preview mode, nothing is sent to the ledger
	Since   string `json:"since"`   // Optional YYYY-MM-DD override of the import start date
	Verbose bool   `json:"verbose"` // Debug logging for this job
}

// Validate implements validation.Validatable.
func (r StartSyncRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Since, validation.Date(DateLayout).Error("must be a date in YYYY-MM-DD format")),
	)
}

// SinceDate returns the parsed override, or the zero time when none was sent.
// Call Validate first.
func (r StartSyncRequest) SinceDate() time.Time {
	if r.Since == "" {
		return time.Time{}
	}
	t, err := time.Parse(DateLayout, r.Since)
	if err != nil {
		return time.Time{}
	}
	return t
}

// StartSyncResponse is returned when a sync is started.
type StartSyncResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// SyncJobResponse represents a sync job's status.
type SyncJobResponse struct {
	JobID       string               `json:"job_id"`
	Status      string               `json:"status"`
	DryRun      bool                 `json:"dry_run"`
	Since       string               `json:"since,omitempty"`
	StartedAt   string               `json:"started_at"`
	CompletedAt *string              `json:"completed_at,omitempty"`
	Progress    SyncProgressResponse `json:"progress"`
	Result      *SyncResultResponse  `json:"result,omitempty"`
	Error       *string              `json:"error,omitempty"`
}

// SyncProgressResponse represents real-time progress.
type SyncProgressResponse struct {
	CurrentPhase  string `json:"current_phase"`
	CheckingCount int    `json:"checking_count"`
	CreditCount   int    `json:"credit_count"`
	LastUpdate    string `json:"last_update"`
}

// SyncResultResponse represents the final result.
type SyncResultResponse struct {
	RunID              int64    `json:"run_id,omitempty"`
	SinceDate          string   `json:"since_date"`
	TodayDate          string   `json:"today_date"`
	CheckingCount      int      `json:"checking_count"`
	CreditCount        int      `json:"credit_count"`
	SubmittedCount     int      `json:"submitted_count"`
	ImportedCount      int      `json:"imported_count"`
	DuplicateImportIDs []string `json:"duplicate_import_ids,omitempty"`
	Summary            []string `json:"summary"`
	Warnings           []string `json:"warnings"`
}

// MessageResponse is a generic message response.
type MessageResponse struct {
	Message string `json:"message"`
}
