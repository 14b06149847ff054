package storage

import "time"

// Sync run statuses
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// DefaultListLimit caps ListSyncRuns when no limit is given
const DefaultListLimit = 20

// RunParams describes a run when it starts
type RunParams struct {
	Source    string // feed provider name, e.g. "nubank"
	SinceDate string // YYYY-MM-DD
	TodayDate string // YYYY-MM-DD
	DryRun    bool
}

// RunCounts are the totals reported when a run completes
type RunCounts struct {
	Checking    int
	Credit      int
	Imported    int
	Duplicates  int
	Adjustments int
}

// SyncRun represents a sync run record
type SyncRun struct {
	ID              int64        `json:"id"`
	Source          string       `json:"source"`
	StartedAt       time.Time    `json:"started_at"`
	CompletedAt     *time.Time   `json:"completed_at,omitempty"`
	SinceDate       string       `json:"since_date"`
	TodayDate       string       `json:"today_date"`
	DryRun          bool         `json:"dry_run"`
	CheckingCount   int          `json:"checking_count"`
	CreditCount     int          `json:"credit_count"`
	ImportedCount   int          `json:"imported_count"`
	DuplicateCount  int          `json:"duplicate_count"`
	AdjustmentCount int          `json:"adjustment_count"`
	Status          string       `json:"status"`
	ErrorMessage    string       `json:"error_message,omitempty"`
	Warnings        []RunWarning `json:"warnings,omitempty"`
}

// RunWarning is one operator-facing warning produced by a run
type RunWarning struct {
	ImportID  string    `json:"import_id,omitempty"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// APICall represents a logged outbound call. Only counts are kept, never payloads.
type APICall struct {
	RunID      int64     `json:"run_id"`
	Method     string    `json:"method"`
	ItemCount  int       `json:"item_count"`
	Error      string    `json:"error,omitempty"`
	DurationMs int64     `json:"duration_ms"`
	Timestamp  time.Time `json:"timestamp"`
}
