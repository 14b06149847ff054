package storage

import "errors"

// ErrRunNotFound is returned when a sync run id does not exist.
var ErrRunNotFound = errors.New("sync run not found")

// Repository defines the complete storage interface.
// It only keeps an audit trail of runs; nothing in it is read back by normalization.
type Repository interface {
	SyncRunRepository
	APICallRepository
	Close() error
}

// SyncRunRepository handles sync run tracking
type SyncRunRepository interface {
	// StartSyncRun records the start of a sync run and returns the run ID
	StartSyncRun(params RunParams) (int64, error)

	// CompleteSyncRun records the counts of a finished sync run
	CompleteSyncRun(runID int64, counts RunCounts) error

	// FailSyncRun marks a run as failed with the error that ended it
	FailSyncRun(runID int64, cause error) error

	// AddRunWarning attaches an operator warning to a run
	AddRunWarning(runID int64, warning RunWarning) error

	// ListSyncRuns returns recent sync runs, newest first
	ListSyncRuns(limit int) ([]SyncRun, error)

	// GetSyncRun retrieves a sync run with its warnings
	GetSyncRun(runID int64) (*SyncRun, error)
}

// APICallRepository handles logging of outbound calls made during a run
type APICallRepository interface {
	LogAPICall(call *APICall) error
	GetAPICallsByRunID(runID int64) ([]APICall, error)
}
