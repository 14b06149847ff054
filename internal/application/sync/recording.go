package sync

import (
	"time"

	"github.com/eshaffer321/nubank-ynab-sync/internal/infrastructure/storage"
)

// Run history helpers. Storage failures are logged and never fail a sync.

func (o *Orchestrator) startRun(result *Result) {
	o.runID = 0
	if o.storage == nil {
		return
	}

	runID, err := o.storage.StartSyncRun(storage.RunParams{
		Source:    o.provider.Name(),
		SinceDate: result.SinceDate,
		TodayDate: result.TodayDate,
		DryRun:    result.DryRun,
	})
	if err != nil {
		o.logger.Warn("Failed to start sync run tracking", "error", err)
		return
	}
	o.runID = runID
}

func (o *Orchestrator) completeRun(result *Result) {
	if o.storage == nil || o.runID == 0 {
		return
	}

	err := o.storage.CompleteSyncRun(o.runID, storage.RunCounts{
		Checking:    result.CheckingCount,
		Credit:      result.CreditCount,
		Imported:    result.ImportedCount,
		Duplicates:  len(result.DuplicateImportIDs),
		Adjustments: len(result.Adjustments),
	})
	if err != nil {
		o.logger.Warn("Failed to complete sync run tracking", "run_id", o.runID, "error", err)
	}
}

func (o *Orchestrator) failRun(cause error) {
	if o.storage == nil || o.runID == 0 {
		return
	}
	if err := o.storage.FailSyncRun(o.runID, cause); err != nil {
		o.logger.Warn("Failed to record failed sync run", "run_id", o.runID, "error", err)
	}
}

func (o *Orchestrator) recordWarning(importID, message string) {
	if o.storage == nil || o.runID == 0 {
		return
	}
	err := o.storage.AddRunWarning(o.runID, storage.RunWarning{ImportID: importID, Message: message})
	if err != nil {
		o.logger.Warn("Failed to record run warning", "run_id", o.runID, "error", err)
	}
}

// logAPICall keeps an audit entry of an outbound call: counts only, no payloads
func (o *Orchestrator) logAPICall(method string, items int, callErr error, elapsed time.Duration) {
	if o.storage == nil || o.runID == 0 {
		return
	}

	errStr := ""
	if callErr != nil {
		errStr = callErr.Error()
	}

	err := o.storage.LogAPICall(&storage.APICall{
		RunID:      o.runID,
		Method:     method,
		ItemCount:  items,
		Error:      errStr,
		DurationMs: elapsed.Milliseconds(),
	})
	if err != nil {
		o.logger.Warn("Failed to log API call", "method", method, "error", err)
	}
}
