package storage

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorage_SyncRunLifecycle(t *testing.T) {
	// Arrange
	store := newTestStorage(t)

	// Act
	runID, err := store.StartSyncRun(RunParams{
		Source:    "nubank",
		SinceDate: "2024-03-01",
		TodayDate: "2024-03-08",
		DryRun:    true,
	})
	require.NoError(t, err)

	running, err := store.GetSyncRun(runID)
	require.NoError(t, err)

	err = store.CompleteSyncRun(runID, RunCounts{
		Checking:    4,
		Credit:      6,
		Imported:    8,
		Duplicates:  2,
		Adjustments: 1,
	})
	require.NoError(t, err)

	completed, err := store.GetSyncRun(runID)
	require.NoError(t, err)

	// Assert
	assert.Equal(t, StatusRunning, running.Status)
	assert.Nil(t, running.CompletedAt)
	assert.False(t, running.StartedAt.IsZero())

	assert.Equal(t, StatusCompleted, completed.Status)
	require.NotNil(t, completed.CompletedAt)
	assert.True(t, completed.DryRun)
	assert.Equal(t, "2024-03-01", completed.SinceDate)
	assert.Equal(t, "2024-03-08", completed.TodayDate)
	assert.Equal(t, 4, completed.CheckingCount)
	assert.Equal(t, 6, completed.CreditCount)
	assert.Equal(t, 8, completed.ImportedCount)
	assert.Equal(t, 2, completed.DuplicateCount)
	assert.Equal(t, 1, completed.AdjustmentCount)
}

func TestStorage_FailSyncRun(t *testing.T) {
	store := newTestStorage(t)
	runID, err := store.StartSyncRun(RunParams{Source: "nubank", SinceDate: "2024-03-01", TodayDate: "2024-03-08"})
	require.NoError(t, err)

	require.NoError(t, store.FailSyncRun(runID, errors.New("ledger rejected batch")))

	run, err := store.GetSyncRun(runID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, run.Status)
	assert.Equal(t, "ledger rejected batch", run.ErrorMessage)
	assert.NotNil(t, run.CompletedAt)
}

func TestStorage_UnknownRun(t *testing.T) {
	store := newTestStorage(t)

	_, err := store.GetSyncRun(42)
	assert.ErrorIs(t, err, ErrRunNotFound)

	err = store.CompleteSyncRun(42, RunCounts{})
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestStorage_RunWarnings(t *testing.T) {
	store := newTestStorage(t)
	runID, err := store.StartSyncRun(RunParams{Source: "nubank", SinceDate: "2024-03-01", TodayDate: "2024-03-08"})
	require.NoError(t, err)

	require.NoError(t, store.AddRunWarning(runID, RunWarning{ImportID: "evt-1", Message: "first"}))
	require.NoError(t, store.AddRunWarning(runID, RunWarning{Message: "second"}))

	run, err := store.GetSyncRun(runID)
	require.NoError(t, err)
	require.Len(t, run.Warnings, 2)
	assert.Equal(t, "evt-1", run.Warnings[0].ImportID)
	assert.Equal(t, "first", run.Warnings[0].Message)
	assert.Equal(t, "second", run.Warnings[1].Message)
}

func TestStorage_ListSyncRuns(t *testing.T) {
	store := newTestStorage(t)

	var ids []int64
	for i := 0; i < 3; i++ {
		id, err := store.StartSyncRun(RunParams{Source: "nubank", SinceDate: "2024-03-01", TodayDate: "2024-03-08"})
		require.NoError(t, err)
		ids = append(ids, id)
	}

	t.Run("newest first", func(t *testing.T) {
		runs, err := store.ListSyncRuns(10)
		require.NoError(t, err)
		require.Len(t, runs, 3)
		assert.Equal(t, ids[2], runs[0].ID)
		assert.Equal(t, ids[0], runs[2].ID)
	})

	t.Run("respects limit", func(t *testing.T) {
		runs, err := store.ListSyncRuns(2)
		require.NoError(t, err)
		assert.Len(t, runs, 2)
	})

	t.Run("empty history is an empty slice", func(t *testing.T) {
		empty := newTestStorage(t)
		runs, err := empty.ListSyncRuns(0)
		require.NoError(t, err)
		assert.NotNil(t, runs)
		assert.Empty(t, runs)
	})
}

func TestStorage_APICalls(t *testing.T) {
	store := newTestStorage(t)
	runID, err := store.StartSyncRun(RunParams{Source: "nubank", SinceDate: "2024-03-01", TodayDate: "2024-03-08"})
	require.NoError(t, err)

	require.NoError(t, store.LogAPICall(&APICall{RunID: runID, Method: "ynab.ImportTransactions", ItemCount: 5, DurationMs: 120}))
	require.NoError(t, store.LogAPICall(&APICall{RunID: runID, Method: "ynab.ImportTransactions", Error: "status 500"}))

	calls, err := store.GetAPICallsByRunID(runID)
	require.NoError(t, err)
	require.Len(t, calls, 2)
	assert.Equal(t, 5, calls[0].ItemCount)
	assert.Equal(t, int64(120), calls[0].DurationMs)
	assert.Equal(t, "status 500", calls[1].Error)
	assert.False(t, calls[0].Timestamp.IsZero())
}

func TestMockRepository_MatchesStorageBehavior(t *testing.T) {
	mock := NewMockRepository()

	runID, err := mock.StartSyncRun(RunParams{Source: "nubank"})
	require.NoError(t, err)
	require.NoError(t, mock.AddRunWarning(runID, RunWarning{Message: "check adjustment"}))
	require.NoError(t, mock.CompleteSyncRun(runID, RunCounts{Imported: 3}))

	run, err := mock.GetSyncRun(runID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, run.Status)
	assert.Equal(t, 3, run.ImportedCount)
	assert.Len(t, run.Warnings, 1)

	_, err = mock.GetSyncRun(runID + 1)
	assert.ErrorIs(t, err, ErrRunNotFound)
}
