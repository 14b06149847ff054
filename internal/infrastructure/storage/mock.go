package storage

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// MockRepository is an in-memory implementation of Repository for testing.
// It stores all data in maps and slices, making tests fast and isolated.
type MockRepository struct {
	mu        sync.Mutex
	syncRuns  map[int64]*SyncRun
	apiCalls  []APICall
	nextRunID int64

	// Hooks for test assertions
	StartSyncRunCalled    bool
	CompleteSyncRunCalled bool
	FailSyncRunCalled     bool
	LogAPICallCalled      bool

	// Error injection for testing error paths
	StartSyncRunErr    error
	CompleteSyncRunErr error
	AddRunWarningErr   error
	LogAPICallErr      error
}

// NewMockRepository creates a new mock repository for testing
func NewMockRepository() *MockRepository {
	return &MockRepository{
		syncRuns:  make(map[int64]*SyncRun),
		apiCalls:  make([]APICall, 0),
		nextRunID: 1,
	}
}

// Compile-time check that MockRepository implements Repository
var _ Repository = (*MockRepository)(nil)

// Close does nothing for mock
func (m *MockRepository) Close() error {
	return nil
}

// StartSyncRun creates a run in memory
func (m *MockRepository) StartSyncRun(params RunParams) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.StartSyncRunCalled = true
	if m.StartSyncRunErr != nil {
		return 0, m.StartSyncRunErr
	}

	id := m.nextRunID
	m.nextRunID++
	m.syncRuns[id] = &SyncRun{
		ID:        id,
		Source:    params.Source,
		StartedAt: time.Now(),
		SinceDate: params.SinceDate,
		TodayDate: params.TodayDate,
		DryRun:    params.DryRun,
		Status:    StatusRunning,
	}
	return id, nil
}

// CompleteSyncRun stores the counts of a run
func (m *MockRepository) CompleteSyncRun(runID int64, counts RunCounts) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CompleteSyncRunCalled = true
	if m.CompleteSyncRunErr != nil {
		return m.CompleteSyncRunErr
	}

	run, ok := m.syncRuns[runID]
	if !ok {
		return ErrRunNotFound
	}
	now := time.Now()
	run.CompletedAt = &now
	run.CheckingCount = counts.Checking
	run.CreditCount = counts.Credit
	run.ImportedCount = counts.Imported
	run.DuplicateCount = counts.Duplicates
	run.AdjustmentCount = counts.Adjustments
	run.Status = StatusCompleted
	return nil
}

// FailSyncRun marks a run as failed
func (m *MockRepository) FailSyncRun(runID int64, cause error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.FailSyncRunCalled = true
	run, ok := m.syncRuns[runID]
	if !ok {
		return ErrRunNotFound
	}
	now := time.Now()
	run.CompletedAt = &now
	run.Status = StatusFailed
	if cause != nil {
		run.ErrorMessage = cause.Error()
	}
	return nil
}

// AddRunWarning appends a warning to a run
func (m *MockRepository) AddRunWarning(runID int64, warning RunWarning) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.AddRunWarningErr != nil {
		return m.AddRunWarningErr
	}
	run, ok := m.syncRuns[runID]
	if !ok {
		return ErrRunNotFound
	}
	warning.CreatedAt = time.Now()
	run.Warnings = append(run.Warnings, warning)
	return nil
}

// ListSyncRuns returns runs newest first, without warnings
func (m *MockRepository) ListSyncRuns(limit int) ([]SyncRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if limit <= 0 {
		limit = DefaultListLimit
	}

	runs := make([]SyncRun, 0, len(m.syncRuns))
	for _, run := range m.syncRuns {
		copied := *run
		copied.Warnings = nil
		runs = append(runs, copied)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].ID > runs[j].ID })

	if len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// GetSyncRun returns a copy of a run
func (m *MockRepository) GetSyncRun(runID int64) (*SyncRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	run, ok := m.syncRuns[runID]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrRunNotFound, runID)
	}
	copied := *run
	copied.Warnings = append([]RunWarning(nil), run.Warnings...)
	return &copied, nil
}

// LogAPICall records a call in memory
func (m *MockRepository) LogAPICall(call *APICall) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LogAPICallCalled = true
	if m.LogAPICallErr != nil {
		return m.LogAPICallErr
	}
	m.apiCalls = append(m.apiCalls, *call)
	return nil
}

// GetAPICallsByRunID returns the calls logged for a run
func (m *MockRepository) GetAPICallsByRunID(runID int64) ([]APICall, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var calls []APICall
	for _, call := range m.apiCalls {
		if call.RunID == runID {
			calls = append(calls, call)
		}
	}
	return calls, nil
}
