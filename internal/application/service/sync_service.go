package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	appsync "github.com/eshaffer321/nubank-ynab-sync/internal/application/sync"
	"github.com/eshaffer321/nubank-ynab-sync/internal/infrastructure/config"
	"github.com/eshaffer321/nubank-ynab-sync/internal/infrastructure/logging"
)

// SyncStatus represents the current state of a sync job.
type SyncStatus string

const (
	StatusPending   SyncStatus = "pending"
	StatusRunning   SyncStatus = "running"
	StatusCompleted SyncStatus = "completed"
	StatusFailed    SyncStatus = "failed"
	StatusCancelled SyncStatus = "cancelled"
)

// Job staleness thresholds
const (
	// DefaultJobStaleThreshold is how long a job can go without progress updates
	// before being considered stale.
	DefaultJobStaleThreshold = 30 * time.Minute

	// DefaultJobMaxDuration is the maximum time a job can run before being
	// forcefully marked as failed.
	DefaultJobMaxDuration = 2 * time.Hour

	// DefaultJobRetention is how long finished jobs stay queryable.
	DefaultJobRetention = 24 * time.Hour
)

var (
	// ErrSyncRunning is returned when a sync is started while another one runs.
	ErrSyncRunning = errors.New("a sync is already running")

	// ErrJobNotFound is returned for unknown job ids.
	ErrJobNotFound = errors.New("job not found")
)

// SyncRequest holds parameters for starting a sync.
type SyncRequest struct {
	DryRun  bool
	Since   time.Time // zero means the configured default
	Verbose bool
}

// SyncProgress holds real-time progress information.
type SyncProgress struct {
	CurrentPhase  string
	CheckingCount int
	CreditCount   int
	LastUpdate    time.Time
}

// SyncJob represents a running or completed sync job.
type SyncJob struct {
	ID          string
	Status      SyncStatus
	Request     SyncRequest
	StartedAt   time.Time
	CompletedAt *time.Time
	Progress    SyncProgress
	Result      *appsync.Result
	Error       error
	cancelFunc  context.CancelFunc
}

// Runner executes one sync run.
type Runner interface {
	Run(ctx context.Context, opts appsync.Options) (*appsync.Result, error)
}

// RunnerFactory builds a runner with the job's logger.
type RunnerFactory func(logger *slog.Logger) (Runner, error)

// SyncService manages sync operations. Only one sync runs at a time.
type SyncService struct {
	cfg     *config.Config
	factory RunnerFactory
	logger  *slog.Logger

	// Job management
	jobs        map[string]*SyncJob
	activeJobID string
	jobsMutex   sync.RWMutex

	// Background cleanup
	cleanupStop chan struct{}
	cleanupDone chan struct{}
}

// NewSyncService creates a new sync service.
func NewSyncService(cfg *config.Config, factory RunnerFactory, logger *slog.Logger) *SyncService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncService{
		cfg:     cfg,
		factory: factory,
		logger:  logger,
		jobs:    make(map[string]*SyncJob),
	}
}

// StartSync starts a new sync job asynchronously.
// Note: The passed context is NOT used as the parent for the background job.
// Background sync jobs use context.Background() to avoid being cancelled when
// the HTTP request completes. Use CancelSync() to cancel a running job.
func (s *SyncService) StartSync(_ context.Context, req SyncRequest) (string, error) {
	jobCtx, cancel := context.WithCancel(context.Background())
	now := time.Now()

	job := &SyncJob{
		ID:         uuid.NewString(),
		Status:     StatusPending,
		Request:    req,
		StartedAt:  now,
		cancelFunc: cancel,
		Progress:   SyncProgress{CurrentPhase: string(StatusPending), LastUpdate: now},
	}

	s.jobsMutex.Lock()
	if s.activeJobID != "" {
		s.jobsMutex.Unlock()
		cancel()
		return "", ErrSyncRunning
	}
	s.activeJobID = job.ID
	s.jobs[job.ID] = job
	s.jobsMutex.Unlock()

	go s.runSyncJob(jobCtx, job.ID, req)

	s.logger.Info("sync job started",
		"job_id", job.ID,
		"dry_run", req.DryRun,
		"since", formatSince(req.Since),
	)

	return job.ID, nil
}

func formatSince(t time.Time) string {
	if t.IsZero() {
		return "default"
	}
	return t.Format("2006-01-02")
}

// GetSyncJob returns a snapshot of a sync job.
func (s *SyncService) GetSyncJob(jobID string) (*SyncJob, error) {
	s.jobsMutex.RLock()
	defer s.jobsMutex.RUnlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}

	snapshot := *job
	return &snapshot, nil
}

// ActiveJobID returns the id of the running job, or "" when idle.
func (s *SyncService) ActiveJobID() string {
	s.jobsMutex.RLock()
	defer s.jobsMutex.RUnlock()
	return s.activeJobID
}

// CancelSync cancels a running sync job.
func (s *SyncService) CancelSync(jobID string) error {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}

	if job.Status != StatusPending && job.Status != StatusRunning {
		return fmt.Errorf("job cannot be cancelled: status=%s", job.Status)
	}

	job.cancelFunc()
	s.finishLocked(job, StatusCancelled, nil, nil)

	s.logger.Info("sync job cancelled", "job_id", jobID)
	return nil
}

// runSyncJob executes the sync job in a background goroutine.
func (s *SyncService) runSyncJob(ctx context.Context, jobID string, req SyncRequest) {
	s.updateProgress(jobID, appsync.ProgressUpdate{Phase: "initializing"})

	loggingCfg := config.Default().Observability.Logging
	if s.cfg != nil {
		loggingCfg = s.cfg.Observability.Logging
	}
	if req.Verbose {
		loggingCfg.Level = "debug"
	}
	syncLogger := logging.NewLoggerWithSystem(loggingCfg, "sync").With("job_id", jobID)

	runner, err := s.factory(syncLogger)
	if err != nil {
		s.finish(jobID, nil, fmt.Errorf("failed to create sync runner: %w", err))
		return
	}

	result, err := runner.Run(ctx, appsync.Options{
		DryRun: req.DryRun,
		Since:  req.Since,
		ProgressCallback: func(update appsync.ProgressUpdate) {
			s.updateProgress(jobID, update)
		},
	})
	if err != nil && ctx.Err() == context.Canceled {
		// Already marked as cancelled in CancelSync
		return
	}
	s.finish(jobID, result, err)
}

// updateProgress records the orchestrator's latest phase.
func (s *SyncService) updateProgress(jobID string, update appsync.ProgressUpdate) {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	job, exists := s.jobs[jobID]
	if !exists || isFinished(job.Status) {
		return
	}
	job.Status = StatusRunning
	job.Progress = SyncProgress{
		CurrentPhase:  update.Phase,
		CheckingCount: update.CheckingCount,
		CreditCount:   update.CreditCount,
		LastUpdate:    time.Now(),
	}
}

// finish marks a job as completed or failed.
func (s *SyncService) finish(jobID string, result *appsync.Result, err error) {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	job, exists := s.jobs[jobID]
	if !exists || isFinished(job.Status) {
		return
	}

	if err != nil {
		s.finishLocked(job, StatusFailed, nil, err)
		s.logger.Error("sync job failed", "job_id", jobID, "error", err)
		return
	}

	s.finishLocked(job, StatusCompleted, result, nil)
	s.logger.Info("sync job completed",
		"job_id", jobID,
		"checking", result.CheckingCount,
		"credit", result.CreditCount,
		"imported", result.ImportedCount,
		"adjustments", len(result.Adjustments),
	)
}

// finishLocked MUST be called while holding jobsMutex.
func (s *SyncService) finishLocked(job *SyncJob, status SyncStatus, result *appsync.Result, err error) {
	now := time.Now()
	job.Status = status
	job.CompletedAt = &now
	job.Result = result
	job.Error = err
	job.Progress.CurrentPhase = string(status)
	job.Progress.LastUpdate = now
	if result != nil {
		job.Progress.CheckingCount = result.CheckingCount
		job.Progress.CreditCount = result.CreditCount
	}

	if s.activeJobID == job.ID {
		s.activeJobID = ""
	}
}

func isFinished(status SyncStatus) bool {
	return status == StatusCompleted || status == StatusFailed || status == StatusCancelled
}

// CleanupOldJobs removes finished jobs older than maxAge.
func (s *SyncService) CleanupOldJobs(maxAge time.Duration) int {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0

	for id, job := range s.jobs {
		if isFinished(job.Status) && job.CompletedAt != nil && job.CompletedAt.Before(cutoff) {
			delete(s.jobs, id)
			removed++
		}
	}

	if removed > 0 {
		s.logger.Debug("cleaned up old sync jobs", "removed", removed)
	}

	return removed
}

// MarkStaleJobsAsFailed fails jobs that ran longer than maxDuration or
// reported no progress for staleThreshold, freeing the slot for a new sync.
func (s *SyncService) MarkStaleJobsAsFailed(staleThreshold, maxDuration time.Duration) int {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	now := time.Now()
	marked := 0

	for id, job := range s.jobs {
		if isFinished(job.Status) {
			continue
		}

		reason := staleReason(job, now, staleThreshold, maxDuration)
		if reason == "" {
			continue
		}

		if job.cancelFunc != nil {
			job.cancelFunc()
		}
		lastUpdate := job.Progress.LastUpdate
		s.finishLocked(job, StatusFailed, nil, fmt.Errorf("job marked as stale: %s", reason))

		s.logger.Warn("marked stale job as failed",
			"job_id", id,
			"reason", reason,
			"started_at", job.StartedAt,
			"last_update", lastUpdate,
		)
		marked++
	}

	return marked
}

func staleReason(job *SyncJob, now time.Time, staleThreshold, maxDuration time.Duration) string {
	if elapsed := now.Sub(job.StartedAt); elapsed > maxDuration {
		return fmt.Sprintf("exceeded max duration of %v (started %v ago)", maxDuration, elapsed.Round(time.Second))
	}
	if idle := now.Sub(job.Progress.LastUpdate); idle > staleThreshold {
		return fmt.Sprintf("no progress update for %v (threshold: %v)", idle.Round(time.Second), staleThreshold)
	}
	return ""
}

// StartBackgroundCleanup periodically fails stale jobs and drops old ones.
// Call StopBackgroundCleanup to stop it.
func (s *SyncService) StartBackgroundCleanup(checkInterval time.Duration) {
	s.cleanupStop = make(chan struct{})
	s.cleanupDone = make(chan struct{})

	go func() {
		defer close(s.cleanupDone)

		ticker := time.NewTicker(checkInterval)
		defer ticker.Stop()

		for {
			select {
			case <-s.cleanupStop:
				return
			case <-ticker.C:
				if n := s.MarkStaleJobsAsFailed(DefaultJobStaleThreshold, DefaultJobMaxDuration); n > 0 {
					s.logger.Info("marked stale jobs as failed", "count", n)
				}
				s.CleanupOldJobs(DefaultJobRetention)
			}
		}
	}()
}

// StopBackgroundCleanup stops the background cleanup goroutine and waits for it.
func (s *SyncService) StopBackgroundCleanup() {
	if s.cleanupStop == nil {
		return
	}

	close(s.cleanupStop)
	<-s.cleanupDone
}
