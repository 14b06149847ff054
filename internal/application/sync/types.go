package sync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/eshaffer321/nubank-ynab-sync/internal/adapters/ledger/ynab"
	"github.com/eshaffer321/nubank-ynab-sync/internal/adapters/providers"
	"github.com/eshaffer321/nubank-ynab-sync/internal/domain/checking"
	"github.com/eshaffer321/nubank-ynab-sync/internal/domain/credit"
	"github.com/eshaffer321/nubank-ynab-sync/internal/domain/transaction"
	"github.com/eshaffer321/nubank-ynab-sync/internal/infrastructure/storage"
)

// Progress phases reported through Options.ProgressCallback
const (
	PhaseAuthenticating   = "authenticating"
	PhaseFetchingChecking = "fetching_checking"
	PhaseFetchingCredit   = "fetching_credit"
	PhaseImporting        = "importing"
	PhaseCompleted        = "completed"
)

// Ledger is the destination the normalized batch is imported into
type Ledger interface {
	ImportTransactions(ctx context.Context, budgetID string, txs []transaction.Transaction) (*ynab.ImportResult, error)
}

// Config holds the settings that stay fixed across runs
type Config struct {
	BudgetID        string
	CreditAccountID string
	Checking        checking.Config

	// Location decides which calendar day "today" is.
	Location *time.Location

	// StartDate resolves the default import start for a run started at now.
	StartDate func(now time.Time) (time.Time, error)
}

// Options holds per-run settings
type Options struct {
	DryRun bool

	// Since overrides Config.StartDate when non-zero.
	Since time.Time

	ProgressCallback func(ProgressUpdate)
}

// ProgressUpdate is sent each time a run enters a new phase
type ProgressUpdate struct {
	Phase         string
	CheckingCount int
	CreditCount   int
}

// Adjustment pairs a future-dated credit transaction with what the ledger received
type Adjustment struct {
	Original transaction.Transaction
	Capped   transaction.Transaction

	// Imported is nil on dry runs and when the ledger reported a duplicate.
	Imported *ynab.ImportedTransaction
}

// Warning renders the operator line for this adjustment
func (a Adjustment) Warning() string {
	if a.Imported == nil {
		return fmt.Sprintf("Manual date adjustment needed for %s: not imported (duplicate)", a.Original)
	}
	return fmt.Sprintf("Manual date adjustment needed for %s: imported as %s (date=%s amount=%s payee=%q)",
		a.Original, a.Imported.ID, a.Imported.Date, a.Imported.Amount, a.Imported.PayeeName)
}

// Result holds sync results
type Result struct {
	RunID     int64
	DryRun    bool
	SinceDate string
	TodayDate string

	CheckingCount int
	CreditCount   int

	// Transactions is the submitted batch: checking first, then capped credit.
	Transactions []transaction.Transaction

	ImportedCount      int
	DuplicateImportIDs []string
	Adjustments        []Adjustment
}

// CountLine is the operator summary of what was collected
func (r *Result) CountLine() string {
	return fmt.Sprintf("%d checking and %d credit transactions since %s", r.CheckingCount, r.CreditCount, r.SinceDate)
}

// ImportedLine is the operator summary of what the ledger accepted
func (r *Result) ImportedLine() string {
	if r.DryRun {
		return fmt.Sprintf("Dry run: %d transactions would be imported", len(r.Transactions))
	}
	return fmt.Sprintf("%d transactions imported", r.ImportedCount)
}

// Warnings returns one line per manual adjustment
func (r *Result) Warnings() []string {
	lines := make([]string, 0, len(r.Adjustments))
	for _, a := range r.Adjustments {
		if r.DryRun {
			lines = append(lines, fmt.Sprintf("Manual date adjustment needed for %s: would be imported dated %s", a.Original, a.Capped.Date))
			continue
		}
		lines = append(lines, a.Warning())
	}
	return lines
}

// Orchestrator runs the sync process
type Orchestrator struct {
	provider providers.FeedProvider
	ledger   Ledger
	config   Config
	checking *checking.Normalizer
	credit   *credit.Normalizer
	storage  storage.Repository
	logger   *slog.Logger
	now      func() time.Time
	runID    int64
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithClock replaces the wall clock used to decide today and the default start date
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// NewOrchestrator creates a new sync orchestrator. store may be nil to skip run history.
func NewOrchestrator(
	provider providers.FeedProvider,
	ledger Ledger,
	cfg Config,
	store storage.Repository,
	logger *slog.Logger,
	opts ...Option,
) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}

	o := &Orchestrator{
		provider: provider,
		ledger:   ledger,
		config:   cfg,
		checking: checking.NewNormalizer(provider, cfg.Checking, logger),
		credit:   credit.NewNormalizer(provider, cfg.CreditAccountID, logger),
		storage:  store,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
