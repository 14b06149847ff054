package sync

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/eshaffer321/nubank-ynab-sync/internal/domain/datecap"
	"github.com/eshaffer321/nubank-ynab-sync/internal/domain/transaction"
	"github.com/eshaffer321/nubank-ynab-sync/internal/domain/validator"
)

// Run executes one sync: authenticate, collect both feeds, cap future credit
// dates, import the batch in a single ledger call and pair adjustments.
// Any failure ends the run.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (*Result, error) {
	now := o.now()
	today := transaction.FormatDate(transaction.Today(now, o.config.Location))

	since, err := o.startDate(now, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve import start date: %w", err)
	}

	result := &Result{
		DryRun:    opts.DryRun,
		SinceDate: transaction.FormatDate(since),
		TodayDate: today,
	}

	o.logger.Debug("Starting sync",
		"provider", o.provider.Name(),
		"since", result.SinceDate,
		"today", today,
		"dry_run", opts.DryRun,
	)

	o.startRun(result)
	result.RunID = o.runID

	if err := o.run(ctx, opts, since, result); err != nil {
		o.failRun(err)
		return nil, err
	}

	o.completeRun(result)
	return result, nil
}

func (o *Orchestrator) startDate(now time.Time, opts Options) (time.Time, error) {
	if !opts.Since.IsZero() {
		return opts.Since, nil
	}
	if o.config.StartDate == nil {
		return time.Time{}, fmt.Errorf("no start date configured")
	}
	return o.config.StartDate(now)
}

func (o *Orchestrator) run(ctx context.Context, opts Options, since time.Time, result *Result) error {
	// 1. Authenticate once
	o.progress(opts, ProgressUpdate{Phase: PhaseAuthenticating})
	if err := o.provider.Authenticate(ctx); err != nil {
		return fmt.Errorf("failed to authenticate with %s: %w", o.provider.Name(), err)
	}

	keep := transaction.OnOrAfter(since)

	// 2. Collect checking, then credit
	o.progress(opts, ProgressUpdate{Phase: PhaseFetchingChecking})
	checkingTxs, err := collect(o.checking.Transactions(ctx, keep))
	if err != nil {
		return fmt.Errorf("failed to collect checking transactions: %w", err)
	}

	o.progress(opts, ProgressUpdate{Phase: PhaseFetchingCredit, CheckingCount: len(checkingTxs)})
	creditTxs, err := collect(o.credit.Transactions(ctx, keep))
	if err != nil {
		return fmt.Errorf("failed to collect credit transactions: %w", err)
	}

	result.CheckingCount = len(checkingTxs)
	result.CreditCount = len(creditTxs)
	o.logger.Info(result.CountLine(),
		"checking", result.CheckingCount,
		"credit", result.CreditCount,
		"since", result.SinceDate,
	)

	// 3. Remember what needs a manual fix before capping
	pending := datecap.NeedsAdjustment(creditTxs, result.TodayDate)
	capped := datecap.Cap(creditTxs, result.TodayDate)

	batch := make([]transaction.Transaction, 0, len(checkingTxs)+len(capped))
	batch = append(batch, checkingTxs...)
	batch = append(batch, capped...)
	result.Transactions = batch

	result.Adjustments = pairAdjustments(pending, capped)

	check := validator.ValidateBatch(batch)
	if !check.Valid {
		return fmt.Errorf("refusing to import invalid batch: %s", check.Reason())
	}
	if len(check.DuplicateImportIDs) > 0 {
		o.logger.Warn("Batch carries repeated import ids", "import_ids", check.DuplicateImportIDs)
	}

	// 4. Import
	o.progress(opts, ProgressUpdate{Phase: PhaseImporting, CheckingCount: result.CheckingCount, CreditCount: result.CreditCount})
	if opts.DryRun {
		o.logger.Info("Dry run, skipping ledger import", "transactions", len(batch))
		o.reportAdjustments(result)
		o.progress(opts, ProgressUpdate{Phase: PhaseCompleted, CheckingCount: result.CheckingCount, CreditCount: result.CreditCount})
		return nil
	}

	if len(batch) == 0 {
		o.logger.Info("No transactions to import")
		o.progress(opts, ProgressUpdate{Phase: PhaseCompleted, CheckingCount: result.CheckingCount, CreditCount: result.CreditCount})
		return nil
	}

	start := time.Now()
	imported, err := o.ledger.ImportTransactions(ctx, o.config.BudgetID, batch)
	o.logAPICall("ledger.ImportTransactions", len(batch), err, time.Since(start))
	if err != nil {
		return fmt.Errorf("failed to import %d transactions: %w", len(batch), err)
	}

	result.ImportedCount = len(imported.TransactionIDs)
	result.DuplicateImportIDs = imported.DuplicateImportIDs
	o.logger.Info(result.ImportedLine(),
		"imported", result.ImportedCount,
		"duplicates", len(result.DuplicateImportIDs),
	)

	// 5. Pair adjustments with what the ledger created
	for i := range result.Adjustments {
		adj := &result.Adjustments[i]
		if created, ok := imported.FindByImportID(adj.Original.ImportID); ok {
			adj.Imported = &created
		}
	}
	o.reportAdjustments(result)

	o.progress(opts, ProgressUpdate{Phase: PhaseCompleted, CheckingCount: result.CheckingCount, CreditCount: result.CreditCount})
	return nil
}

// pairAdjustments matches each original record with its capped copy by import id
func pairAdjustments(pending, capped []transaction.Transaction) []Adjustment {
	if len(pending) == 0 {
		return nil
	}

	byID := make(map[string]transaction.Transaction, len(capped))
	for _, tx := range capped {
		byID[tx.ImportID] = tx
	}

	adjustments := make([]Adjustment, 0, len(pending))
	for _, original := range pending {
		adjustments = append(adjustments, Adjustment{
			Original: original,
			Capped:   byID[original.ImportID],
		})
	}
	return adjustments
}

func (o *Orchestrator) reportAdjustments(result *Result) {
	lines := result.Warnings()
	for i, line := range lines {
		importID := result.Adjustments[i].Original.ImportID
		o.logger.Warn(line, "import_id", importID)
		o.recordWarning(importID, line)
	}
}

func (o *Orchestrator) progress(opts Options, update ProgressUpdate) {
	if opts.ProgressCallback != nil {
		opts.ProgressCallback(update)
	}
}

// collect drains a transaction sequence, stopping at the first error
func collect(seq iter.Seq2[transaction.Transaction, error]) ([]transaction.Transaction, error) {
	var txs []transaction.Transaction
	for tx, err := range seq {
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, nil
}
