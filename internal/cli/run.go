package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/eshaffer321/nubank-ynab-sync/internal/infrastructure/config"
	"github.com/eshaffer321/nubank-ynab-sync/internal/infrastructure/logging"
	"github.com/eshaffer321/nubank-ynab-sync/internal/infrastructure/storage"
)

// RunSync performs one sync from the command line and prints its summary.
func RunSync(ctx context.Context, cfg *config.Config, flags SyncFlags, out io.Writer) error {
	opts, err := flags.ToSyncOptions()
	if err != nil {
		return err
	}

	loggingCfg := cfg.Observability.Logging
	if flags.Verbose {
		loggingCfg.Level = "debug"
	}
	logger := logging.NewLoggerWithSystem(loggingCfg, "sync")

	store, err := storage.NewStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open run history: %w", err)
	}
	defer func() { _ = store.Close() }()

	orchestrator, err := NewOrchestrator(cfg, store, logger)
	if err != nil {
		return err
	}

	PrintHeader(out, "nubank", flags.DryRun)

	result, err := orchestrator.Run(ctx, opts)
	if err != nil {
		return err
	}

	PrintConfiguration(out, cfg.YNAB.BudgetID, result.SinceDate)
	PrintSyncSummary(out, result)
	return nil
}
