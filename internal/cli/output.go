package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/eshaffer321/nubank-ynab-sync/internal/application/sync"
	"github.com/eshaffer321/nubank-ynab-sync/internal/infrastructure/config"
	"github.com/eshaffer321/nubank-ynab-sync/internal/infrastructure/storage"
)

// PrintHeader prints the application header
func PrintHeader(w io.Writer, providerName string, dryRun bool) {
	mode := "PRODUCTION"
	if dryRun {
		mode = "DRY-RUN"
	}
	fmt.Fprintf(w, "nubank-sync: %s (%s mode)\n", providerName, mode)
}

// PrintConfiguration prints the resolved run window
func PrintConfiguration(w io.Writer, budgetID, since string) {
	fmt.Fprintf(w, "Budget: %s | Since: %s\n\n", budgetID, since)
}

// PrintSyncSummary prints the sync result summary
func PrintSyncSummary(w io.Writer, result *sync.Result) {
	fmt.Fprintln(w, strings.Repeat("-", 60))
	fmt.Fprintln(w, result.CountLine())
	fmt.Fprintln(w, result.ImportedLine())

	if len(result.DuplicateImportIDs) > 0 {
		fmt.Fprintf(w, "Already imported: %d (%s)\n",
			len(result.DuplicateImportIDs), strings.Join(result.DuplicateImportIDs, ", "))
	}

	if warnings := result.Warnings(); len(warnings) > 0 {
		fmt.Fprintln(w, "\nWarnings:")
		for _, line := range warnings {
			fmt.Fprintf(w, "  - %s\n", line)
		}
	}

	if result.RunID > 0 {
		fmt.Fprintf(w, "\nRun #%d recorded.\n", result.RunID)
	}
}

// PrintRuns prints the most recent recorded runs, newest first
func PrintRuns(w io.Writer, cfg *config.Config, limit int) error {
	store, err := storage.NewStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open run history: %w", err)
	}
	defer func() { _ = store.Close() }()

	runs, err := store.ListSyncRuns(limit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if len(runs) == 0 {
		fmt.Fprintln(w, "No sync runs recorded.")
		return nil
	}

	for _, run := range runs {
		mode := ""
		if run.DryRun {
			mode = " (dry run)"
		}
		fmt.Fprintf(w, "#%d %s %s%s since=%s checking=%d credit=%d imported=%d duplicates=%d adjustments=%d\n",
			run.ID, run.StartedAt.Format("2006-01-02 15:04"), run.Status, mode, run.SinceDate,
			run.CheckingCount, run.CreditCount, run.ImportedCount, run.DuplicateCount, run.AdjustmentCount)
		if run.ErrorMessage != "" {
			fmt.Fprintf(w, "    error: %s\n", run.ErrorMessage)
		}
	}
	return nil
}
