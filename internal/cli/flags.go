package cli

import (
	"fmt"

	"github.com/eshaffer321/nubank-ynab-sync/internal/application/sync"
	"github.com/eshaffer321/nubank-ynab-sync/internal/domain/transaction"
)

// SyncFlags are the flags of the sync command
type SyncFlags struct {
	ConfigPath string
	DryRun     bool
	Since      string // YYYY-MM-DD, empty means the configured start date
	Verbose    bool
}

// ToSyncOptions converts SyncFlags to sync.Options
func (f SyncFlags) ToSyncOptions() (sync.Options, error) {
	opts := sync.Options{DryRun: f.DryRun}
	if f.Since == "" {
		return opts, nil
	}

	since, err := transaction.ParseDate(f.Since)
	if err != nil {
		return sync.Options{}, fmt.Errorf("invalid --since %q: %w", f.Since, err)
	}
	opts.Since = since
	return opts, nil
}

// ServeFlags holds the CLI flags for the serve command.
type ServeFlags struct {
	ConfigPath string
	Port       int
	Verbose    bool
}
