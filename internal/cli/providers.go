package cli

import (
	"fmt"
	"log/slog"

	"github.com/eshaffer321/nubank-ynab-sync/internal/adapters/clients"
	"github.com/eshaffer321/nubank-ynab-sync/internal/application/sync"
	"github.com/eshaffer321/nubank-ynab-sync/internal/domain/checking"
	"github.com/eshaffer321/nubank-ynab-sync/internal/infrastructure/config"
	"github.com/eshaffer321/nubank-ynab-sync/internal/infrastructure/storage"
)

// NewOrchestrator wires the Nubank provider and the YNAB ledger into an
// orchestrator. store may be nil to skip run history.
func NewOrchestrator(cfg *config.Config, store storage.Repository, logger *slog.Logger) (*sync.Orchestrator, error) {
	syncCfg, err := NewSyncConfig(cfg)
	if err != nil {
		return nil, err
	}

	c, err := clients.NewClients(cfg, logger)
	if err != nil {
		return nil, err
	}

	return sync.NewOrchestrator(c.Nubank, c.YNAB, syncCfg, store, logger), nil
}

// NewSyncConfig maps the file configuration onto the orchestrator settings
func NewSyncConfig(cfg *config.Config) (sync.Config, error) {
	loc, err := cfg.Sync.Location()
	if err != nil {
		return sync.Config{}, fmt.Errorf("invalid timezone: %w", err)
	}

	rules, err := TransferRules(cfg.Sync.TransferRules)
	if err != nil {
		return sync.Config{}, err
	}

	checkingCfg := checking.DefaultConfig(cfg.YNAB.CheckingAccountID)
	if cfg.Sync.InvoicePayee != "" {
		checkingCfg.InvoicePayee = cfg.Sync.InvoicePayee
	}
	if rules != nil {
		checkingCfg.TransferRules = rules
	}

	return sync.Config{
		BudgetID:        cfg.YNAB.BudgetID,
		CreditAccountID: cfg.YNAB.CreditAccountID,
		Checking:        checkingCfg,
		Location:        loc,
		StartDate:       cfg.ImportStartDate,
	}, nil
}

// TransferRules converts configured rules. It returns nil when none are
// configured so the built-in rules apply.
func TransferRules(configured []config.TransferRuleConfig) ([]checking.TransferRule, error) {
	if len(configured) == 0 {
		return nil, nil
	}

	rules := make([]checking.TransferRule, 0, len(configured))
	for _, rc := range configured {
		var dir checking.Direction
		switch rc.Direction {
		case config.DirectionOutflow:
			dir = checking.Outflow
		case config.DirectionInflow:
			dir = checking.Inflow
		default:
			return nil, fmt.Errorf("transfer rule %q: unknown direction %q", rc.Phrase, rc.Direction)
		}
		rules = append(rules, checking.TransferRule{Phrase: rc.Phrase, Direction: dir})
	}
	return rules, nil
}
