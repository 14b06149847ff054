// Package clients builds the outbound API clients from configuration.
package clients

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/eshaffer321/nubank-ynab-sync/internal/adapters/ledger/ynab"
	"github.com/eshaffer321/nubank-ynab-sync/internal/adapters/providers/nubank"
	"github.com/eshaffer321/nubank-ynab-sync/internal/infrastructure/config"
)

// DefaultTimeout bounds every outbound request.
const DefaultTimeout = 30 * time.Second

// Clients holds the feed source and the ledger destination.
type Clients struct {
	Nubank *nubank.Provider
	YNAB   *ynab.Client
}

// NewClients loads the Nubank client certificate and builds both clients.
// No network call is made here; the provider authenticates at the start of a run.
func NewClients(cfg *config.Config, logger *slog.Logger) (*Clients, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cert, err := nubank.LoadCertificate(cfg.Nubank.CertPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load nubank certificate: %w", err)
	}

	provider := nubank.NewProvider(nubank.Config{
		DiscoveryURL: cfg.Nubank.DiscoveryURL,
		CPF:          cfg.Nubank.CPF,
		Password:     cfg.Nubank.Password,
		Timeout:      DefaultTimeout,
	}, logger, nubank.WithHTTPClient(nubank.NewMTLSClient(cert, DefaultTimeout)))

	return &Clients{
		Nubank: provider,
		YNAB:   NewLedger(cfg, logger),
	}, nil
}

// NewLedger builds the YNAB client alone.
func NewLedger(cfg *config.Config, logger *slog.Logger) *ynab.Client {
	var opts []ynab.Option
	if cfg.YNAB.BaseURL != "" {
		opts = append(opts, ynab.WithBaseURL(cfg.YNAB.BaseURL))
	}
	return ynab.NewClient(cfg.YNAB.Token, logger, opts...)
}
