// Package nubank implements the feed provider for Nubank accounts.
//
// Authentication follows the mobile app flow: discovery of the service URLs,
// then a password login over mutual TLS with the account's PKCS#12
// certificate. The login response links to the card feed and to the GraphQL
// endpoint serving the checking account feed.
package nubank

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/eshaffer321/nubank-ynab-sync/internal/adapters/providers"
)

// DefaultDiscoveryURL lists the app service URLs.
const DefaultDiscoveryURL = "https://prod-s0-webapp-proxy.nubank.com.br/api/app/discovery"

// ErrNotAuthenticated is returned by fetches made before Authenticate.
var ErrNotAuthenticated = errors.New("nubank: not authenticated")

// HTTPError is a non-2xx response from the provider.
type HTTPError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("nubank: %s %s returned %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

// Config holds the credentials of one Nubank account.
type Config struct {
	DiscoveryURL string
	CPF          string
	Password     string
	Timeout      time.Duration
}

// Provider implements providers.FeedProvider over the Nubank HTTP API.
type Provider struct {
	config     Config
	httpClient *http.Client
	logger     *slog.Logger

	accessToken string
	links       sessionLinks
}

// Compile-time check that Provider implements FeedProvider
var _ providers.FeedProvider = (*Provider)(nil)

// Option customizes a Provider.
type Option func(*Provider)

// WithHTTPClient replaces the HTTP client, e.g. one built by NewMTLSClient.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		p.httpClient = c
	}
}

// NewProvider creates a Nubank provider.
func NewProvider(cfg Config, logger *slog.Logger, opts ...Option) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.DiscoveryURL == "" {
		cfg.DiscoveryURL = DefaultDiscoveryURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	p := &Provider{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger.With(slog.String("provider", "nubank")),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the provider identifier
func (p *Provider) Name() string {
	return "nubank"
}

// getJSON performs an authenticated GET and decodes the response into out.
func (p *Provider) getJSON(ctx context.Context, url string, out any) error {
	return p.do(ctx, http.MethodGet, url, nil, out)
}

// postJSON performs a POST with a JSON body and decodes the response into out.
func (p *Provider) postJSON(ctx context.Context, url string, body, out any) error {
	return p.do(ctx, http.MethodPost, url, body, out)
}

func (p *Provider) do(ctx context.Context, method, url string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if p.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+p.accessToken)
	}

	start := time.Now()
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("nubank: %s %s: %w", method, url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	p.logger.Debug("api call",
		"method", method,
		"url", url,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &HTTPError{Method: method, URL: url, StatusCode: resp.StatusCode, Body: string(data)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", url, err)
	}
	return nil
}
