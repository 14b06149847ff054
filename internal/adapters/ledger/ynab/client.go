// Package ynab is a minimal client for the YNAB transactions API.
package ynab

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/eshaffer321/nubank-ynab-sync/internal/domain/transaction"
)

// DefaultBaseURL is the YNAB API root.
const DefaultBaseURL = "https://api.ynab.com/v1"

// APIError is an error answered by the YNAB API.
type APIError struct {
	StatusCode int
	ID         string
	Name       string
	Detail     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ynab: %d %s (%s): %s", e.StatusCode, e.Name, e.ID, e.Detail)
}

// Client talks to the YNAB API with a personal access token.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL overrides the API root.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = u
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.httpClient = h
	}
}

// NewClient creates a YNAB client.
func NewClient(token string, logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		baseURL:    DefaultBaseURL,
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger.With(slog.String("ledger", "ynab")),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ImportTransactions creates all transactions in one call. Transactions whose
// import id already exists in the budget are not created again; their ids are
// listed in DuplicateImportIDs.
func (c *Client) ImportTransactions(ctx context.Context, budgetID string, txs []transaction.Transaction) (*ImportResult, error) {
	payload := createTransactionsRequest{Transactions: make([]transactionPayload, len(txs))}
	for i, tx := range txs {
		payload.Transactions[i] = transactionPayload{
			AccountID: tx.AccountID,
			Date:      tx.Date,
			Amount:    tx.Amount,
			PayeeName: tx.PayeeName,
			Memo:      tx.Memo,
			ImportID:  tx.ImportID,
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode transactions: %w", err)
	}

	endpoint := fmt.Sprintf("%s/budgets/%s/transactions", c.baseURL, url.PathEscape(budgetID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ynab: create transactions: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.Debug("api call",
		"method", "create_transactions",
		"status", resp.StatusCode,
		"count", len(txs),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Detail: string(data)}
		var er errorResponse
		if json.Unmarshal(data, &er) == nil && er.Error.ID != "" {
			apiErr.ID = er.Error.ID
			apiErr.Name = er.Error.Name
			apiErr.Detail = er.Error.Detail
		}
		return nil, apiErr
	}

	var out createTransactionsResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &out.Data, nil
}
