// Package checking normalizes the paginated checking account feed into
// canonical transactions.
package checking

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/eshaffer321/nubank-ynab-sync/internal/adapters/providers"
	"github.com/eshaffer321/nubank-ynab-sync/internal/domain/transaction"
)

// Tags that resolve a node's direction.
const (
	TagPayments = "payments"
	TagMoneyIn  = "money-in"
	TagMoneyOut = "money-out"
)

// DefaultInvoicePayee is the payee of credit card bill payments.
const DefaultInvoicePayee = "Fatura"

var milliunitsPerUnit = decimal.NewFromInt(1000)

// Config controls how nodes are resolved.
type Config struct {
	AccountID     string
	InvoicePayee  string
	TransferRules []TransferRule
}

// DefaultConfig returns the Nubank resolution policy for an account.
func DefaultConfig(accountID string) Config {
	return Config{
		AccountID:     accountID,
		InvoicePayee:  DefaultInvoicePayee,
		TransferRules: DefaultTransferRules(),
	}
}

// MalformedNodeError reports an account node the normalizer cannot interpret.
type MalformedNodeError struct {
	NodeID string
	Reason string
}

func (e *MalformedNodeError) Error() string {
	return fmt.Sprintf("malformed account node %s: %s", e.NodeID, e.Reason)
}

// Normalizer turns the checking feed into transactions.
type Normalizer struct {
	feed   providers.AccountFeed
	config Config
	logger *slog.Logger
}

// NewNormalizer creates a checking feed normalizer.
func NewNormalizer(feed providers.AccountFeed, cfg Config, logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.InvoicePayee == "" {
		cfg.InvoicePayee = DefaultInvoicePayee
	}
	return &Normalizer{
		feed:   feed,
		config: cfg,
		logger: logger.With(slog.String("feed", "checking")),
	}
}

// Transactions lazily pages through the feed, newest first, yielding every
// resolved transaction until the first one rejected by keep. No further page
// is fetched after that point.
func (n *Normalizer) Transactions(ctx context.Context, keep transaction.DateFilter) iter.Seq2[transaction.Transaction, error] {
	return func(yield func(transaction.Transaction, error) bool) {
		cursor := ""
		for pageNum := 1; ; pageNum++ {
			page, err := n.feed.FetchAccountPage(ctx, cursor)
			if err != nil {
				yield(transaction.Transaction{}, fmt.Errorf("failed to fetch account page %d: %w", pageNum, err))
				return
			}
			n.logger.Debug("fetched account page", "page", pageNum, "edges", len(page.Edges), "has_next", page.HasNextPage)

			for _, edge := range page.Edges {
				tx, ok, err := n.Transform(edge.Node)
				if err != nil {
					yield(transaction.Transaction{}, err)
					return
				}
				if !ok {
					continue
				}
				if !keep(tx.Date) {
					n.logger.Debug("reached import boundary", "import_id", tx.ImportID, "date", tx.Date)
					return
				}
				if !yield(tx, nil) {
					return
				}
			}

			if !page.HasNextPage || len(page.Edges) == 0 {
				return
			}
			cursor = page.NextCursor()
		}
	}
}

// Transform converts one node. ok is false when the node is not a transaction.
func (n *Normalizer) Transform(node providers.AccountNode) (tx transaction.Transaction, ok bool, err error) {
	if !node.Amount.Valid {
		return transaction.Transaction{}, false, nil
	}

	date, err := settlementDate(node)
	if err != nil {
		return transaction.Transaction{}, false, err
	}

	payee, _, _ := strings.Cut(node.Detail, "\n")
	tx = transaction.Transaction{
		ImportID:  node.ID,
		Amount:    transaction.Milliunits(node.Amount.Decimal.Mul(milliunitsPerUnit).IntPart()),
		PayeeName: payee,
		Memo:      node.Title,
		Date:      date,
		AccountID: n.config.AccountID,
	}

	switch {
	case node.Tags == nil:
		dir, matched := MatchTransfer(n.config.TransferRules, node.Title)
		if !matched {
			n.logger.Debug("skipping ambiguous internal movement", "node_id", node.ID, "title", node.Title)
			return transaction.Transaction{}, false, nil
		}
		tx.PayeeName = node.Title
		tx.Amount = dir.Apply(tx.Amount)
	case node.HasTag(TagPayments):
		tx.PayeeName = n.config.InvoicePayee
		tx.Amount = Outflow.Apply(tx.Amount)
	case node.HasTag(TagMoneyIn):
		tx.Amount = Inflow.Apply(tx.Amount)
	case node.HasTag(TagMoneyOut):
		tx.Amount = Outflow.Apply(tx.Amount)
	}

	return tx, true, nil
}

// settlementDate returns postDate, moved back one day when the display date's
// day of month disagrees with it. The provider reports some transactions made
// around midnight one day ahead of their display date.
func settlementDate(node providers.AccountNode) (string, error) {
	post, err := transaction.ParseDate(node.PostDate)
	if err != nil {
		return "", &MalformedNodeError{NodeID: node.ID, Reason: fmt.Sprintf("invalid postDate %q", node.PostDate)}
	}
	if node.DisplayDate == nil {
		return node.PostDate, nil
	}

	fields := strings.Fields(*node.DisplayDate)
	if len(fields) == 0 {
		return node.PostDate, nil
	}
	if sameDay(fields[0], post.Day(), node.PostDate) {
		return node.PostDate, nil
	}
	return transaction.FormatDate(post.AddDate(0, 0, -1)), nil
}

func sameDay(token string, day int, postDate string) bool {
	if d, err := strconv.Atoi(token); err == nil {
		return d == day
	}
	return token == postDate[len(postDate)-2:]
}
