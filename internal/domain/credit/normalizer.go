// Package credit normalizes the credit card feed into canonical transactions.
//
// Each card event is classified (see Classify) and turned into zero, one or
// several transactions. Multi-charge purchases are expanded through the
// provider's detail lookup, one transaction per charge, ordered by the
// charge index.
package credit

import (
	"cmp"
	"context"
	"fmt"
	"iter"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/eshaffer321/nubank-ynab-sync/internal/adapters/providers"
	"github.com/eshaffer321/nubank-ynab-sync/internal/domain/transaction"
)

// reportingOffset converts feed timestamps to the provider's reporting day.
// Fixed, not DST-aware.
const reportingOffset = 3 * time.Hour

// providerScale converts card feed amounts to milliunits.
const providerScale = 10

// Normalizer turns the card feed into transactions for one ledger account.
type Normalizer struct {
	feed      providers.CardFeed
	accountID string
	logger    *slog.Logger
}

// NewNormalizer creates a card feed normalizer.
func NewNormalizer(feed providers.CardFeed, accountID string, logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{
		feed:      feed,
		accountID: accountID,
		logger:    logger.With(slog.String("feed", "credit")),
	}
}

// Transactions lazily yields the transactions of every event whose feed date
// passes keep. The sequence stops at the first error.
func (n *Normalizer) Transactions(ctx context.Context, keep transaction.DateFilter) iter.Seq2[transaction.Transaction, error] {
	return func(yield func(transaction.Transaction, error) bool) {
		events, err := n.feed.FetchCardFeed(ctx)
		if err != nil {
			yield(transaction.Transaction{}, fmt.Errorf("failed to fetch card feed: %w", err))
			return
		}
		n.logger.Debug("fetched card feed", "events", len(events))

		for _, event := range events {
			if len(event.Time) < len(transaction.DateLayout) {
				yield(transaction.Transaction{}, &MalformedEventError{EventID: event.ID, Reason: fmt.Sprintf("invalid time %q", event.Time)})
				return
			}
			if !keep(event.Time[:len(transaction.DateLayout)]) {
				continue
			}

			txs, err := n.normalize(ctx, event, keep)
			if err != nil {
				yield(transaction.Transaction{}, err)
				return
			}
			for _, tx := range txs {
				if !yield(tx, nil) {
					return
				}
			}
		}
	}
}

// normalize converts a single event. Adjustments and simple purchases whose
// shifted date falls before the start are dropped.
func (n *Normalizer) normalize(ctx context.Context, event providers.CardEvent, keep transaction.DateFilter) ([]transaction.Transaction, error) {
	kind := Classify(event)
	if kind == KindDiscard {
		n.logger.Debug("discarding card event", "event_id", event.ID, "category", event.Category)
		return nil, nil
	}

	date, err := eventDate(event)
	if err != nil {
		return nil, err
	}
	if kind != KindMultiCharge && !keep(date) {
		n.logger.Debug("card event dated before start", "event_id", event.ID, "date", date)
		return nil, nil
	}

	switch kind {
	case KindAdjustment:
		a, err := ParseAnticipation(event.ID, event.Description)
		if err != nil {
			return nil, err
		}
		return []transaction.Transaction{{
			ImportID:  event.ID,
			Amount:    a.Amount,
			PayeeName: a.PayeeName,
			Memo:      event.Title,
			Date:      date,
			AccountID: n.accountID,
		}}, nil

	case KindSimplePurchase:
		return []transaction.Transaction{{
			ImportID:  event.ID,
			Amount:    transaction.Milliunits(event.Amount * providerScale * -1),
			PayeeName: event.Description,
			Memo:      event.Title,
			Date:      date,
			AccountID: n.accountID,
		}}, nil

	default:
		charges, err := n.feed.FetchCardEventDetail(ctx, event)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch details for card event %s: %w", event.ID, err)
		}
		return n.splitCharges(event, charges), nil
	}
}

// splitCharges emits one transaction per charge, ordered by charge index.
func (n *Normalizer) splitCharges(event providers.CardEvent, charges []providers.ChargeDetail) []transaction.Transaction {
	sorted := slices.Clone(charges)
	slices.SortStableFunc(sorted, func(a, b providers.ChargeDetail) int {
		return cmp.Compare(a.Index, b.Index)
	})

	total := len(sorted)
	width := max(2, len(strconv.Itoa(total)))
	baseID := strings.ReplaceAll(event.ID, "-", "")

	txs := make([]transaction.Transaction, 0, total)
	for i, charge := range sorted {
		pos := i + 1
		txs = append(txs, transaction.Transaction{
			ImportID:  fmt.Sprintf("%s-%0*d", baseID, width, pos),
			Amount:    transaction.Milliunits(charge.Amount * providerScale * -1),
			PayeeName: event.Description,
			Memo:      fmt.Sprintf("%0*d/%0*d", width, pos, width, total),
			Date:      charge.PostDate,
			AccountID: n.accountID,
		})
	}

	n.logger.Debug("split multi-charge event", "event_id", event.ID, "charges", total)
	return txs
}

// eventDate returns the event's reporting date (timestamp minus the offset).
func eventDate(event providers.CardEvent) (string, error) {
	t, err := parseEventTime(event.Time)
	if err != nil {
		return "", &MalformedEventError{EventID: event.ID, Reason: fmt.Sprintf("invalid time %q", event.Time)}
	}
	return transaction.FormatDate(t.Add(-reportingOffset)), nil
}

func parseEventTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	// Timestamps without an offset are taken as-is.
	return time.Parse("2006-01-02T15:04:05.999999999", s)
}
