// Package datecap moves future-dated transactions to today.
//
// The card feed reports installments on their future settlement dates, which
// the ledger rejects. Capped transactions are imported as of today and must be
// corrected by hand afterwards, so the originals are kept for reporting.
package datecap

import (
	"github.com/eshaffer321/nubank-ynab-sync/internal/domain/transaction"
)

// Cap returns a new slice where every transaction dated after today is
// replaced by a copy dated today. The input is not modified.
func Cap(txs []transaction.Transaction, today string) []transaction.Transaction {
	capped := make([]transaction.Transaction, len(txs))
	for i, tx := range txs {
		if isFuture(tx, today) {
			tx.Date = today
		}
		capped[i] = tx
	}
	return capped
}

// NeedsAdjustment returns the original records Cap would move to today.
func NeedsAdjustment(txs []transaction.Transaction, today string) []transaction.Transaction {
	var out []transaction.Transaction
	for _, tx := range txs {
		if isFuture(tx, today) {
			out = append(out, tx)
		}
	}
	return out
}

// isFuture compares YYYY-MM-DD strings, whose lexical order is calendar order.
func isFuture(tx transaction.Transaction, today string) bool {
	return tx.Date > today
}
