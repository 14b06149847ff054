// Package validator checks a normalized batch before it is sent to the ledger.
//
// The ledger accepts a whole batch or rejects it, so a single malformed
// record would fail the import after both feeds were already collected.
// Checking locally keeps the error message pointed at the offending record.
package validator

import (
	"fmt"
	"strings"

	"github.com/eshaffer321/nubank-ynab-sync/internal/domain/transaction"
)

// MaxImportIDLength is the longest import id the ledger stores.
const MaxImportIDLength = 36

// BatchValidation contains the result of validating a batch.
type BatchValidation struct {
	// Valid is true if every record can be submitted
	Valid bool

	// Problems lists one line per malformed record (empty if valid)
	Problems []string

	// DuplicateImportIDs are ids carried by more than one record. They do not
	// make the batch invalid; the ledger keeps the first and reports the rest.
	DuplicateImportIDs []string
}

// Reason joins the problems into one message.
func (v *BatchValidation) Reason() string {
	return strings.Join(v.Problems, "; ")
}

// ValidateBatch checks that every record has an import id the ledger accepts,
// a YYYY-MM-DD date and a destination account.
func ValidateBatch(txs []transaction.Transaction) *BatchValidation {
	result := &BatchValidation{Valid: true}
	seen := make(map[string]int, len(txs))

	for i, tx := range txs {
		label := tx.ImportID
		if label == "" {
			label = fmt.Sprintf("#%d", i)
		}

		switch {
		case tx.ImportID == "":
			result.Problems = append(result.Problems, fmt.Sprintf("%s: missing import id", label))
		case len(tx.ImportID) > MaxImportIDLength:
			result.Problems = append(result.Problems,
				fmt.Sprintf("%s: import id longer than %d characters", label, MaxImportIDLength))
		}

		if _, err := transaction.ParseDate(tx.Date); err != nil {
			result.Problems = append(result.Problems, fmt.Sprintf("%s: invalid date %q", label, tx.Date))
		}
		if tx.AccountID == "" {
			result.Problems = append(result.Problems, fmt.Sprintf("%s: missing account id", label))
		}

		if tx.ImportID != "" {
			seen[tx.ImportID]++
			if seen[tx.ImportID] == 2 {
				result.DuplicateImportIDs = append(result.DuplicateImportIDs, tx.ImportID)
			}
		}
	}

	result.Valid = len(result.Problems) == 0
	return result
}
