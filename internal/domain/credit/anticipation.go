package credit

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/eshaffer321/nubank-ynab-sync/internal/domain/transaction"
)

const (
	// currencyMarker separates the payee text from the discount amount.
	currencyMarker = "R$"

	// discountClause is the sentence the provider appends after the payee.
	discountClause = "Você ganhou um desconto"
)

var amountPattern = regexp.MustCompile(`^\s*([0-9][0-9.,]*)\s*$`)

// Anticipation is the parsed description of an early-payment discount event.
type Anticipation struct {
	PayeeName string
	Amount    transaction.Milliunits
}

// MalformedEventError reports a feed record the normalizer cannot interpret.
type MalformedEventError struct {
	EventID string
	Reason  string
}

func (e *MalformedEventError) Error() string {
	return fmt.Sprintf("malformed card event %s: %s", e.EventID, e.Reason)
}

// ParseAnticipation extracts payee and discount amount from an anticipation
// description such as "Loja XYZ Você ganhou um desconto de R$12,34".
//
// The amount is the digits after the currency marker with separators removed,
// scaled by 10 into milliunits; it is always non-negative.
func ParseAnticipation(eventID, description string) (Anticipation, error) {
	head, tail, found := strings.Cut(description, currencyMarker)
	if !found {
		return Anticipation{}, &MalformedEventError{
			EventID: eventID,
			Reason:  fmt.Sprintf("description %q has no %s marker", description, currencyMarker),
		}
	}

	m := amountPattern.FindStringSubmatch(tail)
	if m == nil {
		return Anticipation{}, &MalformedEventError{
			EventID: eventID,
			Reason:  fmt.Sprintf("amount %q after %s is not numeric", tail, currencyMarker),
		}
	}
	digits := strings.NewReplacer(",", "", ".", "").Replace(m[1])
	units, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return Anticipation{}, &MalformedEventError{
			EventID: eventID,
			Reason:  fmt.Sprintf("amount %q: %v", m[1], err),
		}
	}

	payee, _, _ := strings.Cut(head, discountClause)

	return Anticipation{
		PayeeName: strings.TrimSpace(payee),
		Amount:    transaction.Milliunits(units * 10),
	}, nil
}
