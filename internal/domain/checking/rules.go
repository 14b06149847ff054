package checking

import (
	"strings"

	"github.com/eshaffer321/nubank-ynab-sync/internal/domain/transaction"
)

// Direction is the forced sign of a resolved checking transaction.
type Direction int

const (
	// Outflow forces a negative amount.
	Outflow Direction = iota + 1
	// Inflow forces a positive amount.
	Inflow
)

// Apply returns amount with the direction's sign.
func (d Direction) Apply(amount transaction.Milliunits) transaction.Milliunits {
	if d == Outflow {
		return amount.Negative()
	}
	return amount.Positive()
}

func (d Direction) String() string {
	switch d {
	case Outflow:
		return "outflow"
	case Inflow:
		return "inflow"
	default:
		return "unknown"
	}
}

// TransferRule maps a phrase found in an untagged movement's title to a direction.
// Phrases are matched against the lowercased title.
type TransferRule struct {
	Phrase    string
	Direction Direction
}

// DefaultTransferRules classifies untagged internal movements of a Nubank
// account. Investment purchases leave the account; received transfers enter it.
// Anything else is an ambiguous movement between own accounts and is skipped.
func DefaultTransferRules() []TransferRule {
	return []TransferRule{
		{Phrase: "compra de etf", Direction: Outflow},
		{Phrase: "compra de cdb", Direction: Outflow},
		{Phrase: "compra de ações", Direction: Outflow},
		{Phrase: "reserva de ipo", Direction: Outflow},
		{Phrase: "aplica", Direction: Outflow},
		{Phrase: "transferência recebida", Direction: Inflow},
	}
}

// MatchTransfer returns the direction of the first rule whose phrase occurs
// in title, and false when none matches.
func MatchTransfer(rules []TransferRule, title string) (Direction, bool) {
	lower := strings.ToLower(title)
	for _, rule := range rules {
		if strings.Contains(lower, strings.ToLower(rule.Phrase)) {
			return rule.Direction, true
		}
	}
	return 0, false
}
