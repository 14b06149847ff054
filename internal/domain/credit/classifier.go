package credit

import "github.com/eshaffer321/nubank-ynab-sync/internal/adapters/providers"

// Kind is the classification of a card feed event.
type Kind int

const (
	// KindDiscard is an event that does not produce a transaction.
	KindDiscard Kind = iota
	// KindAdjustment is a cashback/anticipation discount.
	KindAdjustment
	// KindSimplePurchase is a purchase settled in a single charge.
	KindSimplePurchase
	// KindMultiCharge is a purchase settled across several charges.
	KindMultiCharge
)

func (k Kind) String() string {
	switch k {
	case KindAdjustment:
		return "adjustment"
	case KindSimplePurchase:
		return "simple_purchase"
	case KindMultiCharge:
		return "multi_charge"
	default:
		return "discard"
	}
}

// Classify decides what a card event represents. Rules apply in priority order.
func Classify(event providers.CardEvent) Kind {
	switch {
	case event.Category == providers.CategoryAnticipateEvent:
		return KindAdjustment
	case event.Category != providers.CategoryTransaction:
		return KindDiscard
	case !event.HasCharges():
		return KindSimplePurchase
	default:
		return KindMultiCharge
	}
}
