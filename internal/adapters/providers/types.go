package providers

import (
	"context"

	"github.com/shopspring/decimal"
)

// Card event categories reported by the card feed.
const (
	CategoryTransaction     = "transaction"
	CategoryAnticipateEvent = "anticipate_event"
)

// CardEvent is one record of the credit card feed.
type CardEvent struct {
	ID          string        `json:"id"`
	Time        string        `json:"time"` // ISO-8601 timestamp
	Category    string        `json:"category"`
	Description string        `json:"description"`
	Title       string        `json:"title"`
	Amount      int64         `json:"amount"`
	Details     *EventDetails `json:"details,omitempty"`
	Links       EventLinks    `json:"_links"`
}

// HasCharges reports whether the event was settled across several charges.
func (e CardEvent) HasCharges() bool {
	return e.Details != nil && e.Details.Charges != nil
}

// EventDetails holds the optional detail block of a card event.
type EventDetails struct {
	Charges *ChargesSummary `json:"charges,omitempty"`
}

// ChargesSummary is the installment summary embedded in a card event.
type ChargesSummary struct {
	Count  int   `json:"count"`
	Amount int64 `json:"amount"`
}

// EventLinks are the hypermedia links attached to a card event.
type EventLinks struct {
	Self Link `json:"self"`
}

// Link is a single hypermedia reference.
type Link struct {
	Href string `json:"href"`
}

// ChargeDetail is one installment of a multi-charge card event.
type ChargeDetail struct {
	Index    int    `json:"index"`
	Amount   int64  `json:"amount"`
	PostDate string `json:"post_date"` // YYYY-MM-DD
}

// AccountNode is one record of the checking account feed.
type AccountNode struct {
	ID          string              `json:"id"`
	Amount      decimal.NullDecimal `json:"amount"` // currency units; invalid when absent
	Detail      string              `json:"detail"`
	Title       string              `json:"title"`
	PostDate    string              `json:"postDate"`
	DisplayDate *string             `json:"displayDate"`
	// Tags is nil for untagged internal movements.
	Tags []string `json:"tags"`
}

// HasTag reports whether the node carries the given tag.
func (n AccountNode) HasTag(tag string) bool {
	for _, t := range n.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// AccountEdge wraps an account node with its pagination cursor.
type AccountEdge struct {
	Cursor string      `json:"cursor"`
	Node   AccountNode `json:"node"`
}

// AccountPage is one page of the checking account feed.
type AccountPage struct {
	Edges       []AccountEdge `json:"edges"`
	HasNextPage bool          `json:"-"`
}

// NextCursor returns the cursor of the last edge, or "" for an empty page.
func (p AccountPage) NextCursor() string {
	if len(p.Edges) == 0 {
		return ""
	}
	return p.Edges[len(p.Edges)-1].Cursor
}

// CardFeed is the part of a feed provider that serves the credit card feed.
type CardFeed interface {
	FetchCardFeed(ctx context.Context) ([]CardEvent, error)
	FetchCardEventDetail(ctx context.Context, event CardEvent) ([]ChargeDetail, error)
}

// AccountFeed is the part of a feed provider that serves the checking feed.
//
// Pages MUST be returned newest first: consumers stop paginating at the first
// transaction older than their import window.
type AccountFeed interface {
	// FetchAccountPage fetches the page after cursor ("" for the first page).
	FetchAccountPage(ctx context.Context, cursor string) (AccountPage, error)
}

// FeedProvider is the interface a banking provider must implement.
type FeedProvider interface {
	CardFeed
	AccountFeed

	Name() string

	// Authenticate runs once before any fetch.
	Authenticate(ctx context.Context) error
}
