package nubank

import (
	"context"
	"fmt"
	"strings"

	"github.com/eshaffer321/nubank-ynab-sync/internal/adapters/providers"
)

// accountFeedQuery pages through the savings account feed, newest first.
const accountFeedQuery = `
query feedItems($cursor: String) {
  viewer {
    savingsAccount {
      feedItems(cursor: $cursor) {
        edges {
          cursor
          node {
            id
            detail
            title
            postDate
            displayDate
            tags
            ... on GenericFeedEvent { amount }
            ... on TransferInEvent { amount }
            ... on TransferOutEvent { amount }
            ... on BillPaymentEvent { amount }
          }
        }
        pageInfo {
          hasNextPage
        }
      }
    }
  }
}`

type cardFeedResponse struct {
	Events []providers.CardEvent `json:"events"`
}

type cardDetailResponse struct {
	Transaction struct {
		ChargesList []providers.ChargeDetail `json:"charges_list"`
	} `json:"transaction"`
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type accountFeedResponse struct {
	Data struct {
		Viewer struct {
			SavingsAccount struct {
				FeedItems struct {
					Edges    []providers.AccountEdge `json:"edges"`
					PageInfo struct {
						HasNextPage bool `json:"hasNextPage"`
					} `json:"pageInfo"`
				} `json:"feedItems"`
			} `json:"savingsAccount"`
		} `json:"viewer"`
	} `json:"data"`
	Errors []graphQLError `json:"errors"`
}

// FetchCardFeed returns every event of the credit card feed.
func (p *Provider) FetchCardFeed(ctx context.Context) ([]providers.CardEvent, error) {
	if p.accessToken == "" {
		return nil, ErrNotAuthenticated
	}

	var resp cardFeedResponse
	if err := p.getJSON(ctx, p.links.Events.Href, &resp); err != nil {
		return nil, err
	}

	p.logger.Debug("fetched card feed", "events", len(resp.Events))
	return resp.Events, nil
}

// FetchCardEventDetail returns the charges of a multi-charge card event.
func (p *Provider) FetchCardEventDetail(ctx context.Context, event providers.CardEvent) ([]providers.ChargeDetail, error) {
	if p.accessToken == "" {
		return nil, ErrNotAuthenticated
	}
	if event.Links.Self.Href == "" {
		return nil, fmt.Errorf("nubank: card event %s has no detail link", event.ID)
	}

	var resp cardDetailResponse
	if err := p.getJSON(ctx, event.Links.Self.Href, &resp); err != nil {
		return nil, err
	}
	return resp.Transaction.ChargesList, nil
}

// FetchAccountPage returns the checking feed page after cursor.
func (p *Provider) FetchAccountPage(ctx context.Context, cursor string) (providers.AccountPage, error) {
	if p.accessToken == "" {
		return providers.AccountPage{}, ErrNotAuthenticated
	}

	var after any
	if cursor != "" {
		after = cursor
	}

	var resp accountFeedResponse
	err := p.postJSON(ctx, p.links.Ghostflame.Href, graphQLRequest{
		Query:     accountFeedQuery,
		Variables: map[string]any{"cursor": after},
	}, &resp)
	if err != nil {
		return providers.AccountPage{}, err
	}
	if len(resp.Errors) > 0 {
		msgs := make([]string, len(resp.Errors))
		for i, e := range resp.Errors {
			msgs[i] = e.Message
		}
		return providers.AccountPage{}, fmt.Errorf("nubank: account feed query failed: %s", strings.Join(msgs, "; "))
	}

	items := resp.Data.Viewer.SavingsAccount.FeedItems
	return providers.AccountPage{
		Edges:       items.Edges,
		HasNextPage: items.PageInfo.HasNextPage,
	}, nil
}
