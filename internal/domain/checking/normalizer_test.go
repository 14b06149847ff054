package checking

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/nubank-ynab-sync/internal/adapters/providers"
	"github.com/eshaffer321/nubank-ynab-sync/internal/domain/transaction"
)

type MockAccountFeed struct {
	mock.Mock
}

func (m *MockAccountFeed) FetchAccountPage(ctx context.Context, cursor string) (providers.AccountPage, error) {
	args := m.Called(ctx, cursor)
	page, _ := args.Get(0).(providers.AccountPage)
	return page, args.Error(1)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func amount(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func strPtr(s string) *string { return &s }

func node(id, amt, postDate string, tags []string) providers.AccountNode {
	return providers.AccountNode{
		ID:       id,
		Amount:   amount(amt),
		Detail:   "Fulano de Tal\nCPF ***.123.456-**",
		Title:    "Transferência enviada",
		PostDate: postDate,
		Tags:     tags,
	}
}

func since(date string) transaction.DateFilter {
	d, err := transaction.ParseDate(date)
	if err != nil {
		panic(err)
	}
	return transaction.OnOrAfter(d)
}

func collect(t *testing.T, n *Normalizer, keep transaction.DateFilter) ([]transaction.Transaction, error) {
	t.Helper()
	var txs []transaction.Transaction
	for tx, err := range n.Transactions(context.Background(), keep) {
		if err != nil {
			return txs, err
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

func TestTransform_Tags(t *testing.T) {
	n := NewNormalizer(nil, Config{AccountID: "checking-acc", InvoicePayee: "Invoice", TransferRules: DefaultTransferRules()}, testLogger())

	tests := []struct {
		name      string
		node      providers.AccountNode
		wantOK    bool
		wantAmt   transaction.Milliunits
		wantPayee string
	}{
		{
			name:      "payments tag is an invoice payment",
			node:      node("n1", "120.0", "2024-03-15", []string{"payments"}),
			wantOK:    true,
			wantAmt:   -120000,
			wantPayee: "Invoice",
		},
		{
			name:      "money-in is positive",
			node:      node("n2", "-35.5", "2024-03-15", []string{"money-in"}),
			wantOK:    true,
			wantAmt:   35500,
			wantPayee: "Fulano de Tal",
		},
		{
			name:      "money-out is negative",
			node:      node("n3", "35.5", "2024-03-15", []string{"money-out"}),
			wantOK:    true,
			wantAmt:   -35500,
			wantPayee: "Fulano de Tal",
		},
		{
			name:      "unknown tags pass through with the base sign",
			node:      node("n4", "10.01", "2024-03-15", []string{"pix"}),
			wantOK:    true,
			wantAmt:   10010,
			wantPayee: "Fulano de Tal",
		},
		{
			name:      "empty tag set passes through",
			node:      node("n5", "0.29", "2024-03-15", []string{}),
			wantOK:    true,
			wantAmt:   290,
			wantPayee: "Fulano de Tal",
		},
		{
			name: "untagged investment purchase is negative",
			node: func() providers.AccountNode {
				nd := node("n6", "500", "2024-03-15", nil)
				nd.Title = "Aplicação RDB"
				return nd
			}(),
			wantOK:    true,
			wantAmt:   -500000,
			wantPayee: "Aplicação RDB",
		},
		{
			name: "untagged received transfer is positive",
			node: func() providers.AccountNode {
				nd := node("n7", "75", "2024-03-15", nil)
				nd.Title = "Transferência recebida"
				return nd
			}(),
			wantOK:    true,
			wantAmt:   75000,
			wantPayee: "Transferência recebida",
		},
		{
			name: "ambiguous untagged movement is not emitted",
			node: func() providers.AccountNode {
				nd := node("n8", "75", "2024-03-15", nil)
				nd.Title = "Resgate RDB"
				return nd
			}(),
			wantOK: false,
		},
		{
			name: "node without amount is not emitted",
			node: func() providers.AccountNode {
				nd := node("n9", "1", "2024-03-15", []string{"money-out"})
				nd.Amount = decimal.NullDecimal{}
				return nd
			}(),
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx, ok, err := n.Transform(tt.node)

			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, ok)
			if !tt.wantOK {
				return
			}
			assert.Equal(t, tt.wantAmt, tx.Amount)
			assert.Equal(t, tt.wantPayee, tx.PayeeName)
			assert.Equal(t, tt.node.ID, tx.ImportID)
			assert.Equal(t, tt.node.Title, tx.Memo)
			assert.Equal(t, "checking-acc", tx.AccountID)
		})
	}
}

func TestTransform_DefaultInvoicePayee(t *testing.T) {
	n := NewNormalizer(nil, DefaultConfig("acc"), testLogger())

	tx, ok, err := n.Transform(node("n1", "120.0", "2024-03-15", []string{"payments"}))

	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Fatura", tx.PayeeName)
}

func TestTransform_SettlementDate(t *testing.T) {
	n := NewNormalizer(nil, DefaultConfig("acc"), testLogger())

	tests := []struct {
		name        string
		postDate    string
		displayDate *string
		want        string
	}{
		{name: "no display date", postDate: "2024-03-15", displayDate: nil, want: "2024-03-15"},
		{name: "matching day", postDate: "2024-03-15", displayDate: strPtr("15 MAR"), want: "2024-03-15"},
		{name: "display one day behind", postDate: "2024-03-15", displayDate: strPtr("14 MAR"), want: "2024-03-14"},
		{name: "crosses month boundary", postDate: "2024-03-01", displayDate: strPtr("29 FEV"), want: "2024-02-29"},
		{name: "unpadded day matches", postDate: "2024-03-05", displayDate: strPtr("5 MAR"), want: "2024-03-05"},
		{name: "blank display date", postDate: "2024-03-05", displayDate: strPtr(" "), want: "2024-03-05"},
		// a word never matches a day number, so the date still moves back
		{name: "non-numeric token shifts back", postDate: "2024-03-05", displayDate: strPtr("HOJE"), want: "2024-03-04"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nd := node("n", "1", tt.postDate, []string{"money-out"})
			nd.DisplayDate = tt.displayDate

			tx, ok, err := n.Transform(nd)

			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, tt.want, tx.Date)
		})
	}
}

func TestTransform_InvalidPostDate(t *testing.T) {
	n := NewNormalizer(nil, DefaultConfig("acc"), testLogger())

	_, _, err := n.Transform(node("bad", "1", "15/03/2024", []string{"money-out"}))

	var malformed *MalformedNodeError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, "bad", malformed.NodeID)
}

func TestTransform_IsDeterministic(t *testing.T) {
	faker := gofakeit.New(42)
	n := NewNormalizer(nil, DefaultConfig("acc"), testLogger())
	titles := []string{"Aplicação RDB", "Transferência recebida", "Resgate", "Compra de ETF"}
	tagSets := [][]string{nil, {"payments"}, {"money-in"}, {"money-out"}, {"pix"}}

	for i := 0; i < 200; i++ {
		nd := node(faker.UUID(), decimal.NewFromFloat(faker.Float64Range(-1000, 1000)).StringFixed(2), "2024-03-15", tagSets[faker.Number(0, len(tagSets)-1)])
		if faker.Bool() {
			nd.Title = faker.RandomString(titles)
		} else {
			nd.Title = faker.Sentence(3)
		}

		first, firstOK, err := n.Transform(nd)
		require.NoError(t, err)
		second, secondOK, err := n.Transform(nd)
		require.NoError(t, err)

		assert.Equal(t, firstOK, secondOK)
		assert.Equal(t, first, second)
	}
}

func TestNormalizer_Pagination(t *testing.T) {
	// Arrange
	feed := new(MockAccountFeed)
	feed.On("FetchAccountPage", mock.Anything, "").Return(providers.AccountPage{
		Edges: []providers.AccountEdge{
			{Cursor: "c1", Node: node("a", "1", "2024-03-05", []string{"money-out"})},
			{Cursor: "c2", Node: node("b", "2", "2024-03-04", []string{"money-in"})},
		},
		HasNextPage: true,
	}, nil).Once()
	feed.On("FetchAccountPage", mock.Anything, "c2").Return(providers.AccountPage{
		Edges: []providers.AccountEdge{
			{Cursor: "c3", Node: node("c", "3", "2024-03-03", []string{"money-out"})},
		},
		HasNextPage: false,
	}, nil).Once()
	n := NewNormalizer(feed, DefaultConfig("acc"), testLogger())

	// Act
	txs, err := collect(t, n, since("2024-03-01"))

	// Assert
	require.NoError(t, err)
	require.Len(t, txs, 3)
	assert.Equal(t, "a", txs[0].ImportID)
	assert.Equal(t, "b", txs[1].ImportID)
	assert.Equal(t, "c", txs[2].ImportID)
	feed.AssertExpectations(t)
}

func TestNormalizer_StopsAtImportBoundary(t *testing.T) {
	// Arrange
	feed := new(MockAccountFeed)
	feed.On("FetchAccountPage", mock.Anything, "").Return(providers.AccountPage{
		Edges: []providers.AccountEdge{
			{Cursor: "c1", Node: node("a", "1", "2024-03-02", []string{"money-out"})},
			{Cursor: "c2", Node: node("boundary", "1", "2024-03-01", []string{"money-out"})},
		},
		HasNextPage: true,
	}, nil).Once()
	feed.On("FetchAccountPage", mock.Anything, "c2").Return(providers.AccountPage{
		Edges: []providers.AccountEdge{
			{Cursor: "c3", Node: node("old", "1", "2024-02-29", []string{"money-out"})},
			{Cursor: "c4", Node: node("older", "1", "2024-03-10", []string{"money-out"})},
		},
		HasNextPage: true,
	}, nil).Once()
	n := NewNormalizer(feed, DefaultConfig("acc"), testLogger())

	// Act
	txs, err := collect(t, n, since("2024-03-01"))

	// Assert
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, "boundary", txs[1].ImportID)
	feed.AssertExpectations(t)
	feed.AssertNotCalled(t, "FetchAccountPage", mock.Anything, "c4")
}

func TestNormalizer_SkippedNodesDoNotStopPagination(t *testing.T) {
	ambiguous := node("ambiguous", "1", "2020-01-01", nil)
	ambiguous.Title = "Resgate RDB"
	noAmount := node("no-amount", "1", "2020-01-01", []string{"money-out"})
	noAmount.Amount = decimal.NullDecimal{}

	feed := new(MockAccountFeed)
	feed.On("FetchAccountPage", mock.Anything, "").Return(providers.AccountPage{
		Edges: []providers.AccountEdge{
			{Cursor: "c1", Node: ambiguous},
			{Cursor: "c2", Node: noAmount},
			{Cursor: "c3", Node: node("kept", "1", "2024-03-02", []string{"money-out"})},
		},
	}, nil).Once()

	txs, err := collect(t, NewNormalizer(feed, DefaultConfig("acc"), testLogger()), since("2024-03-01"))

	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "kept", txs[0].ImportID)
}

func TestNormalizer_EmptyPageEndsFeed(t *testing.T) {
	feed := new(MockAccountFeed)
	feed.On("FetchAccountPage", mock.Anything, "").Return(providers.AccountPage{HasNextPage: true}, nil).Once()

	txs, err := collect(t, NewNormalizer(feed, DefaultConfig("acc"), testLogger()), since("2024-03-01"))

	require.NoError(t, err)
	assert.Empty(t, txs)
	feed.AssertExpectations(t)
}

func TestNormalizer_FetchErrorPropagates(t *testing.T) {
	boom := errors.New("unauthorized")
	feed := new(MockAccountFeed)
	feed.On("FetchAccountPage", mock.Anything, "").Return(providers.AccountPage{}, boom)

	_, err := collect(t, NewNormalizer(feed, DefaultConfig("acc"), testLogger()), since("2024-03-01"))

	require.ErrorIs(t, err, boom)
}
