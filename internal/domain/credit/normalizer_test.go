package credit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/nubank-ynab-sync/internal/adapters/providers"
	"github.com/eshaffer321/nubank-ynab-sync/internal/domain/transaction"
)

type MockCardFeed struct {
	mock.Mock
}

func (m *MockCardFeed) FetchCardFeed(ctx context.Context) ([]providers.CardEvent, error) {
	args := m.Called(ctx)
	events, _ := args.Get(0).([]providers.CardEvent)
	return events, args.Error(1)
}

func (m *MockCardFeed) FetchCardEventDetail(ctx context.Context, event providers.CardEvent) ([]providers.ChargeDetail, error) {
	args := m.Called(ctx, event)
	charges, _ := args.Get(0).([]providers.ChargeDetail)
	return charges, args.Error(1)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
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

func TestNormalizer_SimplePurchase(t *testing.T) {
	// Arrange
	feed := new(MockCardFeed)
	feed.On("FetchCardFeed", mock.Anything).Return([]providers.CardEvent{
		{
			ID:          "5f1a-22",
			Time:        "2024-03-15T02:30:00Z",
			Category:    providers.CategoryTransaction,
			Description: "Padaria",
			Title:       "restaurante",
			Amount:      50,
		},
	}, nil)
	n := NewNormalizer(feed, "credit-acc", testLogger())

	// Act
	txs, err := collect(t, n, since("2024-03-01"))

	// Assert
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, transaction.Transaction{
		ImportID:  "5f1a-22",
		Amount:    -500,
		PayeeName: "Padaria",
		Memo:      "restaurante",
		Date:      "2024-03-14", // 02:30Z minus three hours
		AccountID: "credit-acc",
	}, txs[0])
	feed.AssertNotCalled(t, "FetchCardEventDetail", mock.Anything, mock.Anything)
}

func TestNormalizer_Anticipation(t *testing.T) {
	feed := new(MockCardFeed)
	feed.On("FetchCardFeed", mock.Anything).Return([]providers.CardEvent{
		{
			ID:          "abc",
			Time:        "2024-03-15T15:00:00Z",
			Category:    providers.CategoryAnticipateEvent,
			Description: "Loja XYZ Você ganhou um desconto de R$12,34",
			Title:       "Antecipação",
			Amount:      0,
		},
	}, nil)
	n := NewNormalizer(feed, "credit-acc", testLogger())

	txs, err := collect(t, n, since("2024-03-01"))

	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "abc", txs[0].ImportID)
	assert.Equal(t, transaction.Milliunits(12340), txs[0].Amount)
	assert.Equal(t, "Loja XYZ", txs[0].PayeeName)
	assert.Equal(t, "Antecipação", txs[0].Memo)
	assert.Equal(t, "2024-03-15", txs[0].Date)
}

func TestNormalizer_MultiCharge(t *testing.T) {
	// Arrange
	event := providers.CardEvent{
		ID:          "aa-bb-cc",
		Time:        "2024-03-10T12:00:00Z",
		Category:    providers.CategoryTransaction,
		Description: "Loja de Móveis",
		Title:       "casa",
		Amount:      900,
		Details:     &providers.EventDetails{Charges: &providers.ChargesSummary{Count: 3, Amount: 300}},
	}
	feed := new(MockCardFeed)
	feed.On("FetchCardFeed", mock.Anything).Return([]providers.CardEvent{event}, nil)
	feed.On("FetchCardEventDetail", mock.Anything, event).Return([]providers.ChargeDetail{
		{Index: 2, Amount: 302, PostDate: "2024-05-10"},
		{Index: 0, Amount: 300, PostDate: "2024-03-10"},
		{Index: 1, Amount: 301, PostDate: "2024-04-10"},
	}, nil)
	n := NewNormalizer(feed, "credit-acc", testLogger())

	// Act
	txs, err := collect(t, n, since("2024-03-01"))

	// Assert
	require.NoError(t, err)
	require.Len(t, txs, 3)

	wantIDs := []string{"aabbcc-01", "aabbcc-02", "aabbcc-03"}
	wantDates := []string{"2024-03-10", "2024-04-10", "2024-05-10"}
	wantAmounts := []transaction.Milliunits{-3000, -3010, -3020}
	for i, tx := range txs {
		assert.Equal(t, wantIDs[i], tx.ImportID)
		assert.Equal(t, wantDates[i], tx.Date)
		assert.Equal(t, wantAmounts[i], tx.Amount)
		assert.Equal(t, fmt.Sprintf("%02d/03", i+1), tx.Memo)
		assert.Equal(t, "Loja de Móveis", tx.PayeeName)
		assert.Equal(t, "credit-acc", tx.AccountID)
	}
	feed.AssertExpectations(t)
}

func TestNormalizer_MultiChargeWidePadding(t *testing.T) {
	event := providers.CardEvent{
		ID:       "wide",
		Time:     "2024-03-10T12:00:00Z",
		Category: providers.CategoryTransaction,
		Details:  &providers.EventDetails{Charges: &providers.ChargesSummary{Count: 100}},
	}
	charges := make([]providers.ChargeDetail, 100)
	for i := range charges {
		charges[i] = providers.ChargeDetail{Index: 99 - i, Amount: 1, PostDate: "2024-03-10"}
	}
	feed := new(MockCardFeed)
	feed.On("FetchCardFeed", mock.Anything).Return([]providers.CardEvent{event}, nil)
	feed.On("FetchCardEventDetail", mock.Anything, event).Return(charges, nil)

	txs, err := collect(t, NewNormalizer(feed, "acc", testLogger()), since("2024-03-01"))

	require.NoError(t, err)
	require.Len(t, txs, 100)
	assert.Equal(t, "wide-001", txs[0].ImportID)
	assert.Equal(t, "001/100", txs[0].Memo)
	assert.Equal(t, "wide-100", txs[99].ImportID)

	seen := make(map[string]bool)
	for _, tx := range txs {
		assert.False(t, seen[tx.ImportID], "duplicate import id %s", tx.ImportID)
		seen[tx.ImportID] = true
	}
}

func TestNormalizer_FiltersAndDiscards(t *testing.T) {
	feed := new(MockCardFeed)
	feed.On("FetchCardFeed", mock.Anything).Return([]providers.CardEvent{
		{ID: "new", Time: "2024-03-02T10:00:00Z", Category: providers.CategoryTransaction, Amount: 10},
		{ID: "boundary", Time: "2024-03-01T10:00:00Z", Category: providers.CategoryTransaction, Amount: 20},
		{ID: "payment", Time: "2024-03-01T10:00:00Z", Category: "payment", Amount: 30},
		{ID: "old", Time: "2024-02-29T23:00:00Z", Category: providers.CategoryTransaction, Amount: 40},
	}, nil)

	txs, err := collect(t, NewNormalizer(feed, "acc", testLogger()), since("2024-03-01"))

	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, "new", txs[0].ImportID)
	assert.Equal(t, "boundary", txs[1].ImportID)
}

func TestNormalizer_ShiftedDateBeforeStartIsDropped(t *testing.T) {
	feed := new(MockCardFeed)
	feed.On("FetchCardFeed", mock.Anything).Return([]providers.CardEvent{
		{ID: "early", Time: "2024-03-01T01:00:00Z", Category: providers.CategoryTransaction, Description: "Bar", Amount: 10},
		{ID: "early-discount", Time: "2024-03-01T02:59:00Z", Category: providers.CategoryAnticipateEvent, Description: "Loja R$1,00"},
		{ID: "late", Time: "2024-03-01T03:00:00Z", Category: providers.CategoryTransaction, Description: "Bar", Amount: 20},
	}, nil)

	txs, err := collect(t, NewNormalizer(feed, "acc", testLogger()), since("2024-03-01"))

	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "late", txs[0].ImportID)
	assert.Equal(t, "2024-03-01", txs[0].Date)
	for _, tx := range txs {
		assert.GreaterOrEqual(t, tx.Date, "2024-03-01")
	}
}

func TestNormalizer_MalformedAnticipationAborts(t *testing.T) {
	feed := new(MockCardFeed)
	feed.On("FetchCardFeed", mock.Anything).Return([]providers.CardEvent{
		{ID: "first", Time: "2024-03-05T10:00:00Z", Category: providers.CategoryTransaction, Amount: 10},
		{ID: "broken", Time: "2024-03-04T10:00:00Z", Category: providers.CategoryAnticipateEvent, Description: "no marker"},
		{ID: "after", Time: "2024-03-03T10:00:00Z", Category: providers.CategoryTransaction, Amount: 10},
	}, nil)

	txs, err := collect(t, NewNormalizer(feed, "acc", testLogger()), since("2024-03-01"))

	require.Error(t, err)
	var malformed *MalformedEventError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, "broken", malformed.EventID)
	assert.Len(t, txs, 1)
}

func TestNormalizer_FeedErrors(t *testing.T) {
	t.Run("card feed failure propagates", func(t *testing.T) {
		boom := errors.New("connection reset")
		feed := new(MockCardFeed)
		feed.On("FetchCardFeed", mock.Anything).Return(nil, boom)

		_, err := collect(t, NewNormalizer(feed, "acc", testLogger()), since("2024-03-01"))

		require.ErrorIs(t, err, boom)
	})

	t.Run("detail failure propagates with event id", func(t *testing.T) {
		boom := errors.New("not found")
		event := providers.CardEvent{
			ID:       "multi",
			Time:     "2024-03-05T10:00:00Z",
			Category: providers.CategoryTransaction,
			Details:  &providers.EventDetails{Charges: &providers.ChargesSummary{Count: 2}},
		}
		feed := new(MockCardFeed)
		feed.On("FetchCardFeed", mock.Anything).Return([]providers.CardEvent{event}, nil)
		feed.On("FetchCardEventDetail", mock.Anything, event).Return(nil, boom)

		_, err := collect(t, NewNormalizer(feed, "acc", testLogger()), since("2024-03-01"))

		require.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "multi")
	})
}

func TestNormalizer_StopsWhenConsumerStops(t *testing.T) {
	feed := new(MockCardFeed)
	feed.On("FetchCardFeed", mock.Anything).Return([]providers.CardEvent{
		{ID: "a", Time: "2024-03-05T10:00:00Z", Category: providers.CategoryTransaction, Amount: 1},
		{ID: "b", Time: "2024-03-04T10:00:00Z", Category: providers.CategoryTransaction, Amount: 1},
	}, nil)
	n := NewNormalizer(feed, "acc", testLogger())

	var got []string
	for tx, err := range n.Transactions(context.Background(), since("2024-03-01")) {
		require.NoError(t, err)
		got = append(got, tx.ImportID)
		break
	}

	assert.Equal(t, []string{"a"}, got)
}

func TestEventDate(t *testing.T) {
	tests := []struct {
		time string
		want string
	}{
		{time: "2024-03-15T02:59:59Z", want: "2024-03-14"},
		{time: "2024-03-15T03:00:00Z", want: "2024-03-15"},
		{time: "2024-03-15T03:00:00.123Z", want: "2024-03-15"},
		{time: "2024-03-15T01:00:00-03:00", want: "2024-03-14"},
		{time: "2024-03-15T10:00:00", want: "2024-03-15"},
	}

	for _, tt := range tests {
		t.Run(tt.time, func(t *testing.T) {
			got, err := eventDate(providers.CardEvent{ID: "x", Time: tt.time})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := eventDate(providers.CardEvent{ID: "x", Time: "yesterday-ish"})
	require.Error(t, err)
}
