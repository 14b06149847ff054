package transaction

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOnOrAfter(t *testing.T) {
	keep := OnOrAfter(time.Date(2024, 3, 1, 15, 30, 0, 0, time.UTC))

	assert.True(t, keep("2024-03-01"), "boundary is inclusive")
	assert.True(t, keep("2024-03-02"))
	assert.False(t, keep("2024-02-29"))
	assert.False(t, keep("not-a-date"))
}

func TestToday(t *testing.T) {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)

	// 01:00 UTC is still the previous evening in São Paulo.
	now := time.Date(2024, 3, 15, 1, 0, 0, 0, time.UTC)

	assert.Equal(t, "2024-03-14", FormatDate(Today(now, loc)))
	assert.Equal(t, "2024-03-15", FormatDate(Today(now, time.UTC)))
}

func TestAddDays(t *testing.T) {
	got, err := AddDays("2024-03-01", -1)
	require.NoError(t, err)
	assert.Equal(t, "2024-02-29", got)

	_, err = AddDays("01/03/2024", 1)
	assert.Error(t, err)
}

func TestMilliunits_Sign(t *testing.T) {
	assert.Equal(t, Milliunits(-10), Milliunits(10).Negative())
	assert.Equal(t, Milliunits(-10), Milliunits(-10).Negative())
	assert.Equal(t, Milliunits(10), Milliunits(-10).Positive())
	assert.Equal(t, "-1500", Milliunits(-1500).String())
}
