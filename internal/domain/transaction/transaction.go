// Package transaction defines the canonical, ledger-ready transaction record
// produced by the feed normalizers.
package transaction

import (
	"fmt"
	"strconv"
	"time"
)

// DateLayout is the layout of every transaction date (YYYY-MM-DD).
const DateLayout = "2006-01-02"

// Milliunits is an amount in 1/1000 of a currency unit.
// Negative values leave the account, positive values enter it.
type Milliunits int64

// Negative returns -|m|.
func (m Milliunits) Negative() Milliunits {
	if m > 0 {
		return -m
	}
	return m
}

// Positive returns |m|.
func (m Milliunits) Positive() Milliunits {
	if m < 0 {
		return -m
	}
	return m
}

func (m Milliunits) String() string {
	return strconv.FormatInt(int64(m), 10)
}

// Transaction is the normalized unit handed to the ledger.
type Transaction struct {
	// ImportID is the idempotency key; stable across re-runs.
	ImportID  string     `json:"import_id"`
	Amount    Milliunits `json:"amount"`
	PayeeName string     `json:"payee_name"`
	Memo      string     `json:"memo,omitempty"`
	Date      string     `json:"date"`
	AccountID string     `json:"account_id"`
}

func (t Transaction) String() string {
	return fmt.Sprintf("Transaction(import_id=%s date=%s amount=%s payee=%q memo=%q)",
		t.ImportID, t.Date, t.Amount, t.PayeeName, t.Memo)
}

// DateFilter reports whether a YYYY-MM-DD date belongs to the import window.
type DateFilter func(date string) bool

// OnOrAfter returns a filter accepting dates on or after start (inclusive).
// Dates that fail to parse are rejected.
func OnOrAfter(start time.Time) DateFilter {
	boundary := truncate(start)
	return func(date string) bool {
		d, err := ParseDate(date)
		if err != nil {
			return false
		}
		return !d.Before(boundary)
	}
}

// ParseDate parses a YYYY-MM-DD date as midnight UTC.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// FormatDate formats t's calendar date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// Today returns the calendar date of now in loc, as midnight UTC.
func Today(now time.Time, loc *time.Location) time.Time {
	if loc != nil {
		now = now.In(loc)
	}
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// AddDays shifts a YYYY-MM-DD date by n calendar days.
func AddDays(date string, n int) (string, error) {
	d, err := ParseDate(date)
	if err != nil {
		return "", err
	}
	return FormatDate(d.AddDate(0, 0, n)), nil
}

func truncate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
