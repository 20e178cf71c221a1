package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote is the number of points a deposit of Amount in Asset would yield.
type Quote struct {
	Asset     Asset
	Amount    decimal.Decimal
	Points    decimal.Decimal
	FetchedAt time.Time
}

// Matches reports whether the quote was computed for the given input pair.
func (q Quote) Matches(asset Asset, amount decimal.Decimal) bool {
	return q.Asset == asset && q.Amount.Equal(amount)
}
