package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// HistoryEntry is a deposit recorded by the backend.
type HistoryEntry struct {
	Amount    decimal.Decimal `json:"amount"`
	Asset     Asset           `json:"asset"`
	Points    decimal.Decimal `json:"points"`
	Status    string          `json:"status"`
	Timestamp time.Time       `json:"timestamp"`
}
