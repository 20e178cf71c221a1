package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type SubmissionStatus string

const (
	SubmissionStatusPending   SubmissionStatus = "pending"
	SubmissionStatusConfirmed SubmissionStatus = "confirmed"
	SubmissionStatusFailed    SubmissionStatus = "failed"
)

// Terminal reports whether no further transition is possible.
func (s SubmissionStatus) Terminal() bool {
	return s == SubmissionStatusConfirmed || s == SubmissionStatusFailed
}

// SubmissionRecord tracks a broadcast deposit transaction. Key is the
// transaction hash on EVM and the signature on Solana.
type SubmissionRecord struct {
	ID          string
	Key         string
	Family      ChainFamily
	Asset       Asset
	Amount      decimal.Decimal
	Status      SubmissionStatus
	Error       string
	SubmittedAt time.Time
	UpdatedAt   time.Time
}

// SubmissionUpdate is a status transition observed on chain.
type SubmissionUpdate struct {
	Key    string
	Status SubmissionStatus
	Err    error
}
