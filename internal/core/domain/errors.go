package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidAmount is returned before any network call when amount <= 0.
	ErrInvalidAmount = errors.New("you must set the amount to deposit")

	// ErrUserCancelled is returned when a wallet prompt is rejected.
	ErrUserCancelled = errors.New("request rejected in wallet")

	// ErrWalletNotConnected is returned when a chain action needs a wallet
	// that is still not connected after the connect prompt.
	ErrWalletNotConnected = errors.New("wallet not connected")

	// ErrNoProvenAddress is returned when association is attempted while the
	// identity has no address on either chain.
	ErrNoProvenAddress = errors.New("no associated address to prove ownership with")

	// ErrWorkflowBusy is returned when a deposit is already in flight.
	ErrWorkflowBusy = errors.New("a deposit is already in progress")

	// ErrStaleQuote is returned when a newer quote request superseded this one.
	ErrStaleQuote = errors.New("quote superseded by a newer request")
)

// AssociationConflictError means the address is bound to another identity.
type AssociationConflictError struct {
	Address string
	Family  ChainFamily
}

func (e *AssociationConflictError) Error() string {
	return fmt.Sprintf(
		"attempted to associate an address that is already associated to another account: %s",
		e.Address,
	)
}

// TransportError wraps a network or backend failure.
type TransportError struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Body != "":
		return fmt.Sprintf("%s: http %d: %s", e.Op, e.StatusCode, e.Body)
	default:
		return fmt.Sprintf("%s: http %d", e.Op, e.StatusCode)
	}
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// BuildError is a backend failure while building a deposit payload.
type BuildError struct {
	Asset Asset
	Err   error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("build %s deposit: %v", e.Asset, e.Err)
}

func (e *BuildError) Unwrap() error {
	return e.Err
}

// ChainRejectedError means the transaction failed or reverted on chain.
type ChainRejectedError struct {
	Family ChainFamily
	Key    string
	Reason string
}

func (e *ChainRejectedError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s transaction rejected: %s", e.Family, e.Reason)
	}
	return fmt.Sprintf("%s transaction %s rejected: %s", e.Family, e.Key, e.Reason)
}

// IsRecoverable reports whether the user can retry after err without
// changing anything on chain. Chain rejections are final for that
// transaction.
func IsRecoverable(err error) bool {
	if err == nil {
		return false
	}
	var rejected *ChainRejectedError
	if errors.As(err, &rejected) {
		return false
	}
	var conflict *AssociationConflictError
	var transport *TransportError
	var build *BuildError
	switch {
	case errors.As(err, &conflict), errors.As(err, &transport), errors.As(err, &build):
		return true
	case errors.Is(err, ErrUserCancelled), errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrStaleQuote):
		return true
	}
	return false
}
