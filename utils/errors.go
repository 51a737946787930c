package utils

import "errors"

// Settlement error taxonomy. These are returned to the command layer for
// user-facing display and are never retried automatically.
var (
	// ErrInsufficientFunds is returned when a debit exceeds the current balance.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInvalidAmount is returned when a bet string cannot be parsed into a
	// positive amount.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrGameInProgress is returned when a user already has an active round in
	// the same game family.
	ErrGameInProgress = errors.New("game already in progress")

	// ErrExternalService is returned when the chain explorer is unreachable or
	// returns garbage. Transient; the caller may retry a scan later.
	ErrExternalService = errors.New("external service error")
)
