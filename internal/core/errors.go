package core

import "errors"

// Error taxonomy shared by every layer. Callers classify with errors.Is;
// the HTTP layer maps each one to a status code.
var (
	ErrUnauthenticated   = errors.New("unauthenticated")
	ErrInvalidCredential = errors.New("invalid credential")
	ErrInvalidInput      = errors.New("invalid input")

	// ErrNotFoundOrForbidden covers both a missing record and a record owned
	// by someone else. The two cases must stay indistinguishable.
	ErrNotFoundOrForbidden = errors.New("transaction not found")
	ErrStorage             = errors.New("storage error")
	ErrUpstream            = errors.New("upstream unavailable")
)

var (
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrNegativeAmount = errors.New("amount must not be negative")
	ErrAmountTooLarge = errors.New("amount exceeds maximum")
	ErrInvalidDate    = errors.New("invalid date")
	ErrMissingDate    = errors.New("date is required")
)
