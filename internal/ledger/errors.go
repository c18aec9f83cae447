package ledger

import "errors"

// Rejections. None of these is fatal: the offending command has no effect
// and processing continues with the next one.
var (
	ErrUnknownType          = errors.New("unknown transaction type")
	ErrMissingAmount        = errors.New("missing amount")
	ErrInvalidAmount        = errors.New("amount must be positive")
	ErrUnknownAccount       = errors.New("unknown account")
	ErrUnknownTransaction   = errors.New("unknown transaction")
	ErrDuplicateTransaction = errors.New("duplicate transaction id")
	ErrInsufficientFunds    = errors.New("insufficient available funds")
	ErrAccountLocked        = errors.New("account is locked")
	ErrNotDisputable        = errors.New("transaction is not disputable")
)
