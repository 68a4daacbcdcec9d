package ledger

import "errors"

var (
	// ErrInsufficientCredits is returned when a deduction asks for more than
	// the user's active balance. Expected outcome, not a system fault.
	ErrInsufficientCredits = errors.New("insufficient credits")

	// ErrInvalidAmount is returned when a deduction amount is <= 0
	ErrInvalidAmount = errors.New("invalid amount: must be greater than 0")

	// ErrInvalidBucketType is returned for an unknown bucket type on Grant
	ErrInvalidBucketType = errors.New("invalid bucket type")

	ErrInternal = errors.New("internal error")
)
