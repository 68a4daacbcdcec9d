package payment

import "errors"

var (
	ErrPaymentNotFound  = errors.New("payment not found")
	ErrInvalidSignature = errors.New("callback signature mismatch")
	ErrAmountMismatch   = errors.New("callback amount does not match payment")
	ErrPackUnavailable  = errors.New("credit pack is not available for purchase")
)
