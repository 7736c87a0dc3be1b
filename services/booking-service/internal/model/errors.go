package model

import "errors"

// Sentinel errors returned by every core operation. Callers match with errors.Is;
// the HTTP layer maps each one to a distinct status and code.
var (
	ErrNotAuthenticated  = errors.New("not authenticated")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrNotFound          = errors.New("not found")
	ErrSlotUnavailable   = errors.New("slot unavailable")
	ErrDepositRequired   = errors.New("deposit required")
	ErrPaymentDeclined   = errors.New("payment declined")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrInvalidArgument   = errors.New("invalid argument")
)
