package services

import (
	"errors"
	"fmt"
)

// Service-level error taxonomy. Handlers translate these to HTTP codes;
// nothing below this layer is retried automatically. Retry policy belongs
// to the caller (retry ErrBusy with backoff, never retry an overpayment).
var (
	// ErrValidation covers malformed or out-of-range arguments.
	ErrValidation = errors.New("validation error")

	// ErrNotFound means a referenced order/invoice/stage/material does not exist.
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidTransition means the entity's current state forbids the write,
	// e.g. pausing a completed stage or paying a cancelled invoice.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrBusy means the per-invoice critical section could not be entered in
	// time. Not the same condition as an overpayment rejection: the payment
	// was never evaluated against the balance.
	ErrBusy = errors.New("resource is busy")
)

// OverpaymentError rejects a payment larger than the invoice's open balance.
// It carries the balance computed inside the critical section so callers can
// surface it.
type OverpaymentError struct {
	Balance float64
}

func (e *OverpaymentError) Error() string {
	return fmt.Sprintf("payment amount exceeds the open balance of %.2f", e.Balance)
}
