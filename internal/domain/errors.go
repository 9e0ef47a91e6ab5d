package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidTransition is returned when a status change is not a legal edge.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrInvalidPolicy is returned when commission percentages do not sum to 100%.
	ErrInvalidPolicy = errors.New("invalid commission policy")

	// ErrOverpayment is returned when a payment would exceed the outstanding balance.
	ErrOverpayment = errors.New("payment exceeds outstanding balance")

	// ErrPaymentNotFound is returned when a payment id does not belong to the trip.
	ErrPaymentNotFound = errors.New("payment not found on trip")

	// ErrPaymentNotPending is returned when confirming or failing a settled payment.
	ErrPaymentNotPending = errors.New("payment is not pending")

	// ErrInvalidAmount is returned for zero or negative money amounts.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInvalidPaymentMethod is returned for an unknown payment method.
	ErrInvalidPaymentMethod = errors.New("invalid payment method")

	// ErrInvalidPayerType is returned for an unknown payer type.
	ErrInvalidPayerType = errors.New("invalid payer type")

	// ErrTripCancelled is returned when settling against a cancelled trip.
	ErrTripCancelled = errors.New("trip is cancelled")
)

// TransitionError describes a rejected status change.
type TransitionError struct {
	Op   string
	From TripStatus
	To   TripStatus
}

func (e *TransitionError) Error() string {
	if e.To == "" {
		return fmt.Sprintf("%s: cannot %s from %s", ErrInvalidTransition, e.Op, e.From)
	}
	return fmt.Sprintf("%s: cannot %s from %s to %s", ErrInvalidTransition, e.Op, e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// PolicyError describes why a commission policy was rejected.
type PolicyError struct {
	Reason string
}

func (e *PolicyError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidPolicy, e.Reason)
}

func (e *PolicyError) Unwrap() error { return ErrInvalidPolicy }

// OverpaymentError carries the balance figures behind a rejected payment.
type OverpaymentError struct {
	Amount      decimal.Decimal
	Paid        decimal.Decimal
	Total       decimal.Decimal
	Outstanding decimal.Decimal
}

func (e *OverpaymentError) Error() string {
	return fmt.Sprintf("%s: amount %s, outstanding %s (paid %s of %s)",
		ErrOverpayment, e.Amount.StringFixed(2), e.Outstanding.StringFixed(2),
		e.Paid.StringFixed(2), e.Total.StringFixed(2))
}

func (e *OverpaymentError) Unwrap() error { return ErrOverpayment }
