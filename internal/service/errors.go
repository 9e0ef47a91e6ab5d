package service

import (
	"errors"
	"fmt"
)

var (
	// ErrTripNotFound is returned when a trip does not exist for the tenant.
	ErrTripNotFound = errors.New("trip not found")

	// ErrPaymentNotFound is returned when a payment does not exist for the tenant.
	ErrPaymentNotFound = errors.New("payment not found")

	// ErrInvalidTripID is returned when trip ID is empty.
	ErrInvalidTripID = errors.New("invalid trip id")

	// ErrInvalidPaymentID is returned when payment ID is empty.
	ErrInvalidPaymentID = errors.New("invalid payment id")

	// ErrInvalidStatus is returned for an unknown target status.
	ErrInvalidStatus = errors.New("invalid trip status")

	// ErrConflict is returned when a concurrent writer changed the trip first.
	// The caller may retry.
	ErrConflict = errors.New("trip was modified concurrently")

	// ErrGatewayDisabled is returned when a gateway has no credentials configured.
	ErrGatewayDisabled = errors.New("payment gateway is not enabled")

	// ErrGatewayFailure is returned when a gateway call fails. The attempt is
	// kept as a FAILED payment.
	ErrGatewayFailure = errors.New("payment gateway call failed")

	// ErrInvalidSignature is returned when a Razorpay checkout signature does not verify.
	ErrInvalidSignature = errors.New("invalid payment signature")

	// ErrPaymentNotSettled is returned when the gateway has not finished processing.
	ErrPaymentNotSettled = errors.New("payment is still processing at the gateway")
)

// ConflictError reports which trip mutation lost a race.
type ConflictError struct {
	TripID string
	Op     string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s on trip %s: %v", e.Op, e.TripID, ErrConflict)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }
