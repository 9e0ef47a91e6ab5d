package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrMissingParty is returned when a booking lacks a customer, driver,
	// dispatcher or vehicle reference.
	ErrMissingParty = errors.New("booking requires customer, driver, dispatcher and vehicle")

	// ErrMissingRoute is returned when pickup or destination is empty.
	ErrMissingRoute = errors.New("booking requires pickup and destination")

	// ErrInvalidDuration is returned for a non-positive ride duration.
	ErrInvalidDuration = errors.New("ride duration must be a positive number of hours")
)

// Booking holds everything needed to create a trip.
type Booking struct {
	ID                  string
	TransactionNumber   string
	TenantID            string
	CustomerID          string
	DriverID            string
	DispatcherID        string
	VehicleID           string
	PickupLocation      string
	DestinationLocation string
	ReturnLocation      string
	RideDurationHours   int
	PaymentMethod       PaymentMethod
	TotalAmount         decimal.Decimal
}

// Validate checks the booking fields that do not depend on pricing.
func (b Booking) Validate() error {
	if b.CustomerID == "" || b.DriverID == "" || b.DispatcherID == "" || b.VehicleID == "" {
		return ErrMissingParty
	}
	if b.PickupLocation == "" || b.DestinationLocation == "" {
		return ErrMissingRoute
	}
	if b.RideDurationHours <= 0 {
		return ErrInvalidDuration
	}
	if b.PaymentMethod != "" && !b.PaymentMethod.IsValid() {
		return ErrInvalidPaymentMethod
	}
	return nil
}

// NewTrip creates a REQUESTED trip and computes its shares once.
func NewTrip(b Booking, policy Policy, now time.Time) (*Trip, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	shares, err := ComputeShares(b.TotalAmount, policy)
	if err != nil {
		return nil, err
	}

	method := b.PaymentMethod
	if method == "" {
		method = PaymentMethodCash
	}

	trip := &Trip{
		ID:                  b.ID,
		TransactionNumber:   b.TransactionNumber,
		TenantID:            b.TenantID,
		CustomerID:          b.CustomerID,
		DriverID:            b.DriverID,
		DispatcherID:        b.DispatcherID,
		VehicleID:           b.VehicleID,
		PickupLocation:      b.PickupLocation,
		DestinationLocation: b.DestinationLocation,
		ReturnLocation:      b.ReturnLocation,
		RideDurationHours:   b.RideDurationHours,
		PaymentMethod:       method,
		TotalAmount:         b.TotalAmount,
		Shares:              shares,
		Policy:              policy,
		PaidAmount:          decimal.Zero,
		Status:              TripStatusRequested,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	trip.appendEvent(EventBookingCreated, "Dispatcher created booking with pickup/drop details", now)
	trip.appendEvent(EventBookingConfirmed, "Dispatcher confirmed booking to driver and customer", now)
	return trip, nil
}
