package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TripStatus represents the current status of a trip.
type TripStatus string

const (
	TripStatusRequested       TripStatus = "REQUESTED"
	TripStatusDriverAccepted  TripStatus = "DRIVER_ACCEPTED"
	TripStatusEnrouteToPickup TripStatus = "ENROUTE_TO_PICKUP"
	TripStatusCustomerPicked  TripStatus = "CUSTOMER_PICKED"
	TripStatusAtDestination   TripStatus = "AT_DESTINATION"
	TripStatusCompleted       TripStatus = "COMPLETED"
	TripStatusCancelled       TripStatus = "CANCELLED"
)

// IsValid reports whether s is a known trip status.
func (s TripStatus) IsValid() bool {
	if s == TripStatusCancelled {
		return true
	}
	_, ok := forwardIndex[s]
	return ok
}

// Event names that are not status names.
const (
	EventBookingCreated   = "BOOKING_CREATED"
	EventBookingConfirmed = "BOOKING_CONFIRMED"
	EventReverted         = "REVERTED"
	EventRestored         = "RESTORED"
	EventPaymentRecorded  = "PAYMENT_RECORDED"
	EventPaymentConfirmed = "PAYMENT_CONFIRMED"
	EventPaymentFailed    = "PAYMENT_FAILED"
)

// Event is an immutable audit record on a trip.
type Event struct {
	ID          string
	TripID      string
	Name        string
	Description string
	FromStatus  TripStatus // empty for non-status events
	ToStatus    TripStatus
	Timestamp   time.Time
}

// Trip represents a booked ride between a customer and a driver.
type Trip struct {
	ID                string
	TransactionNumber string
	TenantID          string

	CustomerID   string
	DriverID     string
	DispatcherID string
	VehicleID    string

	PickupLocation      string
	DestinationLocation string
	ReturnLocation      string

	RideDurationHours int
	PaymentMethod     PaymentMethod

	TotalAmount decimal.Decimal
	Shares      Shares // computed once at booking, never recomputed
	Policy      Policy // snapshot used for Shares and RolePaid
	RolePaid    Shares
	PaidAmount  decimal.Decimal
	IsPaid      bool

	Status  TripStatus
	Version int64

	Events   []Event
	Payments []Payment

	CreatedAt time.Time
	UpdatedAt time.Time
}

// RoleDue returns the unpaid part of every role's share.
func (t *Trip) RoleDue() Shares {
	return t.Shares.Sub(t.RolePaid)
}

// LastEvent returns the most recent event, or nil.
func (t *Trip) LastEvent() *Event {
	if len(t.Events) == 0 {
		return nil
	}
	return &t.Events[len(t.Events)-1]
}

// Transition is the domain event emitted for every status change.
type Transition struct {
	TripID      string     `json:"trip_id"`
	TenantID    string     `json:"tenant_id"`
	FromStatus  TripStatus `json:"from_status"`
	ToStatus    TripStatus `json:"to_status"`
	Description string     `json:"description"`
	Timestamp   time.Time  `json:"timestamp"`
}
