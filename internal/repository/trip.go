package repository

import (
	"context"
	"time"

	"ridedispatch/internal/domain"
)

// TripFilter narrows trip listings.
type TripFilter struct {
	TenantID string
	Status   domain.TripStatus
	DriverID string
	Unpaid   bool
	Limit    int
	Offset   int
}

// TripRepository defines the persistence operations for trips.
type TripRepository interface {
	// Create persists a new trip together with its events and payments.
	Create(ctx context.Context, trip *domain.Trip) error

	// GetByID retrieves a trip with its events and payments.
	GetByID(ctx context.Context, id string) (*domain.Trip, error)

	// GetForUpdate retrieves a trip and locks its row until the transaction ends.
	GetForUpdate(ctx context.Context, id string) (*domain.Trip, error)

	// List retrieves trips without events or payments, newest first.
	List(ctx context.Context, filter TripFilter) ([]*domain.Trip, error)

	// Update writes the trip if its stored version equals expectedVersion
	// and bumps the version. Returns ErrConflict otherwise.
	Update(ctx context.Context, trip *domain.Trip, expectedVersion int64) error

	// NextTransactionNumber allocates a human-readable transaction number.
	NextTransactionNumber(ctx context.Context) (string, error)
}

// ReportFilter narrows report aggregation.
type ReportFilter struct {
	TenantID     string
	DriverID     string
	DispatcherID string
	From         time.Time
	To           time.Time
}
