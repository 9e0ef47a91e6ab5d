package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/observability"
	"ridedispatch/internal/repository"
)

// BookingService creates and reads trips.
type BookingService struct {
	store      repository.Store
	policies   *PolicyService
	notifier   *NotificationService
	hourlyRate decimal.Decimal
	logger     *slog.Logger
}

// NewBookingService creates a new BookingService.
func NewBookingService(
	store repository.Store,
	policies *PolicyService,
	notifier *NotificationService,
	hourlyRate decimal.Decimal,
	logger *slog.Logger,
) *BookingService {
	return &BookingService{
		store:      store,
		policies:   policies,
		notifier:   notifier,
		hourlyRate: hourlyRate,
		logger:     logger,
	}
}

// CreateBookingRequest contains the parameters for creating a booking.
type CreateBookingRequest struct {
	TenantID            string
	CustomerID          string
	DriverID            string
	DispatcherID        string
	VehicleID           string
	PickupLocation      string
	DestinationLocation string
	ReturnLocation      string
	RideDurationHours   int
	PaymentMethod       domain.PaymentMethod
	// TotalAmount overrides the hourly-rate price when set.
	TotalAmount *decimal.Decimal
}

// Estimate is an unsaved price and split preview.
type Estimate struct {
	TotalAmount decimal.Decimal
	Shares      domain.Shares
	Policy      domain.Policy
}

// price returns the booking total: an explicit amount, or the hourly rate
// times the duration.
func (s *BookingService) price(hours int, explicit *decimal.Decimal) (decimal.Decimal, error) {
	if explicit != nil {
		if !explicit.IsPositive() {
			return decimal.Zero, fmt.Errorf("%w: total must be positive", domain.ErrInvalidAmount)
		}
		return *explicit, nil
	}
	if hours <= 0 {
		return decimal.Zero, domain.ErrInvalidDuration
	}
	return s.hourlyRate.Mul(decimal.NewFromInt(int64(hours))).Round(2), nil
}

// Estimate previews the total and shares under the tenant's active policy.
// Nothing is persisted; a later booking recomputes with the policy active then.
func (s *BookingService) Estimate(ctx context.Context, tenantID string, hours int, total *decimal.Decimal) (*Estimate, error) {
	amount, err := s.price(hours, total)
	if err != nil {
		return nil, err
	}

	policy, err := s.policies.ActivePolicy(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	shares, err := domain.ComputeShares(amount, policy)
	if err != nil {
		return nil, err
	}

	return &Estimate{TotalAmount: amount, Shares: shares, Policy: policy}, nil
}

// CreateBooking prices the booking, freezes its shares under the active
// policy and stores it in REQUESTED state.
func (s *BookingService) CreateBooking(ctx context.Context, req CreateBookingRequest) (*domain.Trip, error) {
	total, err := s.price(req.RideDurationHours, req.TotalAmount)
	if err != nil {
		return nil, err
	}

	policy, err := s.policies.ActivePolicy(ctx, req.TenantID)
	if err != nil {
		return nil, err
	}

	booking := domain.Booking{
		ID:                  uuid.New().String(),
		TenantID:            req.TenantID,
		CustomerID:          req.CustomerID,
		DriverID:            req.DriverID,
		DispatcherID:        req.DispatcherID,
		VehicleID:           req.VehicleID,
		PickupLocation:      req.PickupLocation,
		DestinationLocation: req.DestinationLocation,
		ReturnLocation:      req.ReturnLocation,
		RideDurationHours:   req.RideDurationHours,
		PaymentMethod:       req.PaymentMethod,
		TotalAmount:         total,
	}
	if err := booking.Validate(); err != nil {
		return nil, err
	}

	var trip *domain.Trip
	err = s.store.WithinTx(ctx, func(r repository.Repositories) error {
		number, err := r.Trips.NextTransactionNumber(ctx)
		if err != nil {
			return err
		}
		booking.TransactionNumber = number

		trip, err = domain.NewTrip(booking, policy, time.Now().UTC())
		if err != nil {
			return err
		}
		for i := range trip.Events {
			trip.Events[i].ID = uuid.New().String()
		}

		return r.Trips.Create(ctx, trip)
	})
	if err != nil {
		return nil, err
	}

	observability.BookingsTotal.WithLabelValues(trip.TenantID).Inc()
	s.logger.InfoContext(ctx, "booking created",
		"trip_id", trip.ID,
		"transaction_number", trip.TransactionNumber,
		"tenant_id", trip.TenantID,
		"total", trip.TotalAmount.StringFixed(2),
		"policy_version", trip.Policy.Version,
	)
	s.notifier.NotifyBookingConfirmed(ctx, trip)

	return trip, nil
}

// GetBooking returns a trip with its events and payments.
func (s *BookingService) GetBooking(ctx context.Context, tenantID, tripID string) (*domain.Trip, error) {
	if tripID == "" {
		return nil, ErrInvalidTripID
	}
	trip, err := s.store.Repos().Trips.GetByID(ctx, tripID)
	if err != nil {
		return nil, notFound(err, ErrTripNotFound)
	}
	if trip.TenantID != tenantID {
		return nil, ErrTripNotFound
	}
	return trip, nil
}

// ListBookings returns the tenant's trips, newest first.
func (s *BookingService) ListBookings(ctx context.Context, filter repository.TripFilter) ([]*domain.Trip, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, filter.Status)
	}
	return s.store.Repos().Trips.List(ctx, filter)
}
