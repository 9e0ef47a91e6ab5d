package tests

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/logging"
	"ridedispatch/internal/service"
)

const tenant = "default"

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func defaultPolicy() domain.Policy {
	return domain.PolicyFromPercent(d("75"), d("2"), d("20"), d("3"))
}

// harness wires the services to in-memory fakes.
type harness struct {
	store    *MemStore
	locks    *MockLockStore
	cache    *MockPolicyCache
	pub      *MockPublisher
	razorpay *MockRazorpay
	stripe   *MockStripe

	policies *service.PolicyService
	bookings *service.BookingService
	trips    *service.TripService
	payments *service.PaymentService
	receipts *service.ReceiptService
	reports  *service.ReportService
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	logger := logging.Discard()
	h := &harness{
		store:    NewMemStore(),
		locks:    NewMockLockStore(),
		cache:    NewMockPolicyCache(),
		pub:      &MockPublisher{},
		razorpay: &MockRazorpay{ValidSignature: true},
		stripe:   NewMockStripe(),
	}

	notifier := service.NewNotificationService(logger)
	mutator := service.NewTripMutator(h.store, h.locks, 0, h.pub, notifier, logger)
	h.policies = service.NewPolicyService(h.store, h.cache, defaultPolicy(), logger)
	h.bookings = service.NewBookingService(h.store, h.policies, notifier, d("400"), logger)
	h.trips = service.NewTripService(mutator)
	h.payments = service.NewPaymentService(mutator, h.store, h.razorpay, h.stripe, "INR", logger)
	h.receipts = service.NewReceiptService(mutator, notifier)
	h.reports = service.NewReportService(h.store)
	return h
}

func bookingRequest(tenantID string, hours int) service.CreateBookingRequest {
	return service.CreateBookingRequest{
		TenantID:            tenantID,
		CustomerID:          "customer-1",
		DriverID:            "driver-1",
		DispatcherID:        "dispatcher-1",
		VehicleID:           "vehicle-1",
		PickupLocation:      "Airport",
		DestinationLocation: "Central Station",
		RideDurationHours:   hours,
	}
}

// book creates a booking for tenantID with an explicit total.
func (h *harness) book(t *testing.T, tenantID, total string) *domain.Trip {
	t.Helper()
	req := bookingRequest(tenantID, 1)
	amount := d(total)
	req.TotalAmount = &amount
	trip, err := h.bookings.CreateBooking(context.Background(), req)
	require.NoError(t, err)
	return trip
}

// advanceTo walks a trip forward until it reaches target.
func (h *harness) advanceTo(t *testing.T, tripID string, target domain.TripStatus) {
	t.Helper()
	ctx := context.Background()
	for {
		trip := h.store.GetTrip(tripID)
		if trip.Status == target {
			return
		}
		next, ok := domain.NextStatus(trip.Status)
		require.True(t, ok, "cannot advance past %s", trip.Status)
		_, err := h.trips.Advance(ctx, trip.TenantID, tripID, next, "step")
		require.NoError(t, err)
	}
}
