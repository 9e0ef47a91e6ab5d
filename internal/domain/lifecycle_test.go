package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func newTestTrip(t *testing.T, total string) *Trip {
	t.Helper()
	trip, err := NewTrip(Booking{
		ID:                  "trip-1",
		TransactionNumber:   "TXN-00001",
		TenantID:            "default",
		CustomerID:          "customer-1",
		DriverID:            "driver-1",
		DispatcherID:        "dispatcher-1",
		VehicleID:           "vehicle-1",
		PickupLocation:      "Airport",
		DestinationLocation: "Station",
		RideDurationHours:   1,
		TotalAmount:         d(total),
	}, standardPolicy(), testNow)
	require.NoError(t, err)
	return trip
}

func tripAt(t *testing.T, status TripStatus) *Trip {
	t.Helper()
	trip := newTestTrip(t, "400")
	trip.Status = status
	return trip
}

func TestNewTrip_StartsRequestedWithCreationEvents(t *testing.T) {
	t.Parallel()

	trip := newTestTrip(t, "400")

	assert.Equal(t, TripStatusRequested, trip.Status)
	require.Len(t, trip.Events, 2)
	assert.Equal(t, EventBookingCreated, trip.Events[0].Name)
	assert.Equal(t, EventBookingConfirmed, trip.Events[1].Name)
	assert.True(t, trip.Shares.Sum().Equal(trip.TotalAmount))
	assert.Equal(t, PaymentMethodCash, trip.PaymentMethod)
}

func TestNewTrip_ValidatesBooking(t *testing.T) {
	t.Parallel()

	_, err := NewTrip(Booking{PickupLocation: "A", DestinationLocation: "B", RideDurationHours: 1}, standardPolicy(), testNow)
	assert.ErrorIs(t, err, ErrMissingParty)

	_, err = NewTrip(Booking{
		CustomerID: "c", DriverID: "d", DispatcherID: "p", VehicleID: "v",
		PickupLocation: "A", DestinationLocation: "B",
	}, standardPolicy(), testNow)
	assert.ErrorIs(t, err, ErrInvalidDuration)
}

func TestAdvance_FullForwardPath(t *testing.T) {
	t.Parallel()

	trip := newTestTrip(t, "400")
	for _, target := range forwardPath[1:] {
		from := trip.Status
		tr, err := trip.Advance(target, "step", testNow)
		require.NoError(t, err)
		assert.Equal(t, from, tr.FromStatus)
		assert.Equal(t, target, tr.ToStatus)
		assert.Equal(t, trip.ID, tr.TripID)
		assert.Equal(t, target, trip.Status)
		assert.Equal(t, target, trip.LastEvent().ToStatus)
		assert.Equal(t, string(target), trip.LastEvent().Name)
	}
	assert.Equal(t, TripStatusCompleted, trip.Status)
	assert.Len(t, trip.Events, 2+len(forwardPath)-1)
}

func TestAdvance_ForwardOnlyLegality(t *testing.T) {
	t.Parallel()

	all := append(append([]TripStatus{}, forwardPath...), TripStatusCancelled)
	for _, from := range forwardPath {
		next, hasNext := NextStatus(from)
		for _, target := range all {
			if hasNext && target == next {
				continue
			}
			if target == TripStatusCancelled && from != TripStatusCompleted {
				continue
			}
			trip := tripAt(t, from)
			events := len(trip.Events)

			_, err := trip.Advance(target, "x", testNow)

			assert.ErrorIs(t, err, ErrInvalidTransition, "%s -> %s", from, target)
			assert.Equal(t, from, trip.Status, "status must not change")
			assert.Len(t, trip.Events, events, "no event on rejected transition")
		}
	}
}

func TestAdvance_SkipIsRejected(t *testing.T) {
	t.Parallel()

	trip := newTestTrip(t, "400")
	_, err := trip.Advance(TripStatusDriverAccepted, "accepted", testNow)
	require.NoError(t, err)

	_, err = trip.Advance(TripStatusCustomerPicked, "skip", testNow)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	var te *TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, TripStatusDriverAccepted, te.From)
	assert.Equal(t, TripStatusCustomerPicked, te.To)
}

func TestTerminalLock_Completed(t *testing.T) {
	t.Parallel()

	trip := tripAt(t, TripStatusCompleted)

	_, err := trip.Advance(TripStatusCancelled, "late", testNow)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = trip.Advance(TripStatusCompleted, "again", testNow)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = trip.Revert("back", testNow)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = trip.Cancel("no", testNow)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = trip.RestoreFromCancelled(testNow)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	assert.Equal(t, TripStatusCompleted, trip.Status)
}

func TestRevert(t *testing.T) {
	t.Parallel()

	cases := map[TripStatus]TripStatus{
		TripStatusDriverAccepted:  TripStatusRequested,
		TripStatusEnrouteToPickup: TripStatusDriverAccepted,
		TripStatusCustomerPicked:  TripStatusEnrouteToPickup,
		TripStatusAtDestination:   TripStatusCustomerPicked,
	}
	for from, want := range cases {
		trip := tripAt(t, from)
		tr, err := trip.Revert("undo", testNow)
		require.NoError(t, err, from)
		assert.Equal(t, want, trip.Status)
		assert.Equal(t, from, tr.FromStatus)
		assert.Equal(t, EventReverted, trip.LastEvent().Name)
	}

	for _, from := range []TripStatus{TripStatusRequested, TripStatusCompleted, TripStatusCancelled} {
		trip := tripAt(t, from)
		_, err := trip.Revert("undo", testNow)
		assert.ErrorIs(t, err, ErrInvalidTransition, from)
		assert.Equal(t, from, trip.Status)
	}
}

func TestCancel_FromEveryNonTerminalState(t *testing.T) {
	t.Parallel()

	for _, from := range forwardPath[:len(forwardPath)-1] {
		trip := tripAt(t, from)
		_, err := trip.Cancel("customer no-show", testNow)
		require.NoError(t, err, from)
		assert.Equal(t, TripStatusCancelled, trip.Status)
		assert.Equal(t, "Cancelled: customer no-show", trip.LastEvent().Description)
	}

	trip := tripAt(t, TripStatusCancelled)
	_, err := trip.Cancel("twice", testNow)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCancelThenRestore_RoundTrip(t *testing.T) {
	t.Parallel()

	trip := newTestTrip(t, "400")
	_, err := trip.Advance(TripStatusDriverAccepted, "accepted", testNow)
	require.NoError(t, err)

	shares := trip.Shares
	total := trip.TotalAmount
	events := len(trip.Events)

	_, err = trip.Cancel("x", testNow)
	require.NoError(t, err)
	tr, err := trip.RestoreFromCancelled(testNow)
	require.NoError(t, err)

	assert.Equal(t, TripStatusRequested, trip.Status)
	assert.Equal(t, TripStatusCancelled, tr.FromStatus)
	assert.Len(t, trip.Events, events+2)
	assert.Equal(t, EventRestored, trip.LastEvent().Name)
	assert.True(t, trip.TotalAmount.Equal(total))
	for _, role := range CommissionRoles {
		assert.True(t, trip.Shares.Of(role).Equal(shares.Of(role)))
	}
}

func TestRestore_OnlyFromCancelled(t *testing.T) {
	t.Parallel()

	for _, from := range forwardPath {
		trip := tripAt(t, from)
		_, err := trip.RestoreFromCancelled(testNow)
		assert.ErrorIs(t, err, ErrInvalidTransition, from)
	}
}

func TestAvailableActions(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []Action{
		{Name: ActionAdvance, Target: TripStatusDriverAccepted},
		{Name: ActionCancel, Target: TripStatusCancelled},
	}, AvailableActions(TripStatusRequested))

	assert.Equal(t, []Action{
		{Name: ActionAdvance, Target: TripStatusCompleted},
		{Name: ActionRevert, Target: TripStatusCustomerPicked},
		{Name: ActionCancel, Target: TripStatusCancelled},
	}, AvailableActions(TripStatusAtDestination))

	assert.Empty(t, AvailableActions(TripStatusCompleted))
	assert.Equal(t, []Action{{Name: ActionRestore, Target: TripStatusRequested}}, AvailableActions(TripStatusCancelled))
}
