package tests

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/repository"
	"ridedispatch/internal/service"
)

// ──────────────────────────────────────────────
// 3. TRIP LIFECYCLE
// ──────────────────────────────────────────────

func TestAdvance_FullPathPublishesEachTransition(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	trip := h.book(t, tenant, "400")

	h.advanceTo(t, trip.ID, domain.TripStatusCompleted)

	stored := h.store.GetTrip(trip.ID)
	assert.Equal(t, domain.TripStatusCompleted, stored.Status)
	assert.EqualValues(t, 5, stored.Version)
	assert.Len(t, stored.Events, 7)

	published := h.pub.Transitions()
	require.Len(t, published, 5)
	assert.Equal(t, domain.TripStatusRequested, published[0].FromStatus)
	assert.Equal(t, domain.TripStatusDriverAccepted, published[0].ToStatus)
	assert.Equal(t, domain.TripStatusCompleted, published[4].ToStatus)
	for _, tr := range published {
		assert.Equal(t, trip.ID, tr.TripID)
		assert.Equal(t, tenant, tr.TenantID)
	}
	assert.False(t, h.locks.Held(trip.ID), "lock released after every mutation")
}

func TestAdvance_RepeatIsNoOp(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	trip := h.book(t, tenant, "400")

	first, err := h.trips.Advance(ctx, tenant, trip.ID, domain.TripStatusDriverAccepted, "accepted")
	require.NoError(t, err)
	assert.True(t, first.Applied)
	require.NotNil(t, first.Transition)
	assert.Equal(t, domain.TripStatusRequested, first.Transition.FromStatus)

	commits := h.store.CommitCount
	second, err := h.trips.Advance(ctx, tenant, trip.ID, domain.TripStatusDriverAccepted, "accepted again")
	require.NoError(t, err)
	assert.False(t, second.Applied)
	assert.Nil(t, second.Transition)
	assert.Equal(t, domain.TripStatusDriverAccepted, second.Trip.Status)

	stored := h.store.GetTrip(trip.ID)
	assert.Len(t, stored.Events, 3)
	assert.EqualValues(t, 1, stored.Version)
	assert.Len(t, h.pub.Transitions(), 1)
	assert.Equal(t, commits+1, h.store.CommitCount, "no-op commits an empty transaction")
}

func TestAdvance_RejectsSkipsAndBackwardMoves(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	trip := h.book(t, tenant, "400")
	h.advanceTo(t, trip.ID, domain.TripStatusDriverAccepted)
	published := len(h.pub.Transitions())

	_, err := h.trips.Advance(ctx, tenant, trip.ID, domain.TripStatusCustomerPicked, "skip")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = h.trips.Advance(ctx, tenant, trip.ID, domain.TripStatusRequested, "back")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = h.trips.Advance(ctx, tenant, trip.ID, "TELEPORTED", "x")
	assert.ErrorIs(t, err, service.ErrInvalidStatus)

	stored := h.store.GetTrip(trip.ID)
	assert.Equal(t, domain.TripStatusDriverAccepted, stored.Status)
	assert.Len(t, stored.Events, 3)
	assert.Len(t, h.pub.Transitions(), published, "rejected transitions are not published")
	assert.False(t, h.locks.Held(trip.ID))
}

func TestCompletedTripIsTerminal(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	trip := h.book(t, tenant, "400")
	h.advanceTo(t, trip.ID, domain.TripStatusCompleted)

	_, err := h.trips.Cancel(ctx, tenant, trip.ID, "too late")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	_, err = h.trips.Revert(ctx, tenant, trip.ID, "undo")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	_, err = h.trips.ApplyStatus(ctx, tenant, trip.ID, domain.TripStatusRequested, "")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	assert.Equal(t, domain.TripStatusCompleted, h.store.GetTrip(trip.ID).Status)
}

func TestApplyStatus_PicksOperation(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	trip := h.book(t, tenant, "400")

	steps := []struct {
		target domain.TripStatus
		event  string
	}{
		{domain.TripStatusDriverAccepted, string(domain.TripStatusDriverAccepted)},
		{domain.TripStatusEnrouteToPickup, string(domain.TripStatusEnrouteToPickup)},
		{domain.TripStatusDriverAccepted, domain.EventReverted},
		{domain.TripStatusCancelled, string(domain.TripStatusCancelled)},
		{domain.TripStatusRequested, domain.EventRestored},
	}
	for _, step := range steps {
		res, err := h.trips.ApplyStatus(ctx, tenant, trip.ID, step.target, "dispatcher update")
		require.NoError(t, err, step.target)
		assert.True(t, res.Applied)
		assert.Equal(t, step.target, res.Trip.Status)
		assert.Equal(t, step.event, res.Trip.LastEvent().Name, step.target)
	}

	res, err := h.trips.ApplyStatus(ctx, tenant, trip.ID, domain.TripStatusRequested, "")
	require.NoError(t, err)
	assert.False(t, res.Applied, "already there")
}

func TestCancelAndRestore_KeepShares(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	trip := h.book(t, tenant, "333.33")
	h.advanceTo(t, trip.ID, domain.TripStatusCustomerPicked)

	res, err := h.trips.Cancel(ctx, tenant, trip.ID, "breakdown")
	require.NoError(t, err)
	assert.Equal(t, domain.TripStatusCancelled, res.Trip.Status)

	again, err := h.trips.Cancel(ctx, tenant, trip.ID, "breakdown")
	require.NoError(t, err)
	assert.False(t, again.Applied)

	res, err = h.trips.Restore(ctx, tenant, trip.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TripStatusRequested, res.Trip.Status)
	for _, role := range domain.CommissionRoles {
		assert.True(t, res.Trip.Shares.Of(role).Equal(trip.Shares.Of(role)), role)
	}

	_, err = h.trips.Restore(ctx, tenant, trip.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestHistory(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	trip := h.book(t, tenant, "400")
	h.advanceTo(t, trip.ID, domain.TripStatusEnrouteToPickup)

	history, err := h.trips.History(context.Background(), tenant, trip.ID)
	require.NoError(t, err)

	assert.Equal(t, domain.TripStatusEnrouteToPickup, history.Status)
	require.Len(t, history.Events, 4)
	assert.Equal(t, domain.EventBookingCreated, history.Events[0].Name)
	assert.Equal(t, []domain.Action{
		{Name: domain.ActionAdvance, Target: domain.TripStatusCustomerPicked},
		{Name: domain.ActionRevert, Target: domain.TripStatusDriverAccepted},
		{Name: domain.ActionCancel, Target: domain.TripStatusCancelled},
	}, history.Actions)
}

// ──────────────────────────────────────────────
// 4. CONCURRENT WRITERS
// ──────────────────────────────────────────────

func TestMutation_LockHeldIsConflict(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	trip := h.book(t, tenant, "400")
	h.locks.Hold(trip.ID)
	txs := h.store.TxCount

	_, err := h.trips.Advance(context.Background(), tenant, trip.ID, domain.TripStatusDriverAccepted, "x")
	require.Error(t, err)
	assert.ErrorIs(t, err, service.ErrConflict)
	var ce *service.ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, trip.ID, ce.TripID)
	assert.Equal(t, "advance", ce.Op)

	assert.Equal(t, txs, h.store.TxCount, "no transaction without the lock")
	assert.Equal(t, domain.TripStatusRequested, h.store.GetTrip(trip.ID).Status)
}

func TestMutation_StaleVersionIsConflict(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	trip := h.book(t, tenant, "400")
	h.store.UpdateError = repository.ErrConflict

	_, err := h.trips.Advance(context.Background(), tenant, trip.ID, domain.TripStatusDriverAccepted, "x")
	assert.ErrorIs(t, err, service.ErrConflict)

	stored := h.store.GetTrip(trip.ID)
	assert.Equal(t, domain.TripStatusRequested, stored.Status)
	assert.Len(t, stored.Events, 2, "rolled back")
	assert.Empty(t, h.pub.Transitions(), "nothing published for a lost race")
	assert.False(t, h.locks.Held(trip.ID))
}

func TestMutation_PublishFailureDoesNotUndoCommit(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	trip := h.book(t, tenant, "400")
	h.pub.PublishError = errors.New("broker down")

	res, err := h.trips.Advance(context.Background(), tenant, trip.ID, domain.TripStatusDriverAccepted, "x")
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Equal(t, domain.TripStatusDriverAccepted, h.store.GetTrip(trip.ID).Status)
}

func TestMutation_ConcurrentAdvancesApplyOnce(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	trip := h.book(t, tenant, "400")

	const writers = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		applied   int
		conflicts int
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := h.trips.Advance(context.Background(), tenant, trip.ID, domain.TripStatusDriverAccepted, "race")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case errors.Is(err, service.ErrConflict):
				conflicts++
			case err != nil:
				t.Errorf("unexpected error: %v", err)
			case res.Applied:
				applied++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, applied)
	stored := h.store.GetTrip(trip.ID)
	assert.Equal(t, domain.TripStatusDriverAccepted, stored.Status)
	assert.Len(t, stored.Events, 3, "exactly one transition event")
	assert.Len(t, h.pub.Transitions(), 1)
	assert.False(t, h.locks.Held(trip.ID))
}
