package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/events"
	"ridedispatch/internal/observability"
	internalRedis "ridedispatch/internal/redis"
	"ridedispatch/internal/repository"
)

// TripMutator applies changes to a single trip. A mutation holds the trip's
// Redis lock and row lock, writes with a version check, and only after
// commit publishes transitions, records metrics and sends notifications.
type TripMutator struct {
	store     repository.Store
	locks     internalRedis.LockStoreInterface
	lockTTL   time.Duration
	publisher events.Publisher
	notifier  *NotificationService
	logger    *slog.Logger
}

// NewTripMutator creates a new TripMutator.
func NewTripMutator(
	store repository.Store,
	locks internalRedis.LockStoreInterface,
	lockTTL time.Duration,
	publisher events.Publisher,
	notifier *NotificationService,
	logger *slog.Logger,
) *TripMutator {
	return &TripMutator{
		store:     store,
		locks:     locks,
		lockTTL:   lockTTL,
		publisher: publisher,
		notifier:  notifier,
		logger:    logger,
	}
}

// mutationResult is the committed state of a mutation.
type mutationResult struct {
	trip        *domain.Trip
	transitions []domain.Transition
	payments    []domain.Payment
	applied     bool
}

type paymentState struct {
	status  domain.PaymentStatus
	gateway domain.GatewayRef
}

// mutate runs fn against the locked trip. A fn that leaves the trip
// unchanged commits nothing and yields applied=false.
func (m *TripMutator) mutate(ctx context.Context, tenantID, tripID, op string, fn func(trip *domain.Trip, now time.Time) error) (*mutationResult, error) {
	if tripID == "" {
		return nil, ErrInvalidTripID
	}

	token, err := m.locks.AcquireTripLock(ctx, tripID, m.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire trip lock: %w", err)
	}
	if token == "" {
		observability.ConflictsTotal.WithLabelValues(op).Inc()
		return nil, &ConflictError{TripID: tripID, Op: op}
	}
	defer func() {
		if err := m.locks.ReleaseTripLock(context.WithoutCancel(ctx), tripID, token); err != nil {
			m.logger.WarnContext(ctx, "release trip lock", "trip_id", tripID, "error", err)
		}
	}()

	var res mutationResult
	err = m.store.WithinTx(ctx, func(r repository.Repositories) error {
		trip, err := r.Trips.GetForUpdate(ctx, tripID)
		if err != nil {
			return notFound(err, ErrTripNotFound)
		}
		if trip.TenantID != tenantID {
			return ErrTripNotFound
		}

		version := trip.Version
		eventCount := len(trip.Events)
		before := make(map[string]paymentState, len(trip.Payments))
		for _, p := range trip.Payments {
			before[p.ID] = paymentState{status: p.Status, gateway: p.Gateway}
		}

		if err := fn(trip, time.Now().UTC()); err != nil {
			return err
		}
		res.trip = trip

		newEvents := trip.Events[eventCount:]
		var created, changed []domain.Payment
		for _, p := range trip.Payments {
			prev, seen := before[p.ID]
			switch {
			case !seen:
				created = append(created, p)
			case prev.status != p.Status || prev.gateway != p.Gateway:
				changed = append(changed, p)
			}
		}
		if len(newEvents) == 0 && len(created) == 0 && len(changed) == 0 {
			return nil
		}

		for i := range newEvents {
			if newEvents[i].ID == "" {
				newEvents[i].ID = uuid.New().String()
			}
		}

		if err := r.Trips.Update(ctx, trip, version); err != nil {
			return err
		}
		if err := r.Events.Append(ctx, newEvents...); err != nil {
			return err
		}
		for i := range created {
			if err := r.Payments.Create(ctx, &created[i]); err != nil {
				return err
			}
		}
		for i := range changed {
			if err := r.Payments.Update(ctx, &changed[i]); err != nil {
				return err
			}
		}

		res.applied = true
		res.payments = append(created, changed...)
		res.transitions = transitionsOf(trip, newEvents)
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			observability.ConflictsTotal.WithLabelValues(op).Inc()
			return nil, &ConflictError{TripID: tripID, Op: op}
		}
		return nil, err
	}

	m.afterCommit(ctx, &res)
	return &res, nil
}

func transitionsOf(trip *domain.Trip, evs []domain.Event) []domain.Transition {
	var out []domain.Transition
	for _, e := range evs {
		if e.ToStatus == "" {
			continue
		}
		out = append(out, domain.Transition{
			TripID:      trip.ID,
			TenantID:    trip.TenantID,
			FromStatus:  e.FromStatus,
			ToStatus:    e.ToStatus,
			Description: e.Description,
			Timestamp:   e.Timestamp,
		})
	}
	return out
}

// afterCommit runs side effects of a committed mutation. Failures are
// logged; the mutation itself already succeeded.
func (m *TripMutator) afterCommit(ctx context.Context, res *mutationResult) {
	for _, tr := range res.transitions {
		observability.TransitionsTotal.WithLabelValues(string(tr.FromStatus), string(tr.ToStatus)).Inc()

		err := m.publisher.Publish(ctx, tr)
		observability.EventsPublishedTotal.WithLabelValues(observability.Outcome(err)).Inc()
		if err != nil {
			m.logger.ErrorContext(ctx, "publish transition", "trip_id", tr.TripID, "to", tr.ToStatus, "error", err)
		}

		m.notifier.NotifyTransition(ctx, res.trip, tr)
	}

	for _, p := range res.payments {
		observability.PaymentsTotal.WithLabelValues(string(p.Method), string(p.Status)).Inc()
		if p.Status == domain.PaymentStatusSuccess {
			observability.SettledAmount.WithLabelValues(string(p.Method)).Add(p.Amount.InexactFloat64())
		}
		m.notifier.NotifyPayment(ctx, res.trip, p)
	}
}

// loadTrip reads a trip without locking and checks its tenant.
func (m *TripMutator) loadTrip(ctx context.Context, tenantID, tripID string) (*domain.Trip, error) {
	if tripID == "" {
		return nil, ErrInvalidTripID
	}
	trip, err := m.store.Repos().Trips.GetByID(ctx, tripID)
	if err != nil {
		return nil, notFound(err, ErrTripNotFound)
	}
	if trip.TenantID != tenantID {
		return nil, ErrTripNotFound
	}
	return trip, nil
}

// notFound replaces repository.ErrNotFound with a service sentinel.
func notFound(err, sentinel error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return sentinel
	}
	return err
}
