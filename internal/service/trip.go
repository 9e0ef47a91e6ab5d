package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/observability"
)

// TripService drives trips through the status state machine.
type TripService struct {
	mutator *TripMutator
}

// NewTripService creates a new TripService.
func NewTripService(mutator *TripMutator) *TripService {
	return &TripService{mutator: mutator}
}

// TransitionResult is the outcome of a status operation. Applied is false
// when the trip was already in the requested status.
type TransitionResult struct {
	Trip       *domain.Trip
	Transition *domain.Transition
	Applied    bool
}

func (s *TripService) transition(ctx context.Context, tenantID, tripID, op string, fn func(*domain.Trip, time.Time) error) (*TransitionResult, error) {
	res, err := s.mutator.mutate(ctx, tenantID, tripID, op, fn)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) {
			observability.RejectedTransitionsTotal.WithLabelValues(op).Inc()
		}
		return nil, err
	}

	out := &TransitionResult{Trip: res.trip, Applied: res.applied}
	if n := len(res.transitions); n > 0 {
		out.Transition = &res.transitions[n-1]
	}
	return out, nil
}

// Advance moves the trip one step forward to target. Repeating an advance
// to the current status succeeds without a new event.
func (s *TripService) Advance(ctx context.Context, tenantID, tripID string, target domain.TripStatus, description string) (*TransitionResult, error) {
	if !target.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, target)
	}
	return s.transition(ctx, tenantID, tripID, "advance", func(t *domain.Trip, now time.Time) error {
		if t.Status == target {
			return nil
		}
		_, err := t.Advance(target, description, now)
		return err
	})
}

// Revert moves the trip one step back along the forward path.
func (s *TripService) Revert(ctx context.Context, tenantID, tripID, description string) (*TransitionResult, error) {
	return s.transition(ctx, tenantID, tripID, "revert", func(t *domain.Trip, now time.Time) error {
		_, err := t.Revert(description, now)
		return err
	})
}

// Cancel moves a non-terminal trip to CANCELLED. Cancelling a cancelled
// trip succeeds without a new event.
func (s *TripService) Cancel(ctx context.Context, tenantID, tripID, reason string) (*TransitionResult, error) {
	return s.transition(ctx, tenantID, tripID, "cancel", func(t *domain.Trip, now time.Time) error {
		if t.Status == domain.TripStatusCancelled {
			return nil
		}
		_, err := t.Cancel(reason, now)
		return err
	})
}

// Restore returns a cancelled trip to REQUESTED.
func (s *TripService) Restore(ctx context.Context, tenantID, tripID string) (*TransitionResult, error) {
	return s.transition(ctx, tenantID, tripID, "restore", func(t *domain.Trip, now time.Time) error {
		_, err := t.RestoreFromCancelled(now)
		return err
	})
}

// ApplyStatus moves the trip to status using whichever operation connects
// the current status to it: advance, revert, cancel or restore.
func (s *TripService) ApplyStatus(ctx context.Context, tenantID, tripID string, status domain.TripStatus, description string) (*TransitionResult, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	return s.transition(ctx, tenantID, tripID, "apply_status", func(t *domain.Trip, now time.Time) error {
		var err error
		prev, hasPrev := domain.PreviousStatus(t.Status)
		switch {
		case t.Status == status:
			return nil
		case status == domain.TripStatusCancelled:
			_, err = t.Cancel(description, now)
		case t.Status == domain.TripStatusCancelled && status == domain.TripStatusRequested:
			_, err = t.RestoreFromCancelled(now)
		case hasPrev && prev == status:
			_, err = t.Revert(description, now)
		default:
			_, err = t.Advance(status, description, now)
		}
		return err
	})
}

// TripHistory is a trip's event log and the actions legal from its status.
type TripHistory struct {
	TripID  string
	Status  domain.TripStatus
	Events  []domain.Event
	Actions []domain.Action
}

// History returns the event log of a trip, oldest first.
func (s *TripService) History(ctx context.Context, tenantID, tripID string) (*TripHistory, error) {
	trip, err := s.mutator.loadTrip(ctx, tenantID, tripID)
	if err != nil {
		return nil, err
	}
	return &TripHistory{
		TripID:  trip.ID,
		Status:  trip.Status,
		Events:  trip.Events,
		Actions: domain.AvailableActions(trip.Status),
	}, nil
}
