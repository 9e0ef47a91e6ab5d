package repository

import (
	"context"

	"ridedispatch/internal/domain"
)

// EventRepository stores the append-only trip event log.
type EventRepository interface {
	// Append persists new events. Existing events are never modified.
	Append(ctx context.Context, events ...domain.Event) error

	// ListByTrip retrieves a trip's events, oldest first.
	ListByTrip(ctx context.Context, tripID string) ([]domain.Event, error)
}
