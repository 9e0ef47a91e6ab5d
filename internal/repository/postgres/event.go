package postgres

import (
	"context"
	"database/sql"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/repository"
)

// EventRepository is a PostgreSQL implementation of repository.EventRepository.
type EventRepository struct {
	q Querier
}

// Append inserts events in order. The seq column preserves insertion order
// for events sharing a timestamp.
func (r *EventRepository) Append(ctx context.Context, events ...domain.Event) error {
	query := `
		INSERT INTO trip_events (id, trip_id, name, description, from_status, to_status, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	for _, e := range events {
		_, err := r.q.ExecContext(ctx, query,
			e.ID, e.TripID, e.Name, e.Description,
			nullString(string(e.FromStatus)), nullString(string(e.ToStatus)),
			e.Timestamp,
		)
		if err != nil {
			return mapError(err)
		}
	}
	return nil
}

// ListByTrip retrieves a trip's events in insertion order.
func (r *EventRepository) ListByTrip(ctx context.Context, tripID string) ([]domain.Event, error) {
	query := `
		SELECT id, trip_id, name, description, from_status, to_status, occurred_at
		FROM trip_events WHERE trip_id = $1 ORDER BY seq
	`

	rows, err := r.q.QueryContext(ctx, query, tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var (
			e        domain.Event
			from, to sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.TripID, &e.Name, &e.Description, &from, &to, &e.Timestamp); err != nil {
			return nil, err
		}
		e.FromStatus = domain.TripStatus(from.String)
		e.ToStatus = domain.TripStatus(to.String)
		events = append(events, e)
	}

	return events, rows.Err()
}

var _ repository.EventRepository = (*EventRepository)(nil)
