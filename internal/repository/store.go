package repository

import "context"

// Repositories groups the repositories that share one connection or transaction.
type Repositories struct {
	Trips    TripRepository
	Events   EventRepository
	Payments PaymentRepository
	Policies PolicyRepository
}

// Store hands out repositories and runs units of work atomically.
type Store interface {
	// Repos returns repositories bound to the underlying connection pool.
	Repos() Repositories

	// WithinTx runs fn with repositories bound to a single transaction.
	// The transaction commits if fn returns nil and rolls back otherwise.
	WithinTx(ctx context.Context, fn func(Repositories) error) error
}
