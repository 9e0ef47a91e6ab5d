package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"ridedispatch/internal/repository"
)

// Store is a PostgreSQL implementation of repository.Store.
type Store struct {
	db *sql.DB
}

// NewStore creates a new PostgreSQL store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Repos returns repositories bound to the connection pool.
func (s *Store) Repos() repository.Repositories {
	return reposFor(s.db)
}

// WithinTx runs fn inside a READ COMMITTED transaction. Trip rows are
// serialized by GetForUpdate and the version check in Update.
func (s *Store) WithinTx(ctx context.Context, fn func(repository.Repositories) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(reposFor(tx)); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// ReportRepository returns the read-only report repository.
func (s *Store) ReportRepository() *ReportRepository {
	return NewReportRepository(s.db)
}

func reposFor(q Querier) repository.Repositories {
	events := &EventRepository{q: q}
	payments := &PaymentRepository{q: q}
	return repository.Repositories{
		Trips:    &TripRepository{q: q, events: events, payments: payments},
		Events:   events,
		Payments: payments,
		Policies: &PolicyRepository{q: q},
	}
}

var _ repository.Store = (*Store)(nil)
