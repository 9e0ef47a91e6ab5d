package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/repository"
)

// TripRepository is a PostgreSQL implementation of repository.TripRepository.
type TripRepository struct {
	q        Querier
	events   *EventRepository
	payments *PaymentRepository
}

const tripColumns = `
	id, transaction_number, tenant_id, customer_id, driver_id, dispatcher_id, vehicle_id,
	pickup_location, destination_location, return_location, ride_duration_hours, payment_method,
	total_amount, driver_share, dispatcher_share, admin_share, super_admin_share,
	policy_version, driver_pct, dispatcher_pct, admin_pct, super_admin_pct, remainder_role,
	driver_paid, dispatcher_paid, admin_paid, super_admin_paid, paid_amount, is_paid,
	status, version, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrip(row rowScanner) (*domain.Trip, error) {
	var (
		trip      domain.Trip
		returnLoc sql.NullString
		remainder sql.NullString
	)
	err := row.Scan(
		&trip.ID, &trip.TransactionNumber, &trip.TenantID,
		&trip.CustomerID, &trip.DriverID, &trip.DispatcherID, &trip.VehicleID,
		&trip.PickupLocation, &trip.DestinationLocation, &returnLoc,
		&trip.RideDurationHours, &trip.PaymentMethod,
		&trip.TotalAmount,
		&trip.Shares.Driver, &trip.Shares.Dispatcher, &trip.Shares.Admin, &trip.Shares.SuperAdmin,
		&trip.Policy.Version,
		&trip.Policy.DriverPct, &trip.Policy.DispatcherPct, &trip.Policy.AdminPct, &trip.Policy.SuperAdminPct,
		&remainder,
		&trip.RolePaid.Driver, &trip.RolePaid.Dispatcher, &trip.RolePaid.Admin, &trip.RolePaid.SuperAdmin,
		&trip.PaidAmount, &trip.IsPaid,
		&trip.Status, &trip.Version, &trip.CreatedAt, &trip.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	trip.ReturnLocation = returnLoc.String
	trip.Policy.TenantID = trip.TenantID
	trip.Policy.RemainderRole = domain.CommissionRole(remainder.String)
	return &trip, nil
}

// Create persists a new trip together with its events and payments.
func (r *TripRepository) Create(ctx context.Context, trip *domain.Trip) error {
	query := `
		INSERT INTO trips (` + tripColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17,
			$18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31, $32, $33)
	`

	_, err := r.q.ExecContext(ctx, query,
		trip.ID, trip.TransactionNumber, trip.TenantID,
		trip.CustomerID, trip.DriverID, trip.DispatcherID, trip.VehicleID,
		trip.PickupLocation, trip.DestinationLocation, nullString(trip.ReturnLocation),
		trip.RideDurationHours, trip.PaymentMethod,
		trip.TotalAmount,
		trip.Shares.Driver, trip.Shares.Dispatcher, trip.Shares.Admin, trip.Shares.SuperAdmin,
		trip.Policy.Version,
		trip.Policy.DriverPct, trip.Policy.DispatcherPct, trip.Policy.AdminPct, trip.Policy.SuperAdminPct,
		nullString(string(trip.Policy.RemainderRole)),
		trip.RolePaid.Driver, trip.RolePaid.Dispatcher, trip.RolePaid.Admin, trip.RolePaid.SuperAdmin,
		trip.PaidAmount, trip.IsPaid,
		trip.Status, trip.Version, trip.CreatedAt, trip.UpdatedAt,
	)
	if err != nil {
		return mapError(err)
	}

	if err := r.events.Append(ctx, trip.Events...); err != nil {
		return err
	}
	for i := range trip.Payments {
		if err := r.payments.Create(ctx, &trip.Payments[i]); err != nil {
			return err
		}
	}
	return nil
}

// GetByID retrieves a trip with its events and payments.
func (r *TripRepository) GetByID(ctx context.Context, id string) (*domain.Trip, error) {
	return r.get(ctx, `SELECT `+tripColumns+` FROM trips WHERE id = $1`, id)
}

// GetForUpdate retrieves a trip and locks its row until the transaction ends.
func (r *TripRepository) GetForUpdate(ctx context.Context, id string) (*domain.Trip, error) {
	return r.get(ctx, `SELECT `+tripColumns+` FROM trips WHERE id = $1 FOR UPDATE`, id)
}

func (r *TripRepository) get(ctx context.Context, query, id string) (*domain.Trip, error) {
	trip, err := scanTrip(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapError(err)
	}

	if trip.Events, err = r.events.ListByTrip(ctx, id); err != nil {
		return nil, err
	}
	if trip.Payments, err = r.payments.ListByTrip(ctx, id); err != nil {
		return nil, err
	}
	return trip, nil
}

// List retrieves trips without events or payments, newest first.
func (r *TripRepository) List(ctx context.Context, filter repository.TripFilter) ([]*domain.Trip, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if filter.TenantID != "" {
		add("tenant_id = $%d", filter.TenantID)
	}
	if filter.Status != "" {
		add("status = $%d", filter.Status)
	}
	if filter.DriverID != "" {
		add("driver_id = $%d", filter.DriverID)
	}
	if filter.Unpaid {
		where = append(where, "NOT is_paid")
	}

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 100
	}

	var b strings.Builder
	b.WriteString(`SELECT ` + tripColumns + ` FROM trips`)
	if len(where) > 0 {
		b.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	args = append(args, limit, filter.Offset)
	fmt.Fprintf(&b, " ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.q.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trips []*domain.Trip
	for rows.Next() {
		trip, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		trips = append(trips, trip)
	}

	return trips, rows.Err()
}

// Update writes the mutable trip columns if the stored version matches.
func (r *TripRepository) Update(ctx context.Context, trip *domain.Trip, expectedVersion int64) error {
	query := `
		UPDATE trips
		SET status = $1, payment_method = $2,
			driver_paid = $3, dispatcher_paid = $4, admin_paid = $5, super_admin_paid = $6,
			paid_amount = $7, is_paid = $8, updated_at = $9, version = version + 1
		WHERE id = $10 AND version = $11
	`

	result, err := r.q.ExecContext(ctx, query,
		trip.Status, trip.PaymentMethod,
		trip.RolePaid.Driver, trip.RolePaid.Dispatcher, trip.RolePaid.Admin, trip.RolePaid.SuperAdmin,
		trip.PaidAmount, trip.IsPaid, trip.UpdatedAt,
		trip.ID, expectedVersion,
	)
	if err != nil {
		return mapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		var exists bool
		if err := r.q.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM trips WHERE id = $1)`, trip.ID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return repository.ErrNotFound
		}
		return repository.ErrConflict
	}

	trip.Version = expectedVersion + 1
	return nil
}

// NextTransactionNumber allocates the next TXN-nnnnn number from a sequence.
func (r *TripRepository) NextTransactionNumber(ctx context.Context) (string, error) {
	var n int64
	if err := r.q.QueryRowContext(ctx, `SELECT nextval('trip_number_seq')`).Scan(&n); err != nil {
		return "", err
	}
	return fmt.Sprintf("TXN-%05d", n), nil
}

// Ensure TripRepository implements repository.TripRepository.
var _ repository.TripRepository = (*TripRepository)(nil)
