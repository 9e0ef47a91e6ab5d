package postgres

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/repository"
)

// ReportRepository is a PostgreSQL implementation of repository.ReportRepository.
type ReportRepository struct {
	q Querier
}

// NewReportRepository creates a new PostgreSQL report repository.
func NewReportRepository(db *sql.DB) *ReportRepository {
	return &ReportRepository{q: db}
}

// filterArgs are positional arguments for the shared report WHERE clause.
func filterArgs(f repository.ReportFilter) []any {
	var from, to sql.NullTime
	if !f.From.IsZero() {
		from = sql.NullTime{Time: f.From, Valid: true}
	}
	if !f.To.IsZero() {
		to = sql.NullTime{Time: f.To, Valid: true}
	}
	return []any{f.TenantID, f.DriverID, f.DispatcherID, from, to}
}

const tripReportFilter = `
	t.tenant_id = $1
	AND ($2 = '' OR t.driver_id = $2)
	AND ($3 = '' OR t.dispatcher_id = $3)
	AND ($4::timestamptz IS NULL OR t.created_at >= $4)
	AND ($5::timestamptz IS NULL OR t.created_at < $5)`

// CommissionSummary sums shares and role ledgers of non-cancelled trips.
func (r *ReportRepository) CommissionSummary(ctx context.Context, filter repository.ReportFilter) (*domain.CommissionSummary, error) {
	query := `
		SELECT COUNT(*),
			COALESCE(SUM(t.total_amount), 0), COALESCE(SUM(t.paid_amount), 0),
			COALESCE(SUM(t.driver_share), 0), COALESCE(SUM(t.dispatcher_share), 0),
			COALESCE(SUM(t.admin_share), 0), COALESCE(SUM(t.super_admin_share), 0),
			COALESCE(SUM(t.driver_paid), 0), COALESCE(SUM(t.dispatcher_paid), 0),
			COALESCE(SUM(t.admin_paid), 0), COALESCE(SUM(t.super_admin_paid), 0)
		FROM trips t
		WHERE t.status <> 'CANCELLED' AND ` + tripReportFilter

	var (
		count          int
		total, paid    decimal.Decimal
		shares, ledger domain.Shares
	)
	err := r.q.QueryRowContext(ctx, query, filterArgs(filter)...).Scan(
		&count, &total, &paid,
		&shares.Driver, &shares.Dispatcher, &shares.Admin, &shares.SuperAdmin,
		&ledger.Driver, &ledger.Dispatcher, &ledger.Admin, &ledger.SuperAdmin,
	)
	if err != nil {
		return nil, err
	}

	summary := domain.NewCommissionSummary(count, total, paid, shares, ledger)
	return &summary, nil
}

// PaymentSummary groups payments of matching trips by method and status.
func (r *ReportRepository) PaymentSummary(ctx context.Context, filter repository.ReportFilter) ([]domain.PaymentSummaryRow, error) {
	query := `
		SELECT p.method, p.status, COUNT(*), COALESCE(SUM(p.amount), 0)
		FROM payments p JOIN trips t ON t.id = p.trip_id
		WHERE ` + tripReportFilter + `
		GROUP BY p.method, p.status
		ORDER BY p.method, p.status
	`

	rows, err := r.q.QueryContext(ctx, query, filterArgs(filter)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.PaymentSummaryRow
	for rows.Next() {
		var row domain.PaymentSummaryRow
		if err := rows.Scan(&row.Method, &row.Status, &row.Count, &row.Amount); err != nil {
			return nil, err
		}
		out = append(out, row)
	}

	return out, rows.Err()
}

var _ repository.ReportRepository = (*ReportRepository)(nil)
