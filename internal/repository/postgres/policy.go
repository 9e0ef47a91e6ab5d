package postgres

import (
	"context"
	"database/sql"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/repository"
)

// PolicyRepository is a PostgreSQL implementation of repository.PolicyRepository.
type PolicyRepository struct {
	q Querier
}

const policyColumns = `
	tenant_id, version, driver_pct, dispatcher_pct, admin_pct, super_admin_pct, remainder_role, created_at`

func scanPolicy(row rowScanner) (*domain.Policy, error) {
	var (
		p         domain.Policy
		remainder sql.NullString
	)
	err := row.Scan(&p.TenantID, &p.Version, &p.DriverPct, &p.DispatcherPct, &p.AdminPct, &p.SuperAdminPct, &remainder, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	p.RemainderRole = domain.CommissionRole(remainder.String)
	return &p, nil
}

// Create inserts the policy as the tenant's next version. Two concurrent
// creates for one tenant collide on the primary key and one gets ErrConflict.
func (r *PolicyRepository) Create(ctx context.Context, policy *domain.Policy) error {
	query := `
		INSERT INTO commission_policies (` + policyColumns + `)
		SELECT $1, COALESCE(MAX(version), 0) + 1, $2, $3, $4, $5, $6, $7
		FROM commission_policies WHERE tenant_id = $1
		RETURNING version
	`

	err := r.q.QueryRowContext(ctx, query,
		policy.TenantID,
		policy.DriverPct, policy.DispatcherPct, policy.AdminPct, policy.SuperAdminPct,
		nullString(string(policy.RemainderRole)),
		policy.CreatedAt,
	).Scan(&policy.Version)

	return mapError(err)
}

// Latest retrieves the newest policy of a tenant.
func (r *PolicyRepository) Latest(ctx context.Context, tenantID string) (*domain.Policy, error) {
	query := `
		SELECT ` + policyColumns + ` FROM commission_policies
		WHERE tenant_id = $1 ORDER BY version DESC LIMIT 1
	`

	p, err := scanPolicy(r.q.QueryRowContext(ctx, query, tenantID))
	if err != nil {
		return nil, mapError(err)
	}
	return p, nil
}

// List retrieves every version of a tenant's policy, newest first.
func (r *PolicyRepository) List(ctx context.Context, tenantID string) ([]*domain.Policy, error) {
	query := `
		SELECT ` + policyColumns + ` FROM commission_policies
		WHERE tenant_id = $1 ORDER BY version DESC
	`

	rows, err := r.q.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var policies []*domain.Policy
	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			return nil, err
		}
		policies = append(policies, p)
	}

	return policies, rows.Err()
}

var _ repository.PolicyRepository = (*PolicyRepository)(nil)
