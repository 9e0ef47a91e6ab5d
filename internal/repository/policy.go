package repository

import (
	"context"

	"ridedispatch/internal/domain"
)

// PolicyRepository stores versioned commission policies per tenant.
type PolicyRepository interface {
	// Create persists the policy as the tenant's next version and sets policy.Version.
	Create(ctx context.Context, policy *domain.Policy) error

	// Latest retrieves the newest policy of a tenant.
	Latest(ctx context.Context, tenantID string) (*domain.Policy, error)

	// List retrieves every version of a tenant's policy, newest first.
	List(ctx context.Context, tenantID string) ([]*domain.Policy, error)
}
