package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"ridedispatch/internal/domain"
	internalRedis "ridedispatch/internal/redis"
	"ridedispatch/internal/repository"
)

// PolicyService manages versioned commission policies per tenant.
type PolicyService struct {
	store    repository.Store
	cache    internalRedis.PolicyCacheInterface
	defaults domain.Policy
	logger   *slog.Logger
}

// NewPolicyService creates a new PolicyService. defaults is used for
// tenants without a stored policy and must already be validated.
func NewPolicyService(store repository.Store, cache internalRedis.PolicyCacheInterface, defaults domain.Policy, logger *slog.Logger) *PolicyService {
	return &PolicyService{store: store, cache: cache, defaults: defaults, logger: logger}
}

// CreatePolicyRequest holds whole-number percentages (75 means 75%).
type CreatePolicyRequest struct {
	TenantID          string
	DriverPercent     decimal.Decimal
	DispatcherPercent decimal.Decimal
	AdminPercent      decimal.Decimal
	SuperAdminPercent decimal.Decimal
	RemainderRole     domain.CommissionRole
}

// CreatePolicy validates and stores a new policy version. Existing trips
// keep the policy they were booked with.
func (s *PolicyService) CreatePolicy(ctx context.Context, req CreatePolicyRequest) (*domain.Policy, error) {
	p := domain.PolicyFromPercent(req.DriverPercent, req.DispatcherPercent, req.AdminPercent, req.SuperAdminPercent)
	p.TenantID = req.TenantID
	p.RemainderRole = req.RemainderRole
	p.CreatedAt = time.Now().UTC()
	if err := p.Validate(); err != nil {
		return nil, err
	}

	if err := s.store.Repos().Policies.Create(ctx, &p); err != nil {
		return nil, err
	}

	if err := s.cache.InvalidatePolicy(ctx, p.TenantID); err != nil {
		s.logger.WarnContext(ctx, "invalidate policy cache", "tenant_id", p.TenantID, "error", err)
	}

	s.logger.InfoContext(ctx, "commission policy created", "tenant_id", p.TenantID, "version", p.Version)
	return &p, nil
}

// ActivePolicy returns the tenant's newest policy, or the configured default.
func (s *PolicyService) ActivePolicy(ctx context.Context, tenantID string) (domain.Policy, error) {
	cached, err := s.cache.GetPolicy(ctx, tenantID)
	if err != nil {
		s.logger.WarnContext(ctx, "read policy cache", "tenant_id", tenantID, "error", err)
	}
	if cached != nil {
		return *cached, nil
	}

	policy, err := s.store.Repos().Policies.Latest(ctx, tenantID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		def := s.defaults
		def.TenantID = tenantID
		policy = &def
	case err != nil:
		return domain.Policy{}, err
	}

	if err := s.cache.SetPolicy(ctx, *policy); err != nil {
		s.logger.WarnContext(ctx, "write policy cache", "tenant_id", tenantID, "error", err)
	}
	return *policy, nil
}

// ListPolicies returns every stored version of the tenant's policy, newest first.
func (s *PolicyService) ListPolicies(ctx context.Context, tenantID string) ([]*domain.Policy, error) {
	return s.store.Repos().Policies.List(ctx, tenantID)
}
