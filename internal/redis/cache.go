package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"ridedispatch/internal/domain"
)

// CacheStore handles entity caching in Redis.
type CacheStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCacheStore creates a new CacheStore whose entries expire after ttl.
func NewCacheStore(client *redis.Client, ttl time.Duration) *CacheStore {
	return &CacheStore{client: client, ttl: ttl}
}

const policyCachePrefix = "cache:policy:"

// CachedPolicy is the cached form of a tenant's active commission policy.
type CachedPolicy struct {
	TenantID      string          `json:"tenant_id"`
	Version       int             `json:"version"`
	DriverPct     decimal.Decimal `json:"driver_pct"`
	DispatcherPct decimal.Decimal `json:"dispatcher_pct"`
	AdminPct      decimal.Decimal `json:"admin_pct"`
	SuperAdminPct decimal.Decimal `json:"super_admin_pct"`
	RemainderRole string          `json:"remainder_role,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

func toCachedPolicy(p domain.Policy) CachedPolicy {
	return CachedPolicy{
		TenantID:      p.TenantID,
		Version:       p.Version,
		DriverPct:     p.DriverPct,
		DispatcherPct: p.DispatcherPct,
		AdminPct:      p.AdminPct,
		SuperAdminPct: p.SuperAdminPct,
		RemainderRole: string(p.RemainderRole),
		CreatedAt:     p.CreatedAt,
	}
}

func (c CachedPolicy) policy() domain.Policy {
	return domain.Policy{
		TenantID:      c.TenantID,
		Version:       c.Version,
		DriverPct:     c.DriverPct,
		DispatcherPct: c.DispatcherPct,
		AdminPct:      c.AdminPct,
		SuperAdminPct: c.SuperAdminPct,
		RemainderRole: domain.CommissionRole(c.RemainderRole),
		CreatedAt:     c.CreatedAt,
	}
}

// GetPolicy retrieves a tenant's active policy from cache.
// Returns nil on a cache miss.
func (s *CacheStore) GetPolicy(ctx context.Context, tenantID string) (*domain.Policy, error) {
	data, err := s.client.Get(ctx, policyCachePrefix+tenantID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // Cache miss
		}
		return nil, err
	}

	var cached CachedPolicy
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, err
	}
	p := cached.policy()
	return &p, nil
}

// SetPolicy stores a tenant's active policy in cache.
func (s *CacheStore) SetPolicy(ctx context.Context, policy domain.Policy) error {
	data, err := json.Marshal(toCachedPolicy(policy))
	if err != nil {
		return err
	}
	return s.client.Set(ctx, policyCachePrefix+policy.TenantID, data, s.ttl).Err()
}

// InvalidatePolicy removes a tenant's policy from cache.
func (s *CacheStore) InvalidatePolicy(ctx context.Context, tenantID string) error {
	return s.client.Del(ctx, policyCachePrefix+tenantID).Err()
}
