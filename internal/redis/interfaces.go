package redis

import (
	"context"
	"time"

	"ridedispatch/internal/domain"
)

// LockStoreInterface defines the interface for distributed locking.
type LockStoreInterface interface {
	AcquireTripLock(ctx context.Context, tripID string, ttl time.Duration) (string, error)
	ReleaseTripLock(ctx context.Context, tripID, token string) error
}

// PolicyCacheInterface defines the interface for the active policy cache.
type PolicyCacheInterface interface {
	GetPolicy(ctx context.Context, tenantID string) (*domain.Policy, error)
	SetPolicy(ctx context.Context, policy domain.Policy) error
	InvalidatePolicy(ctx context.Context, tenantID string) error
}

// ResponseStoreInterface defines the interface for idempotent response replay.
type ResponseStoreInterface interface {
	GetResponse(ctx context.Context, key string) (*StoredResponse, error)
	SetResponse(ctx context.Context, key string, resp StoredResponse) error
}

// Ensure concrete types implement interfaces.
var (
	_ LockStoreInterface     = (*LockStore)(nil)
	_ PolicyCacheInterface   = (*CacheStore)(nil)
	_ ResponseStoreInterface = (*IdempotencyStore)(nil)
)
