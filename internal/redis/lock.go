package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only if it still holds the caller's token,
// so an expired holder cannot release a lock taken over by someone else.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// LockStore handles distributed locking in Redis.
type LockStore struct {
	client *redis.Client
}

// NewLockStore creates a new LockStore.
func NewLockStore(client *redis.Client) *LockStore {
	return &LockStore{client: client}
}

func tripLockKey(tripID string) string {
	return fmt.Sprintf("lock:trip:%s", tripID)
}

// AcquireTripLock attempts to acquire the mutation lock of a trip.
// It returns the holder token, or an empty token if the lock is held.
func (s *LockStore) AcquireTripLock(ctx context.Context, tripID string, ttl time.Duration) (string, error) {
	token := uuid.NewString()

	ok, err := s.client.SetNX(ctx, tripLockKey(tripID), token, ttl).Result()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", nil
	}

	return token, nil
}

// ReleaseTripLock releases the trip lock if token still owns it.
func (s *LockStore) ReleaseTripLock(ctx context.Context, tripID, token string) error {
	return releaseScript.Run(ctx, s.client, []string{tripLockKey(tripID)}, token).Err()
}
