package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// LockStore handles short-lived distributed locks in Redis.
type LockStore struct {
	client *redis.Client
}

// NewLockStore creates a new LockStore.
func NewLockStore(client *redis.Client) *LockStore {
	return &LockStore{client: client}
}

// AcquireSessionLock attempts to take the lock guarding unlock/lock calls for a
// browser session. Returns true if the lock was acquired, false if already held.
func (s *LockStore) AcquireSessionLock(ctx context.Context, browserSessionID string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, sessionLockKey(browserSessionID), "1", ttl).Result()
}

// ReleaseSessionLock releases the lock for a browser session.
func (s *LockStore) ReleaseSessionLock(ctx context.Context, browserSessionID string) error {
	return s.client.Del(ctx, sessionLockKey(browserSessionID)).Err()
}

func sessionLockKey(browserSessionID string) string {
	return sessionLockPrefix + browserSessionID
}
