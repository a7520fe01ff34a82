package redis

import (
	"context"
	"time"
)

// SessionStoreInterface is the key-value view of a single browser session.
type SessionStoreInterface interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// LockStoreInterface defines the interface for distributed locking.
type LockStoreInterface interface {
	AcquireSessionLock(ctx context.Context, browserSessionID string, ttl time.Duration) (bool, error)
	ReleaseSessionLock(ctx context.Context, browserSessionID string) error
}

// ScooterCacheInterface defines the interface for scooter caching.
type ScooterCacheInterface interface {
	GetScooter(ctx context.Context, scooterID string) (*CachedScooter, error)
	SetScooter(ctx context.Context, scooter *CachedScooter) error
	InvalidateScooter(ctx context.Context, scooterID string) error
}

// Ensure concrete types implement interfaces.
var (
	_ SessionStoreInterface = (*ScopedSession)(nil)
	_ LockStoreInterface    = (*LockStore)(nil)
	_ ScooterCacheInterface = (*CacheStore)(nil)
)
