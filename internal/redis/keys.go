package redis

import "strings"

// Key prefixes of everything the gateway keeps in Redis.
const (
	sessionKeyPrefix     = "session:"
	scooterCachePrefix   = "cache:scooter:"
	sessionLockPrefix    = "lock:session:"
	IdempotencyKeyPrefix = "idempotency:"
)

// KeyCollection names the logical collection a key belongs to, for tracing.
func KeyCollection(key string) string {
	switch {
	case strings.HasPrefix(key, sessionKeyPrefix):
		return "session"
	case strings.HasPrefix(key, scooterCachePrefix):
		return "scooter_cache"
	case strings.HasPrefix(key, sessionLockPrefix):
		return "submit_guard"
	case strings.HasPrefix(key, IdempotencyKeyPrefix):
		return "idempotency"
	default:
		return "other"
	}
}
