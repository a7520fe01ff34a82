package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionStore persists per-browser-session identifiers in Redis.
// Each browser session maps to one hash; absent fields read as empty strings.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionStore creates a new SessionStore. Entries expire after ttl of inactivity.
func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

// Scope returns the key-value view for a single browser session.
func (s *SessionStore) Scope(browserSessionID string) *ScopedSession {
	return &ScopedSession{
		client: s.client,
		key:    sessionKeyPrefix + browserSessionID,
		ttl:    s.ttl,
	}
}

// ScopedSession is the key-value store of one browser session.
type ScopedSession struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// Get returns the value stored under key, or "" when absent.
func (s *ScopedSession) Get(ctx context.Context, key string) (string, error) {
	value, err := s.client.HGet(ctx, s.key, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", err
	}
	return value, nil
}

// Set stores value under key and refreshes the session expiry.
func (s *ScopedSession) Set(ctx context.Context, key, value string) error {
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, s.key, key, value)
	if s.ttl > 0 {
		pipe.Expire(ctx, s.key, s.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}
