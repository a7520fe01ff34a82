package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ScooterCacheTTL bounds how stale a cached scooter position may be.
const ScooterCacheTTL = 10 * time.Second

// CachedScooter represents a cached scooter entity.
type CachedScooter struct {
	ID        string  `json:"id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Status    int     `json:"status"`
}

// CacheStore handles entity caching in Redis.
type CacheStore struct {
	client *redis.Client
}

// NewCacheStore creates a new CacheStore.
func NewCacheStore(client *redis.Client) *CacheStore {
	return &CacheStore{client: client}
}

// GetScooter retrieves a scooter from cache. A miss returns nil, nil.
func (s *CacheStore) GetScooter(ctx context.Context, scooterID string) (*CachedScooter, error) {
	data, err := s.client.Get(ctx, scooterCachePrefix+scooterID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var scooter CachedScooter
	if err := json.Unmarshal(data, &scooter); err != nil {
		return nil, err
	}
	return &scooter, nil
}

// SetScooter stores a scooter in cache.
func (s *CacheStore) SetScooter(ctx context.Context, scooter *CachedScooter) error {
	data, err := json.Marshal(scooter)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, scooterCachePrefix+scooter.ID, data, ScooterCacheTTL).Err()
}

// InvalidateScooter removes a scooter from cache.
func (s *CacheStore) InvalidateScooter(ctx context.Context, scooterID string) error {
	return s.client.Del(ctx, scooterCachePrefix+scooterID).Err()
}
