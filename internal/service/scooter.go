package service

import (
	"context"
	"errors"

	"scooter/internal/backend"
	"scooter/internal/domain"
	"scooter/internal/redis"
)

// ScooterService resolves scooter details for the rent and inactive screens.
type ScooterService struct {
	api   ScooterAPI
	cache redis.ScooterCacheInterface
}

// NewScooterService creates a new ScooterService. cache may be nil.
func NewScooterService(api ScooterAPI, cache redis.ScooterCacheInterface) *ScooterService {
	return &ScooterService{api: api, cache: cache}
}

// GetScooter retrieves a scooter, serving recent lookups from cache.
func (s *ScooterService) GetScooter(ctx context.Context, scooterID string) (*domain.Scooter, error) {
	if scooterID == "" {
		return nil, ErrInvalidScooterID
	}

	// Try cache first.
	if s.cache != nil {
		if cached, err := s.cache.GetScooter(ctx, scooterID); err == nil && cached != nil {
			return &domain.Scooter{
				ID:        cached.ID,
				Latitude:  cached.Latitude,
				Longitude: cached.Longitude,
				Status:    cached.Status,
			}, nil
		}
	}

	scooter, err := s.api.GetScooter(ctx, scooterID)
	if err != nil {
		if errors.Is(err, backend.ErrNotFound) {
			return nil, ErrScooterNotFound
		}
		return nil, err
	}
	if scooter.ID == "" {
		scooter.ID = scooterID
	}

	// Cache the result.
	if s.cache != nil {
		_ = s.cache.SetScooter(ctx, &redis.CachedScooter{
			ID:        scooterID,
			Latitude:  scooter.Latitude,
			Longitude: scooter.Longitude,
			Status:    scooter.Status,
		})
	}

	return scooter, nil
}

// Invalidate drops a cached scooter after its status changed.
func (s *ScooterService) Invalidate(ctx context.Context, scooterID string) {
	if s.cache != nil {
		_ = s.cache.InvalidateScooter(ctx, scooterID)
	}
}
