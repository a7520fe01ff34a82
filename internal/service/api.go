package service

import (
	"context"

	"scooter/internal/backend"
	"scooter/internal/domain"
)

// RentalAPI defines the backend operations a rental session depends on.
type RentalAPI interface {
	Unlock(ctx context.Context, scooterID, userID string) (*backend.UnlockResult, error)
	Lock(ctx context.Context, scooterID, userID string) (*backend.LockResult, error)
	GetRental(ctx context.Context, rentalID string) (*domain.Rental, error)
	ActiveRental(ctx context.Context, userID string) (*domain.Rental, error)
	PollStatus(ctx context.Context, rentalID string) (domain.PollResult, error)
	GetUser(ctx context.Context, userID string) (*domain.User, error)
}

// ScooterAPI defines the backend operations for scooter lookups.
type ScooterAPI interface {
	GetScooter(ctx context.Context, scooterID string) (*domain.Scooter, error)
}

// Ensure backend.Client implements both contracts.
var (
	_ RentalAPI  = (*backend.Client)(nil)
	_ ScooterAPI = (*backend.Client)(nil)
)
