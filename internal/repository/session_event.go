package repository

import (
	"context"

	"scooter/internal/domain"
)

// SessionEventRepository defines the persistence operations for session lifecycle events.
type SessionEventRepository interface {
	// Create persists a new event.
	Create(ctx context.Context, event *domain.SessionEvent) error

	// ListByRentalID retrieves the events of a rental, oldest first.
	ListByRentalID(ctx context.Context, rentalID string) ([]*domain.SessionEvent, error)
}
