package service

import (
	"context"

	"github.com/rs/zerolog"

	"scooter/internal/domain"
)

// SummaryService builds billed ride summaries from backend data.
type SummaryService struct {
	api       RentalAPI
	durations *DurationCalculator
	logger    zerolog.Logger
}

// NewSummaryService creates a new SummaryService.
func NewSummaryService(api RentalAPI, durations *DurationCalculator, logger zerolog.Logger) *SummaryService {
	return &SummaryService{
		api:       api,
		durations: durations,
		logger:    logger.With().Str("component", "summary").Logger(),
	}
}

// Build fetches the rental and the rider's balance and computes the ride summary.
// Read failures degrade the summary (no duration, zero price or balance) instead of failing it.
func (s *SummaryService) Build(ctx context.Context, rentalID, userID string) *domain.RideSummary {
	summary := &domain.RideSummary{RentalID: rentalID}

	if rentalID != "" {
		rental, err := s.api.GetRental(ctx, rentalID)
		if err != nil {
			s.logger.Warn().Err(err).Str("rental_id", rentalID).Msg("rental lookup failed")
		} else {
			summary.Price = rental.Price
			// Duration needs both server timestamps; an active rental has no end yet.
			if rental.HasTimestamps() {
				duration, err := s.durations.Elapsed(rental.StartTime, rental.EndTime)
				if err != nil {
					s.logger.Warn().Err(err).Str("rental_id", rentalID).Msg("rental duration unavailable")
				} else {
					summary.Duration = &duration
				}
			}
		}
	}

	if userID != "" {
		user, err := s.api.GetUser(ctx, userID)
		if err != nil {
			s.logger.Warn().Err(err).Str("user_id", userID).Msg("balance lookup failed")
		} else {
			summary.Balance = user.Balance
		}
	}

	return summary
}
