package postgres

import (
	"context"
	"database/sql"

	"scooter/internal/domain"
	"scooter/internal/repository"
)

// Ensure SessionEventRepository implements repository.SessionEventRepository.
var _ repository.SessionEventRepository = (*SessionEventRepository)(nil)

// SessionEventRepository is a PostgreSQL implementation of repository.SessionEventRepository.
type SessionEventRepository struct {
	q Querier
}

// NewSessionEventRepository creates a new PostgreSQL session event repository.
func NewSessionEventRepository(db *sql.DB) *SessionEventRepository {
	return &SessionEventRepository{q: db}
}

// NewSessionEventRepositoryWithTx creates a session event repository using a transaction.
func NewSessionEventRepositoryWithTx(tx *sql.Tx) *SessionEventRepository {
	return &SessionEventRepository{q: tx}
}

// Create persists a new event.
func (r *SessionEventRepository) Create(ctx context.Context, event *domain.SessionEvent) error {
	query := `
		INSERT INTO rental_session_events (id, browser_session_id, scooter_id, user_id, rental_id, phase, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	var rentalID sql.NullString
	if event.RentalID != "" {
		rentalID = sql.NullString{String: event.RentalID, Valid: true}
	}

	var reason sql.NullString
	if event.Reason != "" {
		reason = sql.NullString{String: event.Reason, Valid: true}
	}

	_, err := r.q.ExecContext(ctx, query,
		event.ID,
		event.BrowserSessionID,
		event.ScooterID,
		event.UserID,
		rentalID,
		event.Phase,
		reason,
		event.CreatedAt,
	)

	return err
}

// ListByRentalID retrieves the events of a rental, oldest first.
func (r *SessionEventRepository) ListByRentalID(ctx context.Context, rentalID string) ([]*domain.SessionEvent, error) {
	query := `
		SELECT id, browser_session_id, scooter_id, user_id, rental_id, phase, reason, created_at
		FROM rental_session_events WHERE rental_id = $1 ORDER BY created_at ASC LIMIT 100
	`

	rows, err := r.q.QueryContext(ctx, query, rentalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*domain.SessionEvent
	for rows.Next() {
		var event domain.SessionEvent
		var storedRentalID sql.NullString
		var reason sql.NullString
		if err := rows.Scan(
			&event.ID,
			&event.BrowserSessionID,
			&event.ScooterID,
			&event.UserID,
			&storedRentalID,
			&event.Phase,
			&reason,
			&event.CreatedAt,
		); err != nil {
			return nil, err
		}
		if storedRentalID.Valid {
			event.RentalID = storedRentalID.String
		}
		if reason.Valid {
			event.Reason = reason.String
		}
		events = append(events, &event)
	}
	return events, rows.Err()
}
