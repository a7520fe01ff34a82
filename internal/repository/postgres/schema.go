package postgres

import (
	"context"
	"fmt"
)

const schema = `
	CREATE TABLE IF NOT EXISTS rental_session_events (
		id                 UUID PRIMARY KEY,
		browser_session_id TEXT NOT NULL,
		scooter_id         TEXT NOT NULL,
		user_id            TEXT NOT NULL,
		rental_id          TEXT,
		phase              TEXT NOT NULL,
		reason             TEXT,
		created_at         TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_rental_session_events_rental_id
		ON rental_session_events (rental_id, created_at);
`

// EnsureSchema creates the tables this service writes to if they do not exist.
func EnsureSchema(ctx context.Context, q Querier) error {
	if _, err := q.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}
