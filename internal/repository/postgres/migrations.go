package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is applied in order; every statement is idempotent.
// users and events are owned by other services and are created here only so
// a fresh database can serve the RSVP core.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		email VARCHAR(255) NOT NULL UNIQUE,
		first_name VARCHAR(255) NOT NULL DEFAULT '',
		last_name VARCHAR(255) NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS events (
		id UUID PRIMARY KEY,
		title VARCHAR(255) NOT NULL,
		capacity INTEGER NOT NULL CHECK (capacity > 0),
		event_date TIMESTAMPTZ NOT NULL,
		published BOOLEAN NOT NULL DEFAULT FALSE,
		organizer_id UUID NOT NULL REFERENCES users(id)
	)`,
	`CREATE TABLE IF NOT EXISTS rsvps (
		id BIGSERIAL PRIMARY KEY,
		event_id UUID NOT NULL REFERENCES events(id),
		user_id UUID NOT NULL REFERENCES users(id),
		status VARCHAR(16) NOT NULL CHECK (status IN ('CONFIRMED', 'WAITLIST')),
		created_at TIMESTAMPTZ NOT NULL DEFAULT clock_timestamp(),
		UNIQUE (event_id, user_id)
	)`,
	`CREATE INDEX IF NOT EXISTS rsvps_event_status_created_idx
		ON rsvps (event_id, status, created_at, id)`,
	`CREATE INDEX IF NOT EXISTS rsvps_user_idx ON rsvps (user_id, created_at DESC)`,
}

// RunMigrations applies the schema.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
