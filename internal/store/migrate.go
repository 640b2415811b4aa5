package store

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// RunMigrations creates the messages schema on PostgreSQL if it does not
// exist. SQLite bootstraps its own schema in NewSQLiteStore.
func RunMigrations(ctx context.Context, databaseURL string) error {
	conn, err := pgx.Connect(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)

	_, err = conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS messages (
			id BIGSERIAL PRIMARY KEY,
			body TEXT NOT NULL CHECK (body <> ''),
			username TEXT NOT NULL CHECK (username <> ''),
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ
		);

		CREATE INDEX IF NOT EXISTS idx_messages_created_at ON messages (created_at);
	`)
	return err
}
