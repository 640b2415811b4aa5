package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chatterbox-hq/chatterbox/internal/models"
)

// PostgresStore handles PostgreSQL database operations.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL store with a connection pool.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Create inserts a new message row.
func (s *PostgresStore) Create(ctx context.Context, body, username string) (*models.Message, error) {
	if body == "" {
		return nil, &ValidationError{Field: "body"}
	}
	if username == "" {
		return nil, &ValidationError{Field: "username"}
	}

	msg := &models.Message{}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO messages (body, username, created_at)
		VALUES ($1, $2, $3)
		RETURNING id, body, username, created_at, updated_at
	`, body, username, time.Now().UTC()).Scan(
		&msg.ID,
		&msg.Body,
		&msg.Username,
		&msg.CreatedAt,
		&msg.UpdatedAt,
	)
	if err != nil {
		return nil, wrapPgErr(err)
	}
	return msg, nil
}

// ListAll retrieves every message, oldest first.
func (s *PostgresStore) ListAll(ctx context.Context) ([]models.Message, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, body, username, created_at, updated_at
		FROM messages
		ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		var msg models.Message
		if err := rows.Scan(
			&msg.ID,
			&msg.Body,
			&msg.Username,
			&msg.CreatedAt,
			&msg.UpdatedAt,
		); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// FindByID retrieves a message by id.
func (s *PostgresStore) FindByID(ctx context.Context, id int64) (*models.Message, error) {
	msg := &models.Message{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, body, username, created_at, updated_at
		FROM messages WHERE id = $1
	`, id).Scan(
		&msg.ID,
		&msg.Body,
		&msg.Username,
		&msg.CreatedAt,
		&msg.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return msg, nil
}

// Update replaces the body and stamps updated_at. A single statement keeps
// the mutation and readback atomic.
func (s *PostgresStore) Update(ctx context.Context, id int64, body string) (*models.Message, error) {
	if body == "" {
		return nil, &ValidationError{Field: "body"}
	}

	msg := &models.Message{}
	err := s.pool.QueryRow(ctx, `
		UPDATE messages SET body = $1, updated_at = $2
		WHERE id = $3
		RETURNING id, body, username, created_at, updated_at
	`, body, time.Now().UTC(), id).Scan(
		&msg.ID,
		&msg.Body,
		&msg.Username,
		&msg.CreatedAt,
		&msg.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, wrapPgErr(err)
	}
	return msg, nil
}

// Delete removes a message row.
func (s *PostgresStore) Delete(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM messages WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// wrapPgErr maps integrity violations (SQLSTATE class 23) to ConstraintError.
func wrapPgErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && strings.HasPrefix(pgErr.Code, "23") {
		return &ConstraintError{Err: err}
	}
	return err
}
