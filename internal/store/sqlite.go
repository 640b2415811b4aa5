package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/chatterbox-hq/chatterbox/internal/models"
)

// SQLiteStore handles SQLite database operations.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
// If dbPath is empty, defaults to "./data/chatterbox.db".
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/chatterbox.db"
	}

	if dbPath != ":memory:" {
		// Ensure directory exists
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, err
	}

	if dbPath == ":memory:" {
		// Each pooled connection would otherwise see its own empty
		// in-memory database.
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}

	// Initialize schema
	if err := store.initSchema(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

// initSchema creates tables if they don't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		body TEXT NOT NULL CHECK (length(body) > 0),
		username TEXT NOT NULL CHECK (length(username) > 0),
		created_at DATETIME NOT NULL,
		updated_at DATETIME
	);

	CREATE INDEX IF NOT EXISTS idx_messages_created_at ON messages(created_at);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() {
	s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Create inserts a new message row. Insert and readback share one
// transaction, so the returned row is exactly what was written.
func (s *SQLiteStore) Create(ctx context.Context, body, username string) (*models.Message, error) {
	if body == "" {
		return nil, &ValidationError{Field: "body"}
	}
	if username == "" {
		return nil, &ValidationError{Field: "username"}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx, `
		INSERT INTO messages (body, username, created_at)
		VALUES (?, ?, ?)
	`, body, username, now)
	if err != nil {
		return nil, wrapSQLiteErr(err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	msg := &models.Message{}
	err = tx.QueryRowContext(ctx, `
		SELECT id, body, username, created_at, updated_at
		FROM messages WHERE id = ?
	`, id).Scan(
		&msg.ID,
		&msg.Body,
		&msg.Username,
		&msg.CreatedAt,
		&msg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	normalizeMessage(msg)
	return msg, nil
}

// ListAll retrieves every message, oldest first.
func (s *SQLiteStore) ListAll(ctx context.Context) ([]models.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
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
		normalizeMessage(&msg)
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// FindByID retrieves a message by id.
func (s *SQLiteStore) FindByID(ctx context.Context, id int64) (*models.Message, error) {
	msg := &models.Message{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, body, username, created_at, updated_at
		FROM messages WHERE id = ?
	`, id).Scan(
		&msg.ID,
		&msg.Body,
		&msg.Username,
		&msg.CreatedAt,
		&msg.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	normalizeMessage(msg)
	return msg, nil
}

// Update replaces the body and stamps updated_at inside one transaction,
// so the write and the readback can never straddle another mutation.
func (s *SQLiteStore) Update(ctx context.Context, id int64, body string) (*models.Message, error) {
	if body == "" {
		return nil, &ValidationError{Field: "body"}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx, `
		UPDATE messages SET body = ?, updated_at = ? WHERE id = ?
	`, body, now, id)
	if err != nil {
		return nil, wrapSQLiteErr(err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrNotFound
	}

	msg := &models.Message{}
	err = tx.QueryRowContext(ctx, `
		SELECT id, body, username, created_at, updated_at
		FROM messages WHERE id = ?
	`, id).Scan(
		&msg.ID,
		&msg.Body,
		&msg.Username,
		&msg.CreatedAt,
		&msg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	normalizeMessage(msg)
	return msg, nil
}

// Delete removes a message row.
func (s *SQLiteStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE id = ?`, id)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// normalizeMessage forces timestamps back to UTC; the driver round-trips
// them with a zone offset.
func normalizeMessage(msg *models.Message) {
	msg.CreatedAt = msg.CreatedAt.UTC()
	if msg.UpdatedAt != nil {
		utc := msg.UpdatedAt.UTC()
		msg.UpdatedAt = &utc
	}
}

// wrapSQLiteErr maps driver integrity violations to ConstraintError.
func wrapSQLiteErr(err error) error {
	var serr sqlite3.Error
	if errors.As(err, &serr) && serr.Code == sqlite3.ErrConstraint {
		return &ConstraintError{Err: err}
	}
	return err
}
