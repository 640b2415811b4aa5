package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/chatterbox-hq/chatterbox/internal/models"
)

// ErrNotFound signals that no message exists with the requested id.
var ErrNotFound = errors.New("message not found")

// ValidationError reports a required field that was missing or empty at
// persistence time. Handlers validate before calling the store; the store
// rejects again so a bad row can never be written.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s cannot be empty", e.Field)
}

// ConstraintError wraps an integrity violation reported by the database.
type ConstraintError struct {
	Err error
}

func (e *ConstraintError) Error() string {
	return "constraint violation: " + e.Err.Error()
}

func (e *ConstraintError) Unwrap() error { return e.Err }

// MessageStore defines the interface for persistent storage of messages.
// Both PostgresStore and SQLiteStore implement this interface.
type MessageStore interface {
	// Connection management
	Close()
	Ping(ctx context.Context) error

	// Create inserts a new message with created_at set to the current
	// time and updated_at unset.
	Create(ctx context.Context, body, username string) (*models.Message, error)

	// ListAll returns every message ordered by created_at ascending,
	// ties broken by id. An empty store yields an empty slice.
	ListAll(ctx context.Context) ([]models.Message, error)

	// FindByID returns (nil, nil) when no message has the given id.
	FindByID(ctx context.Context, id int64) (*models.Message, error)

	// Update replaces the body and stamps updated_at, leaving id,
	// username and created_at untouched. Returns ErrNotFound when the
	// id does not exist.
	Update(ctx context.Context, id int64, body string) (*models.Message, error)

	// Delete removes the message. Returns ErrNotFound when the id does
	// not exist, including on a repeat delete.
	Delete(ctx context.Context, id int64) error
}
