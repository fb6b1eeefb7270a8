package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// StateRepository persists client-side key/value state such as the admin
// token and the manager flag.
type StateRepository interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

type stateRepository struct {
	db *sql.DB
}

// NewStateRepository creates a postgres backed StateRepository. The
// client_state table is created by the database migrations.
func NewStateRepository(db *sql.DB) StateRepository {
	return &stateRepository{db: db}
}

func (r *stateRepository) Get(ctx context.Context, key string) (string, bool, error) {
	query := `SELECT value FROM client_state WHERE key = $1`

	var value string
	err := r.db.QueryRowContext(ctx, query, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get state %q: %w", key, err)
	}
	return value, true, nil
}

// Set inserts or overwrites the value stored under key
func (r *stateRepository) Set(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO client_state (key, value)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
	`

	if _, err := r.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("failed to set state %q: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (r *stateRepository) Delete(ctx context.Context, key string) error {
	query := `DELETE FROM client_state WHERE key = $1`

	if _, err := r.db.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("failed to delete state %q: %w", key, err)
	}
	return nil
}
