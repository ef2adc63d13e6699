package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/akaul/splitgate/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.AuthStateStore = (*AuthStateRepo)(nil)

// AuthStateRepo is the SQLite implementation of the AuthStateStore port
// interface. States survive restarts so an authorization started before a
// redeploy can still complete.
type AuthStateRepo struct {
	db *DB
}

// NewAuthStateRepo creates a new AuthStateRepo.
func NewAuthStateRepo(db *DB) *AuthStateRepo {
	return &AuthStateRepo{db: db}
}

// Save persists a freshly minted state with its expiry.
func (r *AuthStateRepo) Save(ctx context.Context, state string, expiresAt time.Time) error {
	const query = `INSERT INTO auth_states (state, created_at, expires_at) VALUES (?, ?, ?)`
	_, err := r.db.Writer.ExecContext(ctx, query, state, time.Now().UTC(), expiresAt.UTC())
	if err != nil {
		return fmt.Errorf("save auth state: %w", err)
	}
	return nil
}

// Consume atomically removes the state and returns its expiry. The DELETE
// with RETURNING prevents a replayed callback from observing the row.
func (r *AuthStateRepo) Consume(ctx context.Context, state string) (time.Time, bool, error) {
	const query = `DELETE FROM auth_states WHERE state = ? RETURNING expires_at`

	var expiresAt string
	err := r.db.Writer.QueryRowContext(ctx, query, state).Scan(&expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("consume auth state: %w", err)
	}

	t, err := parseTime(expiresAt)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse expires_at: %w", err)
	}
	return t, true, nil
}

// DeleteExpired removes states whose expiry has passed and returns the
// number removed.
func (r *AuthStateRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	const query = `DELETE FROM auth_states WHERE expires_at < ?`
	res, err := r.db.Writer.ExecContext(ctx, query, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete expired auth states: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("expired auth states rows affected: %w", err)
	}
	return n, nil
}
