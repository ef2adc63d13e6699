package driven

import (
	"context"
	"time"
)

// AuthStateStore defines the driven port for transient OAuth correlation
// values. States are single-use: Consume removes the row, so a replayed
// callback finds nothing.
type AuthStateStore interface {
	// Save persists a freshly minted state with its expiry.
	Save(ctx context.Context, state string, expiresAt time.Time) error

	// Consume atomically removes the state and returns its expiry.
	// ok is false when the state was never issued or was already consumed.
	Consume(ctx context.Context, state string) (expiresAt time.Time, ok bool, err error)

	// DeleteExpired removes states whose expiry has passed and returns the
	// number removed. Called opportunistically; correctness does not depend on it.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
