package driven

import (
	"context"

	"github.com/akaul/splitgate/internal/domain/model"
)

// GrantStore defines the driven port for durable token-to-credential mapping.
// The adapter layer encrypts access tokens at rest; this interface operates
// on plaintext values at the domain boundary.
type GrantStore interface {
	// Create persists a new grant. Any prior non-revoked grant for the same
	// Splitwise user is revoked in the same transaction, so at most one live
	// grant exists per identity.
	Create(ctx context.Context, grant model.Grant) error

	// Resolve returns the non-revoked grant for the given opaque token, or
	// (nil, nil) if the token is unknown or revoked. Resolution is a direct
	// keyed read; no prefix or partial matching.
	Resolve(ctx context.Context, token string) (*model.Grant, error)

	// ResolveUser returns the live grant for a Splitwise user, or (nil, nil)
	// if the user holds none. Used by background jobs that act for a user
	// without a request-borne token.
	ResolveUser(ctx context.Context, userID int64) (*model.Grant, error)

	// Revoke marks the grant revoked, keeping the row for audit. Returns
	// false if the token was unknown or already revoked.
	Revoke(ctx context.Context, token string) (bool, error)
}
