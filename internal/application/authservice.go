// Package application contains use-case orchestration services.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/akaul/splitgate/internal/domain/model"
	"github.com/akaul/splitgate/internal/domain/port/driven"
)

// stateTTL bounds how long an authorization redirect may sit unfinished.
const stateTTL = 10 * time.Minute

// defaultExchangeTimeout bounds the code-for-token exchange. oauth2 falls
// back to http.DefaultClient, which has no timeout of its own, and the
// callback handler would otherwise wait on a stalled provider forever.
const defaultExchangeTimeout = 10 * time.Second

// AuthService drives the OAuth authorization-code flow: it mints correlation
// states, exchanges callback codes for upstream credentials, and issues the
// opaque gateway tokens clients use from then on.
type AuthService struct {
	oauth           *oauth2.Config
	states          driven.AuthStateStore
	grants          driven.GrantStore
	clientFactory   driven.ExpenseClientFactory
	exchangeTimeout time.Duration
}

// NewAuthService creates a new AuthService.
func NewAuthService(
	oauth *oauth2.Config,
	states driven.AuthStateStore,
	grants driven.GrantStore,
	clientFactory driven.ExpenseClientFactory,
) *AuthService {
	return &AuthService{
		oauth:           oauth,
		states:          states,
		grants:          grants,
		clientFactory:   clientFactory,
		exchangeTimeout: defaultExchangeTimeout,
	}
}

// BeginAuth mints a fresh single-use state, persists it, and returns the
// upstream authorization URL to redirect the user to.
func (s *AuthService) BeginAuth(ctx context.Context) (string, error) {
	// Expired states accumulate from abandoned flows; sweep them here rather
	// than on a timer. Correctness does not depend on the sweep.
	if n, err := s.states.DeleteExpired(ctx, time.Now()); err != nil {
		slog.Warn("auth state cleanup failed", "error", err)
	} else if n > 0 {
		slog.Debug("expired auth states removed", "count", n)
	}

	state := uuid.NewString()
	if err := s.states.Save(ctx, state, time.Now().Add(stateTTL)); err != nil {
		return "", fmt.Errorf("save auth state: %w", err)
	}

	return s.oauth.AuthCodeURL(state), nil
}

// CompleteAuth validates the callback state, exchanges the code for an
// upstream access token, identifies the account, and issues a grant. Any
// prior grant for the same account is revoked by the store.
func (s *AuthService) CompleteAuth(ctx context.Context, state, code string) (*model.Grant, error) {
	expiresAt, ok, err := s.states.Consume(ctx, state)
	if err != nil {
		return nil, fmt.Errorf("consume auth state: %w", err)
	}
	if !ok || time.Now().After(expiresAt) {
		return nil, model.ErrInvalidState
	}

	exchangeCtx, cancel := context.WithTimeout(ctx, s.exchangeTimeout)
	defer cancel()

	token, err := s.oauth.Exchange(exchangeCtx, code)
	if err != nil {
		// A 4xx token response means the provider rejected the grant; a 5xx
		// or transport failure means it could not answer at all.
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response.StatusCode < 500 {
			slog.Warn("code exchange rejected", "error", err)
			return nil, fmt.Errorf("%w: %v", model.ErrAuthorizationDenied, err)
		}
		slog.Warn("code exchange unavailable", "error", err)
		return nil, fmt.Errorf("%w: %v", model.ErrUpstreamUnavailable, err)
	}

	user, err := s.clientFactory(token.AccessToken).CurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("identify authorized account: %w", err)
	}

	grant := model.Grant{
		Token:       uuid.NewString(),
		UserID:      user.ID,
		UserName:    user.DisplayName(),
		UserEmail:   user.Email,
		AccessToken: token.AccessToken,
		IssuedAt:    time.Now().UTC(),
	}
	if err := s.grants.Create(ctx, grant); err != nil {
		return nil, fmt.Errorf("create grant: %w", err)
	}

	slog.Info("grant issued", "user_id", user.ID, "user", user.DisplayName())
	return &grant, nil
}

// Revoke invalidates a gateway token. Unknown and already-revoked tokens
// report ErrUnauthorized so callers cannot enumerate the token space.
func (s *AuthService) Revoke(ctx context.Context, token string) error {
	ok, err := s.grants.Revoke(ctx, token)
	if err != nil {
		return fmt.Errorf("revoke grant: %w", err)
	}
	if !ok {
		return model.ErrUnauthorized
	}

	slog.Info("grant revoked")
	return nil
}

// Resolve maps an opaque gateway token to its grant, failing closed with
// ErrUnauthorized for missing, unknown, or revoked tokens.
func (s *AuthService) Resolve(ctx context.Context, token string) (*model.Grant, error) {
	if token == "" {
		return nil, model.ErrUnauthorized
	}

	grant, err := s.grants.Resolve(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("resolve grant: %w", err)
	}
	if grant == nil {
		return nil, model.ErrUnauthorized
	}
	return grant, nil
}
