package model

import "errors"

// Gateway error taxonomy. These sentinels cross the port boundary so driving
// adapters can map them to transport-appropriate failures without inspecting
// error strings.
var (
	// ErrUnauthorized is returned when a request carries a missing, unknown,
	// or revoked gateway token. Resolution fails closed before any tool logic runs.
	ErrUnauthorized = errors.New("unauthorized: missing, unknown, or revoked gateway token")

	// ErrInvalidState is returned when an OAuth callback presents a correlation
	// state that was never issued, already consumed, or has expired.
	ErrInvalidState = errors.New("invalid or expired authorization state")

	// ErrAuthorizationDenied is returned when Splitwise rejects the
	// authorization code exchange (user declined consent, bad code).
	ErrAuthorizationDenied = errors.New("authorization denied by splitwise")

	// ErrUpstreamUnavailable is returned when Splitwise cannot be reached or
	// answers with a server error.
	ErrUpstreamUnavailable = errors.New("splitwise unavailable")
)
