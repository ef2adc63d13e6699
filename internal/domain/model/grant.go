package model

import "time"

// Grant maps an opaque gateway token to one Splitwise account. The token is a
// bearer capability: random, unguessable, and never derivable from the
// upstream access token it protects. Grants are revoked rather than deleted
// so the issuance history survives a disconnect.
type Grant struct {
	Token       string
	UserID      int64 // Splitwise user id
	UserName    string
	UserEmail   string
	AccessToken string // upstream OAuth access token, plaintext at this boundary
	IssuedAt    time.Time
	RevokedAt   *time.Time
}

// Revoked reports whether the grant has been disconnected.
func (g Grant) Revoked() bool {
	return g.RevokedAt != nil
}
