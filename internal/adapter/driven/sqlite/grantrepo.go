package sqlite

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/akaul/splitgate/internal/domain/model"
	"github.com/akaul/splitgate/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.GrantStore = (*GrantRepo)(nil)

// GrantRepo is the SQLite implementation of the GrantStore port interface.
// Upstream access tokens are encrypted with AES-256-GCM before write and
// decrypted after read; the opaque gateway token is stored in the clear
// because it is the lookup key.
type GrantRepo struct {
	db  *DB
	key []byte // 32-byte AES-256 key.
}

// NewGrantRepo creates a new GrantRepo. key must be 32 bytes for AES-256-GCM.
func NewGrantRepo(db *DB, key []byte) (*GrantRepo, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("grant encryption key must be 32 bytes, got %d", len(key))
	}
	return &GrantRepo{db: db, key: key}, nil
}

// Create stores a new grant and revokes any prior live grant for the same
// user in the same transaction, so each user holds at most one live grant.
func (r *GrantRepo) Create(ctx context.Context, grant model.Grant) error {
	encrypted, err := r.encrypt(grant.AccessToken)
	if err != nil {
		return fmt.Errorf("encrypt access token: %w", err)
	}

	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create grant: %w", err)
	}
	defer tx.Rollback()

	const revokePrior = `UPDATE grants SET revoked_at = ? WHERE user_id = ? AND revoked_at IS NULL`
	if _, err := tx.ExecContext(ctx, revokePrior, grant.IssuedAt.UTC(), grant.UserID); err != nil {
		return fmt.Errorf("revoke prior grants for user %d: %w", grant.UserID, err)
	}

	const insert = `INSERT INTO grants (token, user_id, user_name, user_email, access_token, issued_at)
		VALUES (?, ?, ?, ?, ?, ?)`
	_, err = tx.ExecContext(ctx, insert,
		grant.Token, grant.UserID, grant.UserName, grant.UserEmail, encrypted, grant.IssuedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert grant: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create grant: %w", err)
	}
	return nil
}

// Resolve looks up a live grant by its opaque token.
// Returns (nil, nil) when the token is unknown or the grant is revoked.
func (r *GrantRepo) Resolve(ctx context.Context, token string) (*model.Grant, error) {
	const query = `SELECT token, user_id, user_name, user_email, access_token, issued_at
		FROM grants WHERE token = ? AND revoked_at IS NULL`

	var grant model.Grant
	var encrypted string
	var issuedAt string
	err := r.db.Reader.QueryRowContext(ctx, query, token).Scan(
		&grant.Token, &grant.UserID, &grant.UserName, &grant.UserEmail, &encrypted, &issuedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve grant: %w", err)
	}

	grant.AccessToken, err = r.decrypt(encrypted)
	if err != nil {
		return nil, fmt.Errorf("decrypt access token: %w", err)
	}

	grant.IssuedAt, err = parseTime(issuedAt)
	if err != nil {
		return nil, fmt.Errorf("parse issued_at: %w", err)
	}

	return &grant, nil
}

// ResolveUser returns the live grant for a Splitwise user.
// Returns (nil, nil) when the user holds no live grant.
func (r *GrantRepo) ResolveUser(ctx context.Context, userID int64) (*model.Grant, error) {
	const query = `SELECT token, user_id, user_name, user_email, access_token, issued_at
		FROM grants WHERE user_id = ? AND revoked_at IS NULL`

	var grant model.Grant
	var encrypted string
	var issuedAt string
	err := r.db.Reader.QueryRowContext(ctx, query, userID).Scan(
		&grant.Token, &grant.UserID, &grant.UserName, &grant.UserEmail, &encrypted, &issuedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve grant for user %d: %w", userID, err)
	}

	grant.AccessToken, err = r.decrypt(encrypted)
	if err != nil {
		return nil, fmt.Errorf("decrypt access token: %w", err)
	}

	grant.IssuedAt, err = parseTime(issuedAt)
	if err != nil {
		return nil, fmt.Errorf("parse issued_at: %w", err)
	}

	return &grant, nil
}

// Revoke marks the grant for the given token as revoked. Returns false when
// the token is unknown or already revoked, so revocation is idempotent.
func (r *GrantRepo) Revoke(ctx context.Context, token string) (bool, error) {
	const query = `UPDATE grants SET revoked_at = ? WHERE token = ? AND revoked_at IS NULL`
	res, err := r.db.Writer.ExecContext(ctx, query, time.Now().UTC(), token)
	if err != nil {
		return false, fmt.Errorf("revoke grant: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("revoke grant rows affected: %w", err)
	}
	return n > 0, nil
}

// encrypt encrypts plaintext using AES-256-GCM and returns a base64-encoded
// string containing the nonce (12 bytes) prepended to the ciphertext.
func (r *GrantRepo) encrypt(plaintext string) (string, error) {
	block, err := aes.NewCipher(r.key)
	if err != nil {
		return "", fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("cipher.NewGCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("rand nonce: %w", err)
	}

	// Seal appends the ciphertext to nonce, producing: nonce || ciphertext || tag.
	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// decrypt decrypts a base64-encoded AES-256-GCM ciphertext.
func (r *GrantRepo) decrypt(encoded string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("base64 decode: %w", err)
	}

	block, err := aes.NewCipher(r.key)
	if err != nil {
		return "", fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("cipher.NewGCM: %w", err)
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", errors.New("ciphertext too short")
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("gcm.Open: %w", err)
	}

	return string(plaintext), nil
}
