package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// ErrRefreshRejected is returned for a refresh token that is unknown,
// expired, or already used.
var ErrRefreshRejected = errors.New("refresh token rejected")

// RefreshTokenStore keeps the SHA-256 digests of issued refresh tokens.
// A token is single use: Consume retires it while reporting its owner.
type RefreshTokenStore struct {
	DB  *sql.DB
	now func() time.Time
}

func NewRefreshTokenStore(db *sql.DB) *RefreshTokenStore {
	return &RefreshTokenStore{DB: db, now: time.Now}
}

// Save records a freshly issued token for userID.
func (s *RefreshTokenStore) Save(ctx context.Context, userID uint64, digest string, expiresAt time.Time) error {
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO refresh_tokens (user_id, token_hash, expires_at, created_at) VALUES (?, ?, ?, ?)`,
		userID, digest, timestamp(expiresAt), timestamp(s.now()))
	return err
}

// Consume retires a live token and returns the user it was issued to.
// When two callers present the same token only one of them wins.
func (s *RefreshTokenStore) Consume(ctx context.Context, digest string) (uint64, error) {
	now := timestamp(s.now())
	var id, userID uint64
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, user_id FROM refresh_tokens
		 WHERE token_hash = ? AND revoked_at IS NULL AND expires_at > ?`,
		digest, now).Scan(&id, &userID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrRefreshRejected
	}
	if err != nil {
		return 0, err
	}

	res, err := s.DB.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked_at = ? WHERE id = ? AND revoked_at IS NULL`,
		now, id)
	if err != nil {
		return 0, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return 0, err
	} else if n == 0 {
		return 0, ErrRefreshRejected
	}
	return userID, nil
}

// RevokeUser retires every outstanding token of userID, signing the
// user out on all devices.
func (s *RefreshTokenStore) RevokeUser(ctx context.Context, userID uint64) error {
	_, err := s.DB.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked_at = ? WHERE user_id = ? AND revoked_at IS NULL`,
		timestamp(s.now()), userID)
	return err
}
