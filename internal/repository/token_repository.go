package repository

import (
	"context"
	"database/sql"
	"time"
)

// TokenRepo persists the refresh token hash held on each user row. A user
// has at most one live refresh token; storing a new one replaces it.
type TokenRepo struct{ db *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{db: db} }

// StoreRefresh records the hash and expiry of the user's refresh token.
func (r *TokenRepo) StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE users SET refresh_token_hash = ?, refresh_expires_at = ? WHERE id = ?",
		tokenHash, exp, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ValidateRefresh returns the user id holding an unexpired token with this hash.
func (r *TokenRepo) ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error) {
	var (
		userID    uint64
		expiresAt sql.NullTime
	)
	err := r.db.QueryRowContext(ctx,
		"SELECT id, refresh_expires_at FROM users WHERE refresh_token_hash = ? LIMIT 1",
		tokenHash).Scan(&userID, &expiresAt)
	if err == sql.ErrNoRows {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	if !expiresAt.Valid || time.Now().UTC().After(expiresAt.Time) {
		return 0, ErrNotFound
	}
	return userID, nil
}

// Revoke clears the user's refresh token.
func (r *TokenRepo) Revoke(ctx context.Context, userID uint64) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE users SET refresh_token_hash = NULL, refresh_expires_at = NULL WHERE id = ?",
		userID)
	return err
}
