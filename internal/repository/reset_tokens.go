package repository

import (
	"context"
	"time"

	"github.com/mrpavithran/SmartCanteen/internal/model"
)

// Reset tokens are stored hashed. When Redis is configured the http layer
// keeps them there instead and these rows are never written.

func (s *Store) CreateResetToken(ctx context.Context, token model.ResetToken) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO password_reset_tokens (token_hash, user_id, expires_at, created_at)
		VALUES ($1, $2, $3, $4)
	`, token.TokenHash, token.UserID, token.ExpiresAt, token.CreatedAt)
	return err
}

// ConsumeResetToken deletes the row and returns it, so a token can only be
// redeemed once. Expired tokens are treated as missing.
func (s *Store) ConsumeResetToken(ctx context.Context, tokenHash string) (model.ResetToken, error) {
	var token model.ResetToken
	row := s.pool.QueryRow(ctx, `
		DELETE FROM password_reset_tokens
		WHERE token_hash = $1 AND expires_at > $2
		RETURNING token_hash, user_id, expires_at, created_at
	`, tokenHash, time.Now().UTC())
	err := row.Scan(&token.TokenHash, &token.UserID, &token.ExpiresAt, &token.CreatedAt)
	if err != nil {
		return model.ResetToken{}, err
	}
	return token, nil
}

func (s *Store) PurgeExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM password_reset_tokens WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
