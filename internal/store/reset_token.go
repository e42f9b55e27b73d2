package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/devfolio/apiserver/types"
)

// ResetTokenRepository handles persistence for password-reset tokens.
type ResetTokenRepository struct {
	db *sql.DB
}

func NewResetTokenRepository(db *sql.DB) *ResetTokenRepository {
	return &ResetTokenRepository{db: db}
}

// Create deletes any outstanding tokens for the user before inserting the new
// one, so only the newest token is ever usable.
func (r *ResetTokenRepository) Create(ctx context.Context, token types.ResetToken) (types.ResetToken, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return types.ResetToken{}, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM reset_tokens WHERE user_id = $1`, token.UserID); err != nil {
		return types.ResetToken{}, err
	}

	token.CreatedAt = time.Now()
	const query = `
		INSERT INTO reset_tokens (user_id, token_hash, expires_at, consumed, created_at)
		VALUES ($1, $2, $3, FALSE, $4)
		RETURNING id`
	if err := tx.QueryRowContext(
		ctx,
		query,
		token.UserID,
		token.TokenHash,
		token.ExpiresAt,
		token.CreatedAt,
	).Scan(&token.ID); err != nil {
		return types.ResetToken{}, err
	}

	if err := tx.Commit(); err != nil {
		return types.ResetToken{}, err
	}
	return token, nil
}

// Consume atomically marks the matching unconsumed, unexpired token as
// consumed and returns its owner. The conditional UPDATE is the whole
// check-and-set: two concurrent attempts on the same secret cannot both
// succeed. ErrNotFound covers missing, expired, and already-consumed alike.
func (r *ResetTokenRepository) Consume(ctx context.Context, tokenHash string) (int, error) {
	const query = `
		UPDATE reset_tokens
		SET consumed = TRUE
		WHERE token_hash = $1
		  AND NOT consumed
		  AND expires_at > now()
		RETURNING user_id`
	var userID int
	err := r.db.QueryRowContext(ctx, query, tokenHash).Scan(&userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return userID, nil
}

// DeleteExpired removes tokens past their expiry and returns how many were
// deleted. Intended for periodic cleanup.
func (r *ResetTokenRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM reset_tokens WHERE expires_at <= now()`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
