package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrTokenNotFound is returned when no row holds the given token string.
var ErrTokenNotFound = errors.New("token not found")

// TokenRepository stores refresh tokens. Each statement is atomic on its
// own; callers needing revoke-then-insert atomicity use a SessionLocker.
type TokenRepository interface {
	Create(ctx context.Context, token *Token) error
	FindByToken(ctx context.Context, token string) (*Token, error)
	HasValidToken(ctx context.Context, userID int64) (bool, error)

	// RevokeAllForUser flags every still-valid token of the user as expired
	// and revoked, returning the number of rows changed.
	RevokeAllForUser(ctx context.Context, userID int64) (int64, error)
}

type tokenRepository struct {
	db *sql.DB
}

// NewTokenRepository creates a token repository backed by the given DB pool.
func NewTokenRepository(db *sql.DB) TokenRepository {
	return &tokenRepository{db: db}
}

// Create inserts a token row and fills in its ID.
func (r *tokenRepository) Create(ctx context.Context, token *Token) error {
	query := `INSERT INTO tokens (token, user_id, expired, revoked, created_at)
	          VALUES (?, ?, ?, ?, ?)`

	res, err := r.db.ExecContext(ctx, query,
		token.Token,
		token.UserID,
		token.Expired,
		token.Revoked,
		token.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting token: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading token id: %w", err)
	}
	token.ID = id
	return nil
}

// FindByToken looks up a row by its exact token string.
func (r *tokenRepository) FindByToken(ctx context.Context, token string) (*Token, error) {
	query := `SELECT id, token, user_id, expired, revoked, created_at
	          FROM tokens WHERE token = ?`

	t := &Token{}
	err := r.db.QueryRowContext(ctx, query, token).Scan(
		&t.ID, &t.Token, &t.UserID, &t.Expired, &t.Revoked, &t.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying token: %w", err)
	}
	return t, nil
}

// HasValidToken reports whether the user holds at least one live token.
func (r *tokenRepository) HasValidToken(ctx context.Context, userID int64) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM tokens
	          WHERE user_id = ? AND expired = FALSE AND revoked = FALSE)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking valid tokens: %w", err)
	}
	return exists, nil
}

// RevokeAllForUser marks every valid token of the user expired and revoked.
func (r *tokenRepository) RevokeAllForUser(ctx context.Context, userID int64) (int64, error) {
	query := `UPDATE tokens SET expired = TRUE, revoked = TRUE
	          WHERE user_id = ? AND (expired = FALSE OR revoked = FALSE)`

	res, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("revoking tokens: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
