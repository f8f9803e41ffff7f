package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrOtpNotFound is returned when the user has never been challenged.
var ErrOtpNotFound = errors.New("otp not found")

// OtpRepository stores the single outstanding OTP of each user.
type OtpRepository interface {
	FindByUserID(ctx context.Context, userID int64) (*Otp, error)

	// Upsert creates the user's OTP row or overwrites it in place.
	Upsert(ctx context.Context, otp *Otp) error
}

type otpRepository struct {
	db *sql.DB
}

// NewOtpRepository creates an OTP repository backed by the given DB pool.
func NewOtpRepository(db *sql.DB) OtpRepository {
	return &otpRepository{db: db}
}

// FindByUserID returns the user's OTP or ErrOtpNotFound.
func (r *otpRepository) FindByUserID(ctx context.Context, userID int64) (*Otp, error) {
	query := `SELECT user_id, code_hash, created_at, expires_at FROM otps WHERE user_id = ?`

	otp := &Otp{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&otp.UserID, &otp.CodeHash, &otp.CreatedAt, &otp.ExpiresAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOtpNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying otp: %w", err)
	}
	return otp, nil
}

// Upsert writes the OTP keyed on user_id.
func (r *otpRepository) Upsert(ctx context.Context, otp *Otp) error {
	query := `INSERT INTO otps (user_id, code_hash, created_at, expires_at)
	          VALUES (?, ?, ?, ?)
	          ON DUPLICATE KEY UPDATE
	              code_hash = VALUES(code_hash),
	              created_at = VALUES(created_at),
	              expires_at = VALUES(expires_at)`

	if _, err := r.db.ExecContext(ctx, query,
		otp.UserID, otp.CodeHash, otp.CreatedAt, otp.ExpiresAt,
	); err != nil {
		return fmt.Errorf("upserting otp: %w", err)
	}
	return nil
}
