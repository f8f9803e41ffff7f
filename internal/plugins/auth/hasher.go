package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher is a one-way salted hash with a constant-time compare.
// Used for both account passwords and OTP codes.
type PasswordHasher interface {
	Hash(plain string) (string, error)

	// Matches returns (false, nil) on mismatch and an error only for a
	// corrupt hash.
	Matches(plain, hash string) (bool, error)
}

// BcryptHasher implements PasswordHasher via bcrypt.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher creates a bcrypt hasher, falling back to the library
// default for out-of-range costs.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

// Hash returns the bcrypt encoding of plain.
func (h *BcryptHasher) Hash(plain string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", fmt.Errorf("hashing: %w", err)
	}
	return string(hashed), nil
}

// Matches compares plain against a bcrypt hash.
func (h *BcryptHasher) Matches(plain, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("comparing hash: %w", err)
	}
}
