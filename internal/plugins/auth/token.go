package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the verified payload of an access or refresh token.
type Claims struct {
	jwt.RegisteredClaims
}

// Signer mints and verifies HS256 tokens with a key fixed at construction.
// It holds no mutable state and is safe for concurrent use.
type Signer struct {
	key []byte
	now func() time.Time
}

// SignerOption customizes a Signer.
type SignerOption func(*Signer)

// WithClock replaces time.Now, used by tests to pin token lifetimes.
func WithClock(now func() time.Time) SignerOption {
	return func(s *Signer) {
		s.now = now
	}
}

// NewSigner creates a signer over the given HMAC key.
func NewSigner(key []byte, opts ...SignerOption) (*Signer, error) {
	if len(key) == 0 {
		return nil, errors.New("signing key is empty")
	}
	s := &Signer{
		key: append([]byte(nil), key...),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Mint signs a token for subject that expires ttl from now. Extra claims
// are copied into the payload; sub, iat and exp always win.
func (s *Signer) Mint(subject string, extra map[string]any, ttl time.Duration) (string, error) {
	now := s.now()

	claims := jwt.MapClaims{}
	for k, v := range extra {
		claims[k] = v
	}
	claims["sub"] = subject
	claims["iat"] = jwt.NewNumericDate(now)
	claims["exp"] = jwt.NewNumericDate(now.Add(ttl))

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Verify checks the encoding and HS256 signature of token and returns its
// claims. Expiry is not checked here; see IsExpired and Validate.
func (s *Signer) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return s.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	switch {
	case err == nil:
		return claims, nil
	case errors.Is(err, jwt.ErrTokenMalformed):
		return nil, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return nil, fmt.Errorf("%w: %v", ErrTokenSignature, err)
	default:
		return nil, fmt.Errorf("%w: %v", ErrTokenUnparseable, err)
	}
}

// IsExpired reports whether the claims' expiry lies before now. Tokens
// without an expiry are treated as expired.
func (s *Signer) IsExpired(claims *Claims) bool {
	if claims.ExpiresAt == nil {
		return true
	}
	return claims.ExpiresAt.Time.Before(s.now())
}

// Remaining returns the time left until the claims expire, never negative.
func (s *Signer) Remaining(claims *Claims) time.Duration {
	if claims.ExpiresAt == nil {
		return 0
	}
	return max(claims.ExpiresAt.Time.Sub(s.now()), 0)
}

// Validate verifies token and requires it to belong to subject and be
// unexpired.
func (s *Signer) Validate(token, subject string) (*Claims, error) {
	claims, err := s.Verify(token)
	if err != nil {
		return nil, err
	}
	if claims.Subject != subject {
		return nil, ErrTokenSubject
	}
	if s.IsExpired(claims) {
		return nil, ErrTokenExpired
	}
	return claims, nil
}
