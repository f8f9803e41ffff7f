package auth

import "errors"

// Authentication failures. All of them reach the client as the same 401;
// they exist for server-side branching and logging only.
var (
	// ErrUserNotFound means no user is registered under the email.
	ErrUserNotFound = errors.New("user not found")

	// ErrBadCredentials covers a password or OTP mismatch and a missing or
	// expired OTP.
	ErrBadCredentials = errors.New("bad credentials")

	// ErrInvalidToken is the umbrella for every signature, encoding, or
	// expiry failure of a JWT.
	ErrInvalidToken = errors.New("invalid token")

	// ErrRevokedSession means the token verifies but no live record backs it.
	ErrRevokedSession = errors.New("revoked session")

	// ErrMalformedRequest means the login carried both or neither of
	// password and otp, so no strategy applies.
	ErrMalformedRequest = errors.New("exactly one of password or otp is required")

	// ErrEmailTaken is returned by the user store on a duplicate email.
	ErrEmailTaken = errors.New("email already registered")
)

// Token verification failures, each wrapping ErrInvalidToken.
var (
	ErrTokenMalformed   = wrapInvalid("token malformed")
	ErrTokenSignature   = wrapInvalid("token signature invalid")
	ErrTokenUnparseable = wrapInvalid("token claims unparseable")
	ErrTokenExpired     = wrapInvalid("token expired")
	ErrTokenSubject     = wrapInvalid("token subject mismatch")
)

// tokenError is a named token failure that unwraps to ErrInvalidToken.
type tokenError struct {
	msg string
}

func (e *tokenError) Error() string { return e.msg }
func (e *tokenError) Unwrap() error { return ErrInvalidToken }

func wrapInvalid(msg string) error {
	return &tokenError{msg: msg}
}

// IsAuthFailure reports whether err is one of the 401-class failures above,
// as opposed to an infrastructure error.
func IsAuthFailure(err error) bool {
	return errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrBadCredentials) ||
		errors.Is(err, ErrInvalidToken) ||
		errors.Is(err, ErrRevokedSession) ||
		errors.Is(err, ErrMalformedRequest)
}
