package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// StrategyKind selects how a credential is verified.
type StrategyKind int

const (
	// StrategyNone applies when the credential carries both or neither factor.
	StrategyNone StrategyKind = iota
	StrategyPassword
	StrategyOTP
)

// String returns the label used in logs and metrics.
func (k StrategyKind) String() string {
	switch k {
	case StrategyPassword:
		return "password"
	case StrategyOTP:
		return "otp"
	default:
		return "none"
	}
}

// SelectStrategy applies the exclusive-or rule: a non-empty password with
// no otp parameter, or a non-empty otp with no password parameter. Every
// other combination, including one factor present but empty next to the
// other, selects StrategyNone.
func SelectStrategy(cred Credential) StrategyKind {
	switch {
	case cred.Otp == nil && cred.Password != nil && *cred.Password != "":
		return StrategyPassword
	case cred.Password == nil && cred.Otp != nil && *cred.Otp != "":
		return StrategyOTP
	default:
		return StrategyNone
	}
}

// Authenticator verifies credentials against the user and OTP stores.
type Authenticator struct {
	users  UserRepository
	otps   OtpRepository
	hasher PasswordHasher
	otpGen *OtpGenerator
}

// NewAuthenticator creates an authenticator over the given stores.
func NewAuthenticator(users UserRepository, otps OtpRepository, hasher PasswordHasher, otpGen *OtpGenerator) *Authenticator {
	return &Authenticator{users: users, otps: otps, hasher: hasher, otpGen: otpGen}
}

// Authenticate dispatches cred to its strategy. ErrMalformedRequest means
// no strategy applied; ErrUserNotFound and ErrBadCredentials are strategy
// failures. Any other error is infrastructure.
func (a *Authenticator) Authenticate(ctx context.Context, cred Credential) (*Principal, StrategyKind, error) {
	kind := SelectStrategy(cred)
	email := normalizeEmail(cred.Email)

	var (
		p   *Principal
		err error
	)
	switch kind {
	case StrategyPassword:
		p, err = a.authenticatePassword(ctx, email, *cred.Password)
	case StrategyOTP:
		p, err = a.authenticateOTP(ctx, email, *cred.Otp)
	case StrategyNone:
		err = ErrMalformedRequest
	default:
		err = fmt.Errorf("unknown strategy %d", kind)
	}
	return p, kind, err
}

// authenticatePassword returns a full principal for admins and a reduced
// one for everyone else. A non-admin must still pass the OTP step before
// any authority is granted.
func (a *Authenticator) authenticatePassword(ctx context.Context, email, password string) (*Principal, error) {
	user, err := a.findUser(ctx, email)
	if err != nil {
		return nil, err
	}

	ok, err := a.hasher.Matches(password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verifying password for %s: %w", email, err)
	}
	if !ok {
		return nil, ErrBadCredentials
	}

	if user.Role == RoleAdmin {
		return principalFor(user), nil
	}
	return reducedPrincipalFor(user), nil
}

// authenticateOTP checks the code against the user's stored, unexpired OTP.
func (a *Authenticator) authenticateOTP(ctx context.Context, email, code string) (*Principal, error) {
	user, err := a.findUser(ctx, email)
	if err != nil {
		return nil, err
	}

	otp, err := a.otps.FindByUserID(ctx, user.ID)
	if errors.Is(err, ErrOtpNotFound) {
		return nil, ErrBadCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("loading otp for %s: %w", email, err)
	}
	if !a.otpGen.IsValid(otp) {
		return nil, ErrBadCredentials
	}

	ok, err := a.hasher.Matches(code, otp.CodeHash)
	if err != nil {
		return nil, fmt.Errorf("verifying otp for %s: %w", email, err)
	}
	if !ok {
		return nil, ErrBadCredentials
	}
	return principalFor(user), nil
}

func (a *Authenticator) findUser(ctx context.Context, email string) (*User, error) {
	user, err := a.users.FindByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading user %s: %w", email, err)
	}
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
