// Package auth handles user identity for the auth server: registration,
// password and one-time-password login, JWT access/refresh token issuance
// and revocation, and the request middleware that re-establishes identity
// and enforces role-based access on every request.
package auth

import (
	"time"
)

// Role is the single authority a user holds.
type Role string

const (
	RoleUser      Role = "USER"
	RoleAdmin     Role = "ADMIN"
	RoleModerator Role = "MODERATOR"
)

// Status is the account lifecycle state. Mutated only by administrative action.
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusInactive  Status = "INACTIVE"
	StatusSuspended Status = "SUSPENDED"
	StatusDeleted   Status = "DELETED"
)

// User represents a registered account. Database scanning and JSON
// marshaling use this struct directly.
type User struct {
	ID           int64      `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"` // Never expose in JSON responses.
	FirstName    string     `json:"firstName"`
	LastName     string     `json:"lastName"`
	PhoneNumber  *string    `json:"phoneNumber,omitempty"`
	Status       Status     `json:"status"`
	Role         Role       `json:"role"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	LastLoginAt  *time.Time `json:"lastLogin,omitempty"`
}

// Token is a persisted refresh token. Rows are never deleted; revocation
// flips both flags so the table doubles as a revocation log.
type Token struct {
	ID        int64
	Token     string
	UserID    int64
	Expired   bool
	Revoked   bool
	CreatedAt time.Time
}

// Valid reports whether the token can still authenticate.
func (t *Token) Valid() bool {
	return !t.Expired && !t.Revoked
}

// Otp is the single outstanding one-time password of a user. The code is
// stored hashed and overwritten on every challenge.
type Otp struct {
	UserID    int64
	CodeHash  string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// --- Principal ---

// Principal is the resolved, request-scoped identity. A principal with no
// authorities and Authenticated=false is the intermediate result of a
// non-admin password login: the password matched but a second factor is
// still owed.
type Principal struct {
	UserID        int64
	Username      string
	Credential    string
	Authorities   []Role
	Authenticated bool
}

// principalFor builds the full-authority principal for a stored user.
func principalFor(u *User) *Principal {
	return &Principal{
		UserID:        u.ID,
		Username:      u.Email,
		Credential:    u.PasswordHash,
		Authorities:   []Role{u.Role},
		Authenticated: true,
	}
}

// reducedPrincipalFor carries only the username and credential hash.
func reducedPrincipalFor(u *User) *Principal {
	return &Principal{
		UserID:     u.ID,
		Username:   u.Email,
		Credential: u.PasswordHash,
	}
}

// HasAny reports whether the principal holds at least one of the roles.
func (p *Principal) HasAny(roles ...Role) bool {
	if p == nil {
		return false
	}
	for _, have := range p.Authorities {
		for _, want := range roles {
			if have == want {
				return true
			}
		}
	}
	return false
}

// --- Credential (login input) ---

// Credential is a login attempt: an email plus exactly one of password or
// otp. A nil field means the parameter was absent from the request, which
// is distinct from present-but-empty.
type Credential struct {
	Email    string
	Password *string
	Otp      *string
}

// --- Request / response DTOs ---

// RegisterRequest holds the JSON body of POST /auth/register.
type RegisterRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// RegisterInput is the input for creating a new user.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// LoginResponse is the body returned after a full sign-in.
type LoginResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

// --- Login outcome ---

// LoginState is the terminal state of a login call.
type LoginState int

const (
	// LoginRejected means no identity was established.
	LoginRejected LoginState = iota

	// LoginChallengeIssued means the password matched and an OTP was sent;
	// no tokens were issued.
	LoginChallengeIssued

	// LoginSignedIn means tokens were minted and the refresh token persisted.
	LoginSignedIn
)

// String returns the label used in logs and metrics.
func (s LoginState) String() string {
	switch s {
	case LoginChallengeIssued:
		return "challenge_issued"
	case LoginSignedIn:
		return "signed_in"
	default:
		return "rejected"
	}
}

// Session is the result of a successful token issuance.
type Session struct {
	User             *User
	AccessToken      string
	RefreshToken     string
	RefreshExpiresAt time.Time

	// RefreshMaxAge is the remaining refresh lifetime, used as cookie Max-Age.
	RefreshMaxAge time.Duration
}

// LoginResult describes how a login call ended. Reason is set for rejected
// logins and is for server-side branching only.
type LoginResult struct {
	State   LoginState
	Reason  error
	User    *User
	Session *Session
}
