package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AuthService defines the business logic contract for authentication.
// Handlers and middleware call these methods -- they never touch the
// repositories directly.
type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*User, error)

	// Login runs the credential chain. Authentication failures come back as
	// a LoginRejected result with a nil error; the error return is reserved
	// for infrastructure failures.
	Login(ctx context.Context, cred Credential) (*LoginResult, error)

	// Refresh re-issues a session for an already established identity.
	Refresh(ctx context.Context, p *Principal) (*Session, error)

	// Logout revokes every valid refresh token of the identity's user.
	Logout(ctx context.Context, p *Principal) error

	// AuthenticateAccessToken reconstructs identity from a bearer token.
	AuthenticateAccessToken(ctx context.Context, token string) (*Principal, error)

	// AuthenticateRefreshToken reconstructs identity from the refresh cookie.
	AuthenticateRefreshToken(ctx context.Context, token string) (*Principal, error)
}

// MetricsRecorder receives auth outcomes. Implemented by the observability
// package; NoopMetrics is used when metrics are disabled.
type MetricsRecorder interface {
	LoginOutcome(strategy, outcome string)
	TokenCheck(filter, result string)
}

// NoopMetrics discards everything.
type NoopMetrics struct{}

func (NoopMetrics) LoginOutcome(string, string) {}
func (NoopMetrics) TokenCheck(string, string)   {}

// ServiceConfig holds the longevities the service issues credentials with.
type ServiceConfig struct {
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	OTPTTL          time.Duration
}

// Deps bundles the collaborators of the auth service.
type Deps struct {
	Users   UserRepository
	Tokens  TokenRepository
	Otps    OtpRepository
	Hasher  PasswordHasher
	Signer  *Signer
	OtpGen  *OtpGenerator
	Sender  CodeSender
	Locker  SessionLocker
	Metrics MetricsRecorder
}

// authService implements AuthService.
type authService struct {
	users   UserRepository
	tokens  TokenRepository
	otps    OtpRepository
	hasher  PasswordHasher
	signer  *Signer
	otpGen  *OtpGenerator
	sender  CodeSender
	locker  SessionLocker
	metrics MetricsRecorder
	authn   *Authenticator
	cfg     ServiceConfig
	now     func() time.Time
}

// NewAuthService creates a new auth service with the given dependencies.
// Optional collaborators (sender, locker, metrics) default to no-ops.
func NewAuthService(deps Deps, cfg ServiceConfig) AuthService {
	return newAuthService(deps, cfg)
}

func newAuthService(deps Deps, cfg ServiceConfig) *authService {
	if deps.OtpGen == nil {
		deps.OtpGen = NewOtpGenerator()
	}
	if deps.Sender == nil {
		deps.Sender = LogCodeSender{}
	}
	if deps.Locker == nil {
		deps.Locker = NoopLocker{}
	}
	if deps.Metrics == nil {
		deps.Metrics = NoopMetrics{}
	}
	return &authService{
		users:   deps.Users,
		tokens:  deps.Tokens,
		otps:    deps.Otps,
		hasher:  deps.Hasher,
		signer:  deps.Signer,
		otpGen:  deps.OtpGen,
		sender:  deps.Sender,
		locker:  deps.Locker,
		metrics: deps.Metrics,
		authn:   NewAuthenticator(deps.Users, deps.Otps, deps.Hasher, deps.OtpGen),
		cfg:     cfg,
		now:     time.Now,
	}
}

// Register hashes the password and persists a USER account.
func (s *authService) Register(ctx context.Context, input RegisterInput) (*User, error) {
	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	now := s.now().UTC()
	user := &User{
		Email:        normalizeEmail(input.Email),
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Status:       StatusActive,
		Role:         RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	slog.Info("user registered",
		slog.Int64("user_id", user.ID),
		slog.String("email", user.Email),
	)
	return user, nil
}

// Login authenticates cred and drives it to a terminal state.
func (s *authService) Login(ctx context.Context, cred Credential) (*LoginResult, error) {
	p, kind, err := s.authn.Authenticate(ctx, cred)
	if err != nil {
		if IsAuthFailure(err) {
			return s.reject(ctx, kind, cred.Email, err), nil
		}
		return nil, fmt.Errorf("authenticating: %w", err)
	}

	user, err := s.users.FindByID(ctx, p.UserID)
	if errors.Is(err, ErrUserNotFound) {
		return s.reject(ctx, kind, cred.Email, err), nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading user: %w", err)
	}

	if !p.Authenticated {
		if err := s.issueChallenge(ctx, user); err != nil {
			return nil, err
		}
		s.metrics.LoginOutcome(kind.String(), LoginChallengeIssued.String())
		slog.Info("otp challenge issued",
			slog.Int64("user_id", user.ID),
			slog.String("email", user.Email),
		)
		return &LoginResult{State: LoginChallengeIssued, User: user}, nil
	}

	session, err := s.issueSession(ctx, user)
	if err != nil {
		return nil, err
	}
	s.metrics.LoginOutcome(kind.String(), LoginSignedIn.String())
	slog.Info("user logged in",
		slog.Int64("user_id", user.ID),
		slog.String("email", user.Email),
		slog.String("strategy", kind.String()),
	)
	return &LoginResult{State: LoginSignedIn, User: user, Session: session}, nil
}

func (s *authService) reject(ctx context.Context, kind StrategyKind, email string, reason error) *LoginResult {
	s.metrics.LoginOutcome(kind.String(), LoginRejected.String())
	slog.InfoContext(ctx, "login rejected",
		slog.String("email", normalizeEmail(email)),
		slog.String("strategy", kind.String()),
		slog.String("reason", reason.Error()),
	)
	return &LoginResult{State: LoginRejected, Reason: reason}
}

// Refresh loads the identity's user and issues a fresh session.
func (s *authService) Refresh(ctx context.Context, p *Principal) (*Session, error) {
	user, err := s.userFor(ctx, p)
	if err != nil {
		return nil, err
	}
	return s.issueSession(ctx, user)
}

// Logout revokes all valid refresh tokens of the identity's user.
func (s *authService) Logout(ctx context.Context, p *Principal) error {
	user, err := s.userFor(ctx, p)
	if err != nil {
		return err
	}

	n, err := s.tokens.RevokeAllForUser(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("revoking sessions: %w", err)
	}

	slog.Info("user logged out",
		slog.Int64("user_id", user.ID),
		slog.Int64("revoked", n),
	)
	return nil
}

func (s *authService) userFor(ctx context.Context, p *Principal) (*User, error) {
	if p == nil {
		return nil, ErrInvalidToken
	}
	user, err := s.users.FindByEmail(ctx, p.Username)
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading user: %w", err)
	}
	return user, nil
}

// --- Issuance ---

// issueChallenge writes a new OTP for the user, overwriting any previous
// one, and hands the plaintext code to the sender.
func (s *authService) issueChallenge(ctx context.Context, user *User) error {
	code, err := s.otpGen.Generate()
	if err != nil {
		return err
	}
	hash, err := s.hasher.Hash(code)
	if err != nil {
		return fmt.Errorf("hashing otp: %w", err)
	}

	now := s.now().UTC()
	otp := &Otp{
		UserID:    user.ID,
		CodeHash:  hash,
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.OTPTTL),
	}
	if err := s.otps.Upsert(ctx, otp); err != nil {
		return fmt.Errorf("saving otp: %w", err)
	}

	if err := s.sender.SendCode(ctx, user, code); err != nil {
		return fmt.Errorf("sending otp: %w", err)
	}
	return nil
}

// issueSession revokes the user's live tokens, then mints and persists a new
// pair. The sequence runs under the per-user session lock.
func (s *authService) issueSession(ctx context.Context, user *User) (*Session, error) {
	unlock, err := s.locker.Lock(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("locking session for user %d: %w", user.ID, err)
	}
	defer unlock()

	if _, err := s.tokens.RevokeAllForUser(ctx, user.ID); err != nil {
		return nil, fmt.Errorf("revoking previous sessions: %w", err)
	}

	// jti keeps two tokens minted within the same second distinct.
	access, err := s.signer.Mint(user.Email, map[string]any{"jti": uuid.NewString()}, s.cfg.AccessTokenTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := s.signer.Mint(user.Email, map[string]any{"jti": uuid.NewString()}, s.cfg.RefreshTokenTTL)
	if err != nil {
		return nil, err
	}

	record := &Token{
		Token:     refresh,
		UserID:    user.ID,
		CreatedAt: s.now().UTC(),
	}
	if err := s.tokens.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("saving refresh token: %w", err)
	}

	claims, err := s.signer.Verify(refresh)
	if err != nil {
		return nil, fmt.Errorf("reading refresh token: %w", err)
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID); err != nil {
		slog.Warn("failed to update last login",
			slog.Int64("user_id", user.ID),
			slog.Any("error", err),
		)
	}

	return &Session{
		User:             user,
		AccessToken:      access,
		RefreshToken:     refresh,
		RefreshExpiresAt: claims.ExpiresAt.Time,
		RefreshMaxAge:    s.signer.Remaining(claims),
	}, nil
}

// --- Request-time identity ---

// AuthenticateAccessToken accepts a bearer token only if it verifies for a
// known user and that user still holds a live refresh token, so a global
// logout also disables outstanding access tokens.
func (s *authService) AuthenticateAccessToken(ctx context.Context, token string) (*Principal, error) {
	p, err := s.authenticateAccess(ctx, token)
	s.metrics.TokenCheck("access", checkResult(err))
	return p, err
}

func (s *authService) authenticateAccess(ctx context.Context, token string) (*Principal, error) {
	claims, err := s.signer.Verify(token)
	if err != nil {
		return nil, err
	}
	subject := claims.Subject
	if subject == "" {
		return nil, ErrTokenUnparseable
	}

	user, err := s.users.FindByEmail(ctx, subject)
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("authenticating token for %s: %w", subject, err)
	}

	if _, err := s.signer.Validate(token, user.Email); err != nil {
		return nil, err
	}

	live, err := s.tokens.HasValidToken(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("authenticating token for %s: %w", subject, err)
	}
	if !live {
		return nil, ErrRevokedSession
	}
	return principalFor(user), nil
}

// AuthenticateRefreshToken accepts the cookie token only if its exact
// string is stored, unrevoked, and still verifies for its subject.
func (s *authService) AuthenticateRefreshToken(ctx context.Context, token string) (*Principal, error) {
	p, err := s.authenticateRefresh(ctx, token)
	s.metrics.TokenCheck("refresh", checkResult(err))
	return p, err
}

func (s *authService) authenticateRefresh(ctx context.Context, token string) (*Principal, error) {
	claims, err := s.signer.Verify(token)
	if err != nil {
		return nil, err
	}
	subject := claims.Subject
	if subject == "" {
		return nil, ErrTokenUnparseable
	}

	user, err := s.users.FindByEmail(ctx, subject)
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("authenticating cookie for %s: %w", subject, err)
	}

	record, err := s.tokens.FindByToken(ctx, token)
	if errors.Is(err, ErrTokenNotFound) {
		return nil, ErrRevokedSession
	}
	if err != nil {
		return nil, fmt.Errorf("authenticating cookie for %s: %w", subject, err)
	}
	if !record.Valid() || record.UserID != user.ID {
		return nil, ErrRevokedSession
	}

	if _, err := s.signer.Validate(token, user.Email); err != nil {
		return nil, err
	}
	return principalFor(user), nil
}

// checkResult maps a verification error to a metrics label.
func checkResult(err error) string {
	switch {
	case err == nil:
		return "accepted"
	case errors.Is(err, ErrRevokedSession):
		return "revoked"
	case errors.Is(err, ErrInvalidToken):
		return "invalid"
	case errors.Is(err, ErrUserNotFound):
		return "unknown_user"
	default:
		return "error"
	}
}
