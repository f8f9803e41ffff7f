package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// testKey is a 32-byte HMAC key used throughout the package tests.
var testKey = []byte("0123456789abcdef0123456789abcdef")

// --- Clock ---

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// --- In-memory stores ---

// memStore backs the three repositories with maps so tests can exercise
// complete login, refresh and logout flows.
type memStore struct {
	mu          sync.Mutex
	users       map[int64]*User
	tokens      []*Token
	otps        map[int64]*Otp
	nextUserID  int64
	nextTokenID int64
}

func newMemStore() *memStore {
	return &memStore{
		users: make(map[int64]*User),
		otps:  make(map[int64]*Otp),
	}
}

func (s *memStore) validTokens(userID int64) []Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Token
	for _, t := range s.tokens {
		if t.UserID == userID && t.Valid() {
			out = append(out, *t)
		}
	}
	return out
}

func (s *memStore) tokenCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tokens)
}

func (s *memStore) otpFor(userID int64) (Otp, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.otps[userID]
	if !ok {
		return Otp{}, false
	}
	return *o, true
}

type memUsers struct{ s *memStore }

func (r memUsers) Create(_ context.Context, user *User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == user.Email {
			return ErrEmailTaken
		}
	}
	r.s.nextUserID++
	user.ID = r.s.nextUserID
	cp := *user
	r.s.users[user.ID] = &cp
	return nil
}

func (r memUsers) FindByID(_ context.Context, id int64) (*User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r memUsers) FindByEmail(_ context.Context, email string) (*User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrUserNotFound
}

func (r memUsers) UpdateLastLogin(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if u, ok := r.s.users[id]; ok {
		now := time.Now().UTC()
		u.LastLoginAt = &now
	}
	return nil
}

type memTokens struct{ s *memStore }

func (r memTokens) Create(_ context.Context, token *Token) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.tokens {
		if t.Token == token.Token {
			return errors.New("duplicate token")
		}
	}
	r.s.nextTokenID++
	token.ID = r.s.nextTokenID
	cp := *token
	r.s.tokens = append(r.s.tokens, &cp)
	return nil
}

func (r memTokens) FindByToken(_ context.Context, token string) (*Token, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.tokens {
		if t.Token == token {
			cp := *t
			return &cp, nil
		}
	}
	return nil, ErrTokenNotFound
}

func (r memTokens) HasValidToken(_ context.Context, userID int64) (bool, error) {
	return len(r.s.validTokens(userID)) > 0, nil
}

func (r memTokens) RevokeAllForUser(_ context.Context, userID int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, t := range r.s.tokens {
		if t.UserID == userID && t.Valid() {
			t.Expired, t.Revoked = true, true
			n++
		}
	}
	return n, nil
}

type memOtps struct{ s *memStore }

func (r memOtps) FindByUserID(_ context.Context, userID int64) (*Otp, error) {
	o, ok := r.s.otpFor(userID)
	if !ok {
		return nil, ErrOtpNotFound
	}
	return &o, nil
}

func (r memOtps) Upsert(_ context.Context, otp *Otp) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *otp
	r.s.otps[otp.UserID] = &cp
	return nil
}

// --- Mock repositories for failure injection ---

// mockUserRepo implements UserRepository for testing.
type mockUserRepo struct {
	createFn          func(ctx context.Context, user *User) error
	findByIDFn        func(ctx context.Context, id int64) (*User, error)
	findByEmailFn     func(ctx context.Context, email string) (*User, error)
	updateLastLoginFn func(ctx context.Context, id int64) error
}

func (m *mockUserRepo) Create(ctx context.Context, user *User) error {
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return nil
}

func (m *mockUserRepo) FindByID(ctx context.Context, id int64) (*User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, ErrUserNotFound
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*User, error) {
	if m.findByEmailFn != nil {
		return m.findByEmailFn(ctx, email)
	}
	return nil, ErrUserNotFound
}

func (m *mockUserRepo) UpdateLastLogin(ctx context.Context, id int64) error {
	if m.updateLastLoginFn != nil {
		return m.updateLastLoginFn(ctx, id)
	}
	return nil
}

// mockTokenRepo implements TokenRepository for testing.
type mockTokenRepo struct {
	createFn           func(ctx context.Context, token *Token) error
	findByTokenFn      func(ctx context.Context, token string) (*Token, error)
	hasValidTokenFn    func(ctx context.Context, userID int64) (bool, error)
	revokeAllForUserFn func(ctx context.Context, userID int64) (int64, error)
}

func (m *mockTokenRepo) Create(ctx context.Context, token *Token) error {
	if m.createFn != nil {
		return m.createFn(ctx, token)
	}
	return nil
}

func (m *mockTokenRepo) FindByToken(ctx context.Context, token string) (*Token, error) {
	if m.findByTokenFn != nil {
		return m.findByTokenFn(ctx, token)
	}
	return nil, ErrTokenNotFound
}

func (m *mockTokenRepo) HasValidToken(ctx context.Context, userID int64) (bool, error) {
	if m.hasValidTokenFn != nil {
		return m.hasValidTokenFn(ctx, userID)
	}
	return false, nil
}

func (m *mockTokenRepo) RevokeAllForUser(ctx context.Context, userID int64) (int64, error) {
	if m.revokeAllForUserFn != nil {
		return m.revokeAllForUserFn(ctx, userID)
	}
	return 0, nil
}

// --- Sender and metrics doubles ---

// capturingSender records the last code sent to each user.
type capturingSender struct {
	mu    sync.Mutex
	codes map[int64]string
	sends int
}

func (s *capturingSender) SendCode(_ context.Context, user *User, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.codes == nil {
		s.codes = make(map[int64]string)
	}
	s.codes[user.ID] = code
	s.sends++
	return nil
}

func (s *capturingSender) code(userID int64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.codes[userID]
}

// recordingMetrics counts outcomes by label pair.
type recordingMetrics struct {
	mu     sync.Mutex
	logins map[string]int
	checks map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{logins: map[string]int{}, checks: map[string]int{}}
}

func (m *recordingMetrics) LoginOutcome(strategy, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logins[strategy+"/"+outcome]++
}

func (m *recordingMetrics) TokenCheck(filter, result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checks[filter+"/"+result]++
}

// --- Environment ---

var testServiceConfig = ServiceConfig{
	AccessTokenTTL:  15 * time.Minute,
	RefreshTokenTTL: 7 * 24 * time.Hour,
	OTPTTL:          5 * time.Minute,
}

// testEnv is a fully wired service over in-memory stores and a fake clock.
type testEnv struct {
	store   *memStore
	clock   *testClock
	sender  *capturingSender
	metrics *recordingMetrics
	hasher  *BcryptHasher
	signer  *Signer
	svc     *authService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := newMemStore()
	return newTestEnvWith(t, store, memUsers{store}, memTokens{store})
}

// newTestEnvWith builds an env with replacement user and token repositories.
func newTestEnvWith(t *testing.T, store *memStore, users UserRepository, tokens TokenRepository) *testEnv {
	t.Helper()

	clock := newTestClock()
	signer, err := NewSigner(testKey, WithClock(clock.Now))
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}

	env := &testEnv{
		store:   store,
		clock:   clock,
		sender:  &capturingSender{},
		metrics: newRecordingMetrics(),
		hasher:  NewBcryptHasher(bcrypt.MinCost),
		signer:  signer,
	}

	env.svc = newAuthService(Deps{
		Users:   users,
		Tokens:  tokens,
		Otps:    memOtps{store},
		Hasher:  env.hasher,
		Signer:  signer,
		OtpGen:  &OtpGenerator{rand: rand.Reader, now: clock.Now},
		Sender:  env.sender,
		Metrics: env.metrics,
	}, testServiceConfig)
	env.svc.now = clock.Now
	return env
}

// seedUser stores a user with the given role and plaintext password.
func (e *testEnv) seedUser(t *testing.T, email, password string, role Role) *User {
	t.Helper()
	hash, err := e.hasher.Hash(password)
	if err != nil {
		t.Fatalf("hashing: %v", err)
	}
	u := &User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    "Ash",
		LastName:     "Ketchum",
		Status:       StatusActive,
		Role:         role,
		CreatedAt:    e.clock.Now(),
		UpdatedAt:    e.clock.Now(),
	}
	if err := (memUsers{e.store}).Create(context.Background(), u); err != nil {
		t.Fatalf("seeding user: %v", err)
	}
	return u
}

func strPtr(s string) *string { return &s }

func passwordCred(email, password string) Credential {
	return Credential{Email: email, Password: strPtr(password)}
}

func otpCred(email, code string) Credential {
	return Credential{Email: email, Otp: strPtr(code)}
}
