package auth

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
)

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db, mock
}

func expectationsMet(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

var userRowColumns = []string{
	"id", "email", "password_hash", "first_name", "last_name", "phone_number",
	"status", "role", "created_at", "updated_at", "last_login_at",
}

// --- Users ---

func TestUserRepository_Create(t *testing.T) {
	db, mock := newSQLMockDB(t)
	repo := NewUserRepository(db)
	now := time.Now().UTC()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WithArgs("ash@example.com", "hash", "Ash", "Ketchum", nil, StatusActive, RoleUser, now, now).
		WillReturnResult(sqlmock.NewResult(42, 1))

	u := &User{
		Email: "ash@example.com", PasswordHash: "hash", FirstName: "Ash", LastName: "Ketchum",
		Status: StatusActive, Role: RoleUser, CreatedAt: now, UpdatedAt: now,
	}
	if err := repo.Create(context.Background(), u); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if u.ID != 42 {
		t.Errorf("id = %d, want 42", u.ID)
	}
	expectationsMet(t, mock)
}

func TestUserRepository_CreateDuplicate(t *testing.T) {
	db, mock := newSQLMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	err := repo.Create(context.Background(), &User{Email: "ash@example.com"})
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	expectationsMet(t, mock)
}

func TestUserRepository_FindByEmail(t *testing.T) {
	db, mock := newSQLMockDB(t)
	repo := NewUserRepository(db)
	now := time.Now().UTC()

	rows := sqlmock.NewRows(userRowColumns).
		AddRow(int64(7), "oak@example.com", "hash", "Samuel", "Oak", "555-0100", "ACTIVE", "ADMIN", now, now, nil)
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email = ?")).
		WithArgs("oak@example.com").
		WillReturnRows(rows)

	u, err := repo.FindByEmail(context.Background(), "oak@example.com")
	if err != nil {
		t.Fatalf("FindByEmail: %v", err)
	}
	if u.ID != 7 || u.Role != RoleAdmin || u.Status != StatusActive {
		t.Errorf("unexpected user %+v", u)
	}
	if u.PhoneNumber == nil || *u.PhoneNumber != "555-0100" {
		t.Errorf("phone = %v", u.PhoneNumber)
	}
	if u.LastLoginAt != nil {
		t.Errorf("last login = %v, want nil", u.LastLoginAt)
	}
	expectationsMet(t, mock)
}

func TestUserRepository_FindByIDMissing(t *testing.T) {
	db, mock := newSQLMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = ?")).
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows(userRowColumns))

	if _, err := repo.FindByID(context.Background(), 99); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	expectationsMet(t, mock)
}

func TestUserRepository_UpdateLastLogin(t *testing.T) {
	db, mock := newSQLMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET last_login_at = NOW() WHERE id = ?")).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.UpdateLastLogin(context.Background(), 7); err != nil {
		t.Fatalf("UpdateLastLogin: %v", err)
	}
	expectationsMet(t, mock)
}

// --- Tokens ---

func TestTokenRepository_Create(t *testing.T) {
	db, mock := newSQLMockDB(t)
	repo := NewTokenRepository(db)
	now := time.Now().UTC()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO tokens")).
		WithArgs("jwt", int64(7), false, false, now).
		WillReturnResult(sqlmock.NewResult(3, 1))

	tok := &Token{Token: "jwt", UserID: 7, CreatedAt: now}
	if err := repo.Create(context.Background(), tok); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if tok.ID != 3 {
		t.Errorf("id = %d, want 3", tok.ID)
	}
	expectationsMet(t, mock)
}

func TestTokenRepository_FindByToken(t *testing.T) {
	db, mock := newSQLMockDB(t)
	repo := NewTokenRepository(db)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("FROM tokens WHERE token = ?")).
		WithArgs("jwt").
		WillReturnRows(sqlmock.NewRows([]string{"id", "token", "user_id", "expired", "revoked", "created_at"}).
			AddRow(int64(3), "jwt", int64(7), true, true, now))

	tok, err := repo.FindByToken(context.Background(), "jwt")
	if err != nil {
		t.Fatalf("FindByToken: %v", err)
	}
	if tok.Valid() {
		t.Error("revoked token reported valid")
	}

	mock.ExpectQuery(regexp.QuoteMeta("FROM tokens WHERE token = ?")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)
	if _, err := repo.FindByToken(context.Background(), "missing"); !errors.Is(err, ErrTokenNotFound) {
		t.Errorf("expected ErrTokenNotFound, got %v", err)
	}
	expectationsMet(t, mock)
}

func TestTokenRepository_HasValidToken(t *testing.T) {
	db, mock := newSQLMockDB(t)
	repo := NewTokenRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := repo.HasValidToken(context.Background(), 7)
	if err != nil || !ok {
		t.Fatalf("HasValidToken = %v, %v", ok, err)
	}
	expectationsMet(t, mock)
}

func TestTokenRepository_RevokeAllForUser(t *testing.T) {
	db, mock := newSQLMockDB(t)
	repo := NewTokenRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE tokens SET expired = TRUE, revoked = TRUE")).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := repo.RevokeAllForUser(context.Background(), 7)
	if err != nil {
		t.Fatalf("RevokeAllForUser: %v", err)
	}
	if n != 2 {
		t.Errorf("revoked = %d, want 2", n)
	}
	expectationsMet(t, mock)
}

// --- OTPs ---

func TestOtpRepository_UpsertAndFind(t *testing.T) {
	db, mock := newSQLMockDB(t)
	repo := NewOtpRepository(db)
	now := time.Now().UTC()
	expires := now.Add(5 * time.Minute)

	mock.ExpectExec(regexp.QuoteMeta("ON DUPLICATE KEY UPDATE")).
		WithArgs(int64(7), "hash", now, expires).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Upsert(context.Background(), &Otp{UserID: 7, CodeHash: "hash", CreatedAt: now, ExpiresAt: expires}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	mock.ExpectQuery(regexp.QuoteMeta("FROM otps WHERE user_id = ?")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "code_hash", "created_at", "expires_at"}).
			AddRow(int64(7), "hash", now, expires))

	otp, err := repo.FindByUserID(context.Background(), 7)
	if err != nil {
		t.Fatalf("FindByUserID: %v", err)
	}
	if !otp.ExpiresAt.Equal(expires) {
		t.Errorf("expires_at = %v", otp.ExpiresAt)
	}
	expectationsMet(t, mock)
}

func TestOtpRepository_FindMissing(t *testing.T) {
	db, mock := newSQLMockDB(t)
	repo := NewOtpRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM otps WHERE user_id = ?")).
		WithArgs(int64(8)).
		WillReturnError(sql.ErrNoRows)

	if _, err := repo.FindByUserID(context.Background(), 8); !errors.Is(err, ErrOtpNotFound) {
		t.Fatalf("expected ErrOtpNotFound, got %v", err)
	}
	expectationsMet(t, mock)
}
