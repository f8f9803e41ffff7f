package auth

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"strconv"
	"time"
)

// OTP codes are four decimal digits, 1000 through 9999.
const (
	otpMin  = 1000
	otpSpan = 9000
)

// OtpGenerator draws codes from a cryptographic source and checks expiry.
type OtpGenerator struct {
	rand io.Reader
	now  func() time.Time
}

// NewOtpGenerator creates a generator backed by crypto/rand.
func NewOtpGenerator() *OtpGenerator {
	return &OtpGenerator{rand: rand.Reader, now: time.Now}
}

// Generate returns a fresh 4-digit code.
func (g *OtpGenerator) Generate() (string, error) {
	n, err := rand.Int(g.rand, big.NewInt(otpSpan))
	if err != nil {
		return "", fmt.Errorf("generating otp: %w", err)
	}
	return strconv.FormatInt(n.Int64()+otpMin, 10), nil
}

// IsValid reports whether the OTP has not yet expired.
func (g *OtpGenerator) IsValid(otp *Otp) bool {
	return otp.ExpiresAt.After(g.now())
}

// CodeSender delivers a freshly issued plaintext OTP to its owner.
type CodeSender interface {
	SendCode(ctx context.Context, user *User, code string) error
}

// LogCodeSender writes the code to the structured log at debug level. It
// stands in for a real delivery channel (mail, SMS) in development.
type LogCodeSender struct{}

// SendCode logs the code.
func (LogCodeSender) SendCode(ctx context.Context, user *User, code string) error {
	slog.DebugContext(ctx, "otp issued",
		slog.Int64("user_id", user.ID),
		slog.String("email", user.Email),
		slog.String("code", code),
	)
	return nil
}
