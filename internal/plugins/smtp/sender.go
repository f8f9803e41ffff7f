package smtp

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tedygabrielmoisa/authserver/internal/plugins/auth"
)

// CodeMailer is an auth.CodeSender that emails the code to the user.
type CodeMailer struct {
	mail MailService
	ttl  time.Duration
}

// NewCodeMailer creates a sender that mentions ttl in the message body.
func NewCodeMailer(mail MailService, ttl time.Duration) *CodeMailer {
	return &CodeMailer{mail: mail, ttl: ttl}
}

var _ auth.CodeSender = (*CodeMailer)(nil)

// SendCode mails the plaintext code to user.Email.
func (m *CodeMailer) SendCode(ctx context.Context, user *auth.User, code string) error {
	body := fmt.Sprintf("Your login code is %s.\n\nIt expires in %s. If you did not try to sign in, change your password.\n",
		code, m.ttl.Round(time.Second))

	if err := m.mail.SendMail(ctx, []string{user.Email}, "Your login code", body); err != nil {
		return fmt.Errorf("mailing otp to user %d: %w", user.ID, err)
	}

	slog.InfoContext(ctx, "otp mailed",
		slog.Int64("user_id", user.ID),
	)
	return nil
}
