package smtp

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/mail"
	gosmtp "net/smtp"
	"strings"
	"time"
)

// MailService sends plain-text email.
type MailService interface {
	SendMail(ctx context.Context, to []string, subject, body string) error
}

// mailService implements MailService over net/smtp.
type mailService struct {
	settings Settings
	now      func() time.Time
	timeout  time.Duration
}

// NewMailService creates a mail service for the given settings.
func NewMailService(settings Settings) MailService {
	return newMailService(settings)
}

func newMailService(settings Settings) *mailService {
	return &mailService{
		settings: settings,
		now:      time.Now,
		timeout:  10 * time.Second,
	}
}

// SendMail builds an RFC 5322 message and delivers it according to the
// configured encryption mode.
func (s *mailService) SendMail(ctx context.Context, to []string, subject, body string) error {
	if !s.settings.Enabled() {
		return fmt.Errorf("smtp is not configured")
	}
	if len(to) == 0 {
		return fmt.Errorf("no recipients")
	}

	from := mail.Address{Name: s.settings.FromName, Address: s.settings.FromAddress}
	msg := buildMessage(from, to, subject, body, s.now())

	client, err := s.connect(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	if s.settings.Username != "" {
		auth := gosmtp.PlainAuth("", s.settings.Username, s.settings.Password, s.settings.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("authenticating: %w", err)
		}
	}

	return sendMessage(client, from.Address, to, msg)
}

// connect dials the server and negotiates TLS for the configured mode.
func (s *mailService) connect(ctx context.Context) (*gosmtp.Client, error) {
	addr := s.settings.Addr()
	tlsConfig := &tls.Config{ServerName: s.settings.Host, MinVersion: tls.VersionTLS12}
	dialer := &net.Dialer{Timeout: s.timeout}

	var (
		conn net.Conn
		err  error
	)
	if s.settings.Encryption == EncryptionSSL {
		conn, err = (&tls.Dialer{NetDialer: dialer, Config: tlsConfig}).DialContext(ctx, "tcp", addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(s.timeout))
	}

	client, err := gosmtp.NewClient(conn, s.settings.Host)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("creating smtp client: %w", err)
	}

	if s.settings.Encryption == EncryptionStartTLS {
		if err := client.StartTLS(tlsConfig); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("starting TLS: %w", err)
		}
	}
	return client, nil
}

// buildMessage renders headers and body with CRLF line endings.
func buildMessage(from mail.Address, to []string, subject, body string, now time.Time) string {
	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", from.String())
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	fmt.Fprintf(&msg, "Date: %s\r\n", now.UTC().Format(time.RFC1123Z))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return msg.String()
}

// sendMessage handles MAIL FROM, RCPT TO, DATA for an open client.
func sendMessage(client *gosmtp.Client, from string, to []string, msg string) error {
	if err := client.Mail(from); err != nil {
		return fmt.Errorf("MAIL FROM: %w", err)
	}
	for _, recipient := range to {
		if err := client.Rcpt(recipient); err != nil {
			return fmt.Errorf("RCPT TO %s: %w", recipient, err)
		}
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("DATA: %w", err)
	}
	if _, err := w.Write([]byte(msg)); err != nil {
		return fmt.Errorf("writing message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("closing data: %w", err)
	}
	return client.Quit()
}
