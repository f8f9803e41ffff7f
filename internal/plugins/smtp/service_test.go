package smtp

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/mail"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tedygabrielmoisa/authserver/internal/plugins/auth"
)

// fakeServer speaks just enough SMTP to accept one plain-text message.
type fakeServer struct {
	listener net.Listener

	mu       sync.Mutex
	from     string
	rcpts    []string
	data     string
	received chan struct{}
}

func startFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s := &fakeServer{listener: ln, received: make(chan struct{}, 1)}
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go s.serve(conn)
		}
	}()
	return s
}

func (s *fakeServer) serve(conn net.Conn) {
	defer conn.Close()
	r := bufio.NewReader(conn)
	reply := func(line string) { _, _ = conn.Write([]byte(line + "\r\n")) }

	reply("220 fake.local ESMTP")
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		cmd := strings.TrimSpace(line)
		upper := strings.ToUpper(cmd)

		switch {
		case strings.HasPrefix(upper, "EHLO"), strings.HasPrefix(upper, "HELO"):
			reply("250 fake.local")
		case strings.HasPrefix(upper, "MAIL FROM:"):
			s.mu.Lock()
			s.from = strings.Trim(cmd[len("MAIL FROM:"):], "<> ")
			s.mu.Unlock()
			reply("250 OK")
		case strings.HasPrefix(upper, "RCPT TO:"):
			s.mu.Lock()
			s.rcpts = append(s.rcpts, strings.Trim(cmd[len("RCPT TO:"):], "<> "))
			s.mu.Unlock()
			reply("250 OK")
		case upper == "DATA":
			reply("354 go ahead")
			var data strings.Builder
			for {
				l, err := r.ReadString('\n')
				if err != nil {
					return
				}
				if l == ".\r\n" {
					break
				}
				data.WriteString(l)
			}
			s.mu.Lock()
			s.data = data.String()
			s.mu.Unlock()
			reply("250 queued")
			s.received <- struct{}{}
		case upper == "QUIT":
			reply("221 bye")
			return
		default:
			reply("502 unsupported")
		}
	}
}

func (s *fakeServer) settings() Settings {
	host, port, _ := net.SplitHostPort(s.listener.Addr().String())
	p, _ := strconv.Atoi(port)
	return Settings{
		Host:        host,
		Port:        p,
		FromAddress: "no-reply@example.com",
		FromName:    "Auth Server",
		Encryption:  EncryptionNone,
	}
}

func TestSendMail_Plain(t *testing.T) {
	server := startFakeServer(t)
	svc := newMailService(server.settings())
	svc.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

	err := svc.SendMail(context.Background(), []string{"ash@example.com"}, "Hello", "line one\nline two")
	if err != nil {
		t.Fatalf("SendMail: %v", err)
	}

	select {
	case <-server.received:
	case <-time.After(2 * time.Second):
		t.Fatal("message not received")
	}

	server.mu.Lock()
	defer server.mu.Unlock()
	if server.from != "no-reply@example.com" {
		t.Errorf("MAIL FROM = %q", server.from)
	}
	if len(server.rcpts) != 1 || server.rcpts[0] != "ash@example.com" {
		t.Errorf("RCPT TO = %v", server.rcpts)
	}
	for _, want := range []string{
		"Subject: Hello\r\n",
		"To: ash@example.com\r\n",
		"Date: Wed, 01 May 2024 12:00:00 +0000\r\n",
		"line one\r\nline two",
	} {
		if !strings.Contains(server.data, want) {
			t.Errorf("message missing %q:\n%s", want, server.data)
		}
	}
}

func TestSendMail_NotConfigured(t *testing.T) {
	svc := NewMailService(Settings{})
	if err := svc.SendMail(context.Background(), []string{"a@example.com"}, "s", "b"); err == nil {
		t.Fatal("expected error when no host is configured")
	}
}

func TestSendMail_NoRecipients(t *testing.T) {
	svc := NewMailService(Settings{Host: "127.0.0.1", Port: 25})
	if err := svc.SendMail(context.Background(), nil, "s", "b"); err == nil {
		t.Fatal("expected error without recipients")
	}
}

func TestSendMail_ConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().(*net.TCPAddr)
	_ = ln.Close()

	svc := NewMailService(Settings{Host: "127.0.0.1", Port: addr.Port, Encryption: EncryptionNone})
	err = svc.SendMail(context.Background(), []string{"a@example.com"}, "s", "b")
	if err == nil || !strings.Contains(err.Error(), "connecting to") {
		t.Fatalf("expected connect error, got %v", err)
	}
}

func TestBuildMessage_Headers(t *testing.T) {
	msg := buildMessage(mail.Address{Name: "Auth", Address: "a@example.com"},
		[]string{"x@example.com", "y@example.com"}, "Hi", "body", time.Unix(0, 0))

	if !strings.HasPrefix(msg, "From: \"Auth\" <a@example.com>\r\n") {
		t.Errorf("unexpected From header: %q", msg)
	}
	if !strings.Contains(msg, "To: x@example.com, y@example.com\r\n") {
		t.Error("recipients should be comma-joined")
	}
	if !strings.HasSuffix(msg, "\r\n\r\nbody") {
		t.Error("body should follow a blank line")
	}
}

type recordingMail struct {
	to      []string
	subject string
	body    string
	err     error
}

func (m *recordingMail) SendMail(_ context.Context, to []string, subject, body string) error {
	m.to, m.subject, m.body = to, subject, body
	return m.err
}

func TestCodeMailer_SendCode(t *testing.T) {
	rec := &recordingMail{}
	sender := NewCodeMailer(rec, 5*time.Minute)

	err := sender.SendCode(context.Background(), &auth.User{ID: 7, Email: "misty@example.com"}, "4821")
	if err != nil {
		t.Fatalf("SendCode: %v", err)
	}
	if len(rec.to) != 1 || rec.to[0] != "misty@example.com" {
		t.Errorf("to = %v", rec.to)
	}
	if !strings.Contains(rec.body, "4821") || !strings.Contains(rec.body, "5m0s") {
		t.Errorf("body = %q", rec.body)
	}
}

func TestCodeMailer_WrapsFailure(t *testing.T) {
	cause := errors.New("relay denied")
	sender := NewCodeMailer(&recordingMail{err: cause}, time.Minute)

	err := sender.SendCode(context.Background(), &auth.User{ID: 9, Email: "brock@example.com"}, "1234")
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}
	if !strings.Contains(err.Error(), "user 9") {
		t.Errorf("error should name the user: %v", err)
	}
}

func TestSettings(t *testing.T) {
	s := Settings{Host: "mail.example.com", Port: 465, Password: "hunter2", Encryption: EncryptionSSL}
	if !s.Enabled() {
		t.Error("expected enabled")
	}
	if s.Addr() != "mail.example.com:465" {
		t.Errorf("addr = %q", s.Addr())
	}
	if strings.Contains(s.String(), "hunter2") {
		t.Error("String must not leak the password")
	}
	if (Settings{}).Enabled() {
		t.Error("empty settings should be disabled")
	}
}
