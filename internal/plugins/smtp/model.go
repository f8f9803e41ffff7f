// Package smtp delivers one-time passwords by email. Settings come from
// the environment; the password is held in memory only.
package smtp

import (
	"fmt"
	"net"
	"strconv"

	"github.com/tedygabrielmoisa/authserver/internal/config"
)

// Encryption modes.
const (
	EncryptionStartTLS = "starttls"
	EncryptionSSL      = "ssl"
	EncryptionNone     = "none"
)

// Settings is the resolved SMTP configuration.
type Settings struct {
	Host        string
	Port        int
	Username    string
	Password    string
	FromAddress string
	FromName    string
	Encryption  string
}

// SettingsFromConfig copies the environment-backed SMTP config.
func SettingsFromConfig(cfg config.SMTPConfig) Settings {
	return Settings{
		Host:        cfg.Host,
		Port:        cfg.Port,
		Username:    cfg.Username,
		Password:    cfg.Password,
		FromAddress: cfg.FromAddress,
		FromName:    cfg.FromName,
		Encryption:  cfg.Encryption,
	}
}

// Enabled reports whether a mail host is configured.
func (s Settings) Enabled() bool {
	return s.Host != ""
}

// Addr returns host:port.
func (s Settings) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// String omits the password.
func (s Settings) String() string {
	return fmt.Sprintf("smtp://%s (%s, from %s)", s.Addr(), s.Encryption, s.FromAddress)
}
