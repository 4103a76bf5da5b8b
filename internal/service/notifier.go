package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/jjenkins/regwatch/internal/logger"
)

// ErrNotConfigured is returned when a notification channel lacks credentials
var ErrNotConfigured = errors.New("notifier not configured")

// DefaultSubject is used for report emails
const DefaultSubject = "HHS/CMS Regulatory Change Summary"

// Notifier delivers a finished report
type Notifier interface {
	Send(ctx context.Context, subject, body string) error
}

// EmailConfig holds SMTP settings
type EmailConfig struct {
	Server   string
	Port     int
	User     string
	Password string
	From     string
	To       []string
}

// sendMailFunc matches smtp.SendMail so tests can capture messages
type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailNotifier sends reports over SMTP; smtp.SendMail upgrades to STARTTLS when offered
type EmailNotifier struct {
	cfg      EmailConfig
	logger   logger.Logger
	sendMail sendMailFunc
	now      func() time.Time
}

// NewEmailNotifier creates a new EmailNotifier
func NewEmailNotifier(cfg EmailConfig, log logger.Logger) *EmailNotifier {
	if cfg.Server == "" {
		cfg.Server = "smtp.gmail.com"
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.From == "" {
		cfg.From = cfg.User
	}
	return &EmailNotifier{
		cfg:      cfg,
		logger:   log,
		sendMail: smtp.SendMail,
		now:      time.Now,
	}
}

// Configured reports whether credentials and recipients are present
func (n *EmailNotifier) Configured() bool {
	return n.cfg.User != "" && n.cfg.Password != "" && len(n.cfg.To) > 0
}

// Send emails body to the configured recipients. Without credentials the body is
// logged instead and ErrNotConfigured is returned.
func (n *EmailNotifier) Send(ctx context.Context, subject, body string) error {
	if !n.Configured() {
		n.logger.Warn("Email not sent: SMTP user, password or recipient missing",
			logger.String("subject", subject),
			logger.String("body", body))
		return ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := n.buildMessage(subject, body)
	addr := net.JoinHostPort(n.cfg.Server, strconv.Itoa(n.cfg.Port))
	auth := smtp.PlainAuth("", n.cfg.User, n.cfg.Password, n.cfg.Server)

	if err := n.sendMail(addr, auth, n.cfg.From, n.cfg.To, msg); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", strings.Join(n.cfg.To, ", "), err)
	}

	n.logger.Info("Email sent", logger.Strings("to", n.cfg.To), logger.String("subject", subject))
	return nil
}

func (n *EmailNotifier) buildMessage(subject, body string) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", n.cfg.From)
	fmt.Fprintf(&buf, "To: %s\r\n", strings.Join(n.cfg.To, ", "))
	fmt.Fprintf(&buf, "Subject: %s\r\n", subject)
	fmt.Fprintf(&buf, "Date: %s\r\n", n.now().Format(time.RFC1123Z))
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(strings.ReplaceAll(strings.ReplaceAll(body, "\r\n", "\n"), "\n", "\r\n"))
	return buf.Bytes()
}
