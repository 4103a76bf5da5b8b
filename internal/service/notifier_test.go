package service

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/jjenkins/regwatch/internal/logger"
)

type capturedMail struct {
	addr string
	from string
	to   []string
	msg  string
}

func newCapturingNotifier(cfg EmailConfig, sendErr error) (*EmailNotifier, *[]capturedMail) {
	var sent []capturedMail
	n := NewEmailNotifier(cfg, logger.NewNop())
	n.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		sent = append(sent, capturedMail{addr: addr, from: from, to: to, msg: string(msg)})
		return sendErr
	}
	n.now = func() time.Time { return time.Date(2025, 2, 3, 7, 0, 0, 0, time.UTC) }
	return n, &sent
}

func TestEmailNotifier_Send(t *testing.T) {
	n, sent := newCapturingNotifier(EmailConfig{
		User:     "alerts@example.com",
		Password: "secret",
		To:       []string{"a@example.com", "b@example.com"},
	}, nil)

	require.True(t, n.Configured())
	require.NoError(t, n.Send(context.Background(), DefaultSubject, "line one\nline two"))

	require.Len(t, *sent, 1)
	mail := (*sent)[0]
	assert.Equal(t, "smtp.gmail.com:587", mail.addr)
	assert.Equal(t, "alerts@example.com", mail.from)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, mail.to)
	assert.Contains(t, mail.msg, "To: a@example.com, b@example.com\r\n")
	assert.Contains(t, mail.msg, "Subject: HHS/CMS Regulatory Change Summary\r\n")
	assert.Contains(t, mail.msg, "Date: Mon, 03 Feb 2025 07:00:00 +0000\r\n")
	assert.True(t, strings.HasSuffix(mail.msg, "\r\n\r\nline one\r\nline two"))
}

func TestEmailNotifier_NotConfigured(t *testing.T) {
	tests := []struct {
		name string
		cfg  EmailConfig
	}{
		{name: "no credentials", cfg: EmailConfig{To: []string{"a@example.com"}}},
		{name: "no password", cfg: EmailConfig{User: "u", To: []string{"a@example.com"}}},
		{name: "no recipients", cfg: EmailConfig{User: "u", Password: "p"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, sent := newCapturingNotifier(tt.cfg, nil)
			assert.False(t, n.Configured())

			err := n.Send(context.Background(), "subject", "body")
			assert.ErrorIs(t, err, ErrNotConfigured)
			assert.Empty(t, *sent)
		})
	}
}

func TestEmailNotifier_NotConfiguredLogsBody(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	n := NewEmailNotifier(EmailConfig{}, logger.Wrap(zap.New(core)))

	err := n.Send(context.Background(), "HHS report", "Net change in total docs: +3")
	assert.ErrorIs(t, err, ErrNotConfigured)

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "HHS report", fields["subject"])
	assert.Equal(t, "Net change in total docs: +3", fields["body"])
}

func TestEmailNotifier_SendError(t *testing.T) {
	n, _ := newCapturingNotifier(EmailConfig{
		Server:   "mail.example.com",
		Port:     2525,
		User:     "u",
		Password: "p",
		From:     "reports@example.com",
		To:       []string{"a@example.com"},
	}, errors.New("535 authentication failed"))

	err := n.Send(context.Background(), "subject", "body")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to send email to a@example.com")
}

func TestEmailNotifier_CancelledContext(t *testing.T) {
	n, sent := newCapturingNotifier(EmailConfig{User: "u", Password: "p", To: []string{"a@example.com"}}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, n.Send(ctx, "subject", "body"), context.Canceled)
	assert.Empty(t, *sent)
}
