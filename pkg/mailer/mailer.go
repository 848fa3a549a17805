package mailer

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/yln-platform/mentorship-backend/pkg/config"
	"github.com/yln-platform/mentorship-backend/pkg/logger"
)

// Mailer delivers the two transactional messages the platform sends.
type Mailer interface {
	SendVerificationCode(ctx context.Context, to string, code string) error
	SendPasswordReset(ctx context.Context, to string, token string) error
	SendPairingNotification(ctx context.Context, to string, partnerName string) error
}

// New returns an SMTP-backed mailer, or a log-only mailer when SMTP is
// not configured, so local development works without a mail account.
func New(cfg config.SMTPConfig, logg *logger.Logger) Mailer {
	if !cfg.Ready() {
		return &logMailer{log: logg}
	}
	return &smtpMailer{cfg: cfg, log: logg}
}

type smtpMailer struct {
	cfg config.SMTPConfig
	log *logger.Logger
}

func (m *smtpMailer) SendVerificationCode(ctx context.Context, to string, code string) error {
	subject := "Verify your email"
	body := fmt.Sprintf("Your verification code is %s. It expires soon, so use it on your next login.", code)
	return m.send(ctx, to, subject, body)
}

func (m *smtpMailer) SendPasswordReset(ctx context.Context, to string, token string) error {
	subject := "Reset your password"
	body := fmt.Sprintf("Use this token to reset your password: %s", token)
	return m.send(ctx, to, subject, body)
}

func (m *smtpMailer) SendPairingNotification(ctx context.Context, to string, partnerName string) error {
	subject := "Your mentorship pairing"
	body := fmt.Sprintf("You have been paired with %s. They will be in touch soon.", partnerName)
	return m.send(ctx, to, subject, body)
}

func (m *smtpMailer) send(ctx context.Context, to string, subject string, body string) error {
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	auth := smtp.PlainAuth("", m.cfg.User, m.cfg.Pass, m.cfg.Host)

	msg := strings.Join([]string{
		"From: " + m.cfg.From,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		body,
	}, "\r\n")

	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("sending mail to %s: %w", to, err)
	}
	if m.log != nil {
		m.log.Info(m.log.WithField(ctx, "to", to), "mail sent")
	}
	return nil
}

// logMailer writes the would-be message to the log instead of sending.
type logMailer struct {
	log *logger.Logger
}

func (m *logMailer) SendVerificationCode(ctx context.Context, to string, code string) error {
	if m.log != nil {
		ctx = m.log.WithFields(ctx, map[string]any{"to": to, "code": code})
		m.log.Info(ctx, "smtp not configured, verification code logged")
	}
	return nil
}

func (m *logMailer) SendPasswordReset(ctx context.Context, to string, token string) error {
	if m.log != nil {
		ctx = m.log.WithFields(ctx, map[string]any{"to": to, "token": token})
		m.log.Info(ctx, "smtp not configured, reset token logged")
	}
	return nil
}

func (m *logMailer) SendPairingNotification(ctx context.Context, to string, partnerName string) error {
	if m.log != nil {
		ctx = m.log.WithFields(ctx, map[string]any{"to": to, "partner": partnerName})
		m.log.Info(ctx, "smtp not configured, pairing notification logged")
	}
	return nil
}
