// Package contact delivers messages from the site's contact form to the
// researcher by SMTP.
package contact

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"

	"github.com/Zachkp/researcher-profile/internal/config"
)

var (
	// ErrNotConfigured means SMTP credentials are missing.
	ErrNotConfigured = errors.New("SMTP credentials not configured")
	// ErrInvalidMessage wraps every validation failure.
	ErrInvalidMessage = errors.New("invalid contact message")
)

type Message struct {
	Name  string
	Email string
	Body  string
}

// Validate trims the fields in place and checks they are usable.
func (m *Message) Validate() error {
	m.Name = strings.TrimSpace(m.Name)
	m.Email = strings.TrimSpace(m.Email)
	m.Body = strings.TrimSpace(m.Body)
	switch {
	case m.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidMessage)
	case m.Email == "":
		return fmt.Errorf("%w: email is required", ErrInvalidMessage)
	case !strings.Contains(m.Email, "@") || strings.ContainsAny(m.Email, "\r\n"):
		return fmt.Errorf("%w: email address is not valid", ErrInvalidMessage)
	case strings.ContainsAny(m.Name, "\r\n"):
		return fmt.Errorf("%w: name must be a single line", ErrInvalidMessage)
	case m.Body == "":
		return fmt.Errorf("%w: message is required", ErrInvalidMessage)
	}
	return nil
}

// Mailer delivers a validated message.
type Mailer interface {
	Send(ctx context.Context, m Message) error
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPMailer sends through an SMTP relay with PLAIN auth.
type SMTPMailer struct {
	cfg    config.SMTPConfig
	to     string
	logger *zap.Logger
	send   sendFunc
}

// NewSMTPMailer sends to cfg.To, falling back to fallbackTo (the profile's
// public address) when unset.
func NewSMTPMailer(cfg config.SMTPConfig, fallbackTo string, logger *zap.Logger) *SMTPMailer {
	to := cfg.To
	if to == "" {
		to = fallbackTo
	}
	return &SMTPMailer{
		cfg:    cfg,
		to:     to,
		logger: logger.Named("contact"),
		send:   smtp.SendMail,
	}
}

func (s *SMTPMailer) Send(ctx context.Context, m Message) error {
	if !s.cfg.Configured() {
		return ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	auth := smtp.PlainAuth("", s.cfg.User, s.cfg.Pass, s.cfg.Host)
	addr := s.cfg.Host + ":" + s.cfg.Port
	if err := s.send(addr, auth, s.cfg.User, []string{s.to}, compose(s.cfg.User, s.to, m)); err != nil {
		s.logger.Error("sending contact email", zap.Error(err))
		return fmt.Errorf("sending contact email: %w", err)
	}
	s.logger.Info("contact email sent", zap.String("from_name", m.Name))
	return nil
}

func compose(from, to string, m Message) []byte {
	var b strings.Builder
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: Profile Contact: " + m.Name + "\r\n")
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("Reply-To: " + m.Email + "\r\n")
	b.WriteString("\r\n")
	fmt.Fprintf(&b, "New contact form submission from your researcher profile:\r\n\r\nName: %s\r\nEmail: %s\r\nMessage:\r\n%s\r\n\r\n---\r\nSent from your profile contact form\r\n",
		m.Name, m.Email, m.Body)
	return []byte(b.String())
}
