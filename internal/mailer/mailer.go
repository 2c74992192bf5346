// Package mailer delivers one-time codes out of band.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/aathi-11/university-voting-portal/internal/config"
)

// Deliverer sends code to contact. Any error means the code was not delivered.
type Deliverer interface {
	Deliver(ctx context.Context, contact, code, displayName string) error
}

// ErrNotConfigured is returned when SMTP credentials are missing.
var ErrNotConfigured = errors.New("mail not configured: set mail.username and mail.password")

// Sender abstracts gomail's dialer so SMTP can be replaced in tests.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTP delivers codes by email.
type SMTP struct {
	from       string
	configured bool
	sender     Sender
	ttlMinutes int
}

func NewSMTP(cfg config.MailConfig, ttlMinutes int) *SMTP {
	from := cfg.From
	if from == "" {
		from = cfg.Username
	}
	return &SMTP{
		from:       from,
		configured: cfg.Username != "" && cfg.Password != "",
		sender:     gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		ttlMinutes: ttlMinutes,
	}
}

// WithSender swaps the transport.
func (s *SMTP) WithSender(sender Sender) *SMTP {
	s.sender = sender
	s.configured = true
	return s
}

var htmlBody = template.Must(template.New("otp").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #333;">University Voting Portal</h2>
  <p>Hello <strong>{{.Name}}</strong>,</p>
  <p>Your One-Time Password (OTP) for login is:</p>
  <div style="background-color: #f0f0f0; padding: 20px; border-radius: 5px; text-align: center;">
    <h1 style="color: #2c3e50; letter-spacing: 5px; margin: 0;">{{.Code}}</h1>
  </div>
  <p style="color: #666; margin-top: 20px;"><strong>This OTP is valid for {{.TTL}} minutes only.</strong></p>
  <p style="color: #666;">If you did not request this OTP, please ignore this email.</p>
</div>`))

// Message builds the email for code.
func (s *SMTP) Message(contact, code, displayName string) (*gomail.Message, error) {
	var html strings.Builder
	err := htmlBody.Execute(&html, struct {
		Name, Code string
		TTL        int
	}{displayName, code, s.ttlMinutes})
	if err != nil {
		return nil, fmt.Errorf("render email: %w", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", contact)
	m.SetHeader("Subject", "University Voting Portal - Your OTP")
	m.SetBody("text/plain", fmt.Sprintf("Your OTP is: %s\n\nThis OTP is valid for %d minutes only.", code, s.ttlMinutes))
	m.AddAlternative("text/html", html.String())
	return m, nil
}

func (s *SMTP) Deliver(ctx context.Context, contact, code, displayName string) error {
	if !s.configured {
		return ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m, err := s.Message(contact, code, displayName)
	if err != nil {
		return err
	}
	if err := s.sender.DialAndSend(m); err != nil {
		return fmt.Errorf("send otp email: %w", err)
	}
	return nil
}
