package email

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"gestion-backend/internal/apperrors"
	"gestion-backend/internal/config"
)

// Message is a plain-text email.
type Message struct {
	To      string
	Subject string
	Text    string
}

// Sender delivers a message through one provider.
type Sender interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}

var (
	ErrProviderNotImplemented = errors.New("email provider not implemented")
	ErrEmailDisabled          = errors.New("email delivery disabled: no provider configured")
	ErrInvalidMessage         = fmt.Errorf("invalid email message: %w", apperrors.ErrInvalidInput)
)

// StatusError is returned when a provider answers with a non-2xx status.
type StatusError struct {
	Provider string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Provider, e.Code, e.Body)
}

func (e *StatusError) StatusCode() int { return e.Code }

// From is the sender address shared by every provider.
type From struct {
	Email string
	Name  string
}

func (f From) String() string {
	if f.Name == "" {
		return f.Email
	}
	return fmt.Sprintf("%s <%s>", f.Name, f.Email)
}

func validate(msg Message) error {
	if strings.TrimSpace(msg.To) == "" || strings.TrimSpace(msg.Subject) == "" {
		return ErrInvalidMessage
	}
	return nil
}

// NewFromConfig picks the first provider with a configured key, in the order
// SendGrid, Resend, Brevo, Mailgun, SES. Without any key it logs messages in
// development and refuses to send in production.
func NewFromConfig(cfg *config.Config) Sender {
	from := From{Email: cfg.Email.From, Name: cfg.Email.FromName}
	e := cfg.Email

	var s Sender
	switch {
	case e.SendGridKey != "":
		s = NewSendGrid(e.SendGridKey, from)
	case e.ResendKey != "":
		s = NewResend(e.ResendKey, from)
	case e.BrevoKey != "":
		s = NewBrevo(e.BrevoKey, from)
	case e.MailgunKey != "" && e.MailgunDomain != "":
		s = NewMailgun(e.MailgunKey, e.MailgunDomain, from)
	case e.SESAccessKey != "":
		s = SESSender{}
	case cfg.IsProduction():
		s = DisabledSender{}
	default:
		s = LogSender{}
	}

	log.Printf("[Email] Using provider: %s", s.Name())
	return s
}

// LogSender writes messages to the log instead of sending them.
type LogSender struct{}

func (LogSender) Name() string { return "log" }

func (LogSender) Send(ctx context.Context, msg Message) error {
	if err := validate(msg); err != nil {
		return err
	}
	log.Printf("[Email] (log only) to=%s subject=%q body=%q", msg.To, msg.Subject, msg.Text)
	return nil
}

// DisabledSender rejects every message.
type DisabledSender struct{}

func (DisabledSender) Name() string { return "disabled" }

func (DisabledSender) Send(ctx context.Context, msg Message) error {
	return ErrEmailDisabled
}

// SESSender is a placeholder kept in the fallback chain.
// TODO: implement with aws-sdk-go-v2/service/sesv2 once SES credentials are provisioned.
type SESSender struct{}

func (SESSender) Name() string { return "ses" }

func (SESSender) Send(ctx context.Context, msg Message) error {
	return ErrProviderNotImplemented
}
