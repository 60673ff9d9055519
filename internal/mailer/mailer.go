// Package mailer delivers notification emails over SMTP, SendGrid or the log.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"sst-backend/internal/shared/config"
)

// ErrNoRecipients is returned when a message has no addresses.
var ErrNoRecipients = errors.New("mailer: no recipients")

// Message is a single email. Each address in To receives the same content.
type Message struct {
	To      []string
	Subject string
	Text    string
	HTML    string
}

func (m Message) validate() error {
	if len(m.To) == 0 {
		return ErrNoRecipients
	}
	if strings.TrimSpace(m.Subject) == "" {
		return errors.New("mailer: subject required")
	}
	if strings.TrimSpace(m.Text) == "" && strings.TrimSpace(m.HTML) == "" {
		return errors.New("mailer: body required")
	}
	return nil
}

// Sender delivers messages. Implementations must honor ctx deadlines.
type Sender interface {
	Send(ctx context.Context, msg Message) error
	Name() string
}

// New builds the transport selected by cfg.Transport.
func New(cfg config.MailConfig) (Sender, error) {
	switch cfg.Transport {
	case "smtp":
		return NewSMTP(SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.From,
			FromName: cfg.FromName,
			Timeout:  cfg.Timeout,
		})
	case "sendgrid":
		return NewSendGrid(SendGridConfig{
			APIKey:   cfg.SendGridAPIKey,
			From:     cfg.From,
			FromName: cfg.FromName,
			Timeout:  cfg.Timeout,
		})
	case "log", "":
		return LogSender{}, nil
	default:
		return nil, fmt.Errorf("mailer: unknown transport %q", cfg.Transport)
	}
}
