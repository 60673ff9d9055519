package mailer

import (
	"context"

	"sst-backend/internal/shared/telemetry"
)

// LogSender writes messages to the structured log instead of sending them.
type LogSender struct{}

func (LogSender) Name() string { return "log" }

func (LogSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := msg.validate(); err != nil {
		return err
	}
	telemetry.Info("mailer.log", map[string]any{
		"to":      msg.To,
		"subject": msg.Subject,
		"text":    msg.Text,
	})
	return nil
}
