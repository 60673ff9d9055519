package notifications

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"

	"sst-backend/internal/mailer"
	"sst-backend/internal/shared/metrics"
	"sst-backend/internal/shared/telemetry"
)

// Directory resolves recipient addresses.
type Directory interface {
	EmailForUser(ctx context.Context, userID string) (string, bool, error)
	EmailsForRole(ctx context.Context, role string) ([]string, error)
}

var emailTemplate = template.Must(template.New("notification").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Helvetica, Arial, sans-serif; color: #1f2933;">
  <h2 style="margin-bottom: 8px;">{{.Title}}</h2>
  <p style="white-space: pre-line;">{{.Message}}</p>
  {{- if .Link}}
  <p><a href="{{.Link}}" style="background: #0b6e4f; color: #ffffff; padding: 8px 16px; text-decoration: none;">Ver en la aplicación</a></p>
  {{- end}}
  <p style="font-size: 11px; color: #7b8794;">Mensaje automático del sistema de gestión SST.</p>
</body>
</html>`))

type emailView struct {
	Title   string
	Message string
	Link    string
}

// Deliverer performs the email half of a notification: resolve, render, send.
type Deliverer struct {
	Directory Directory
	Sender    mailer.Sender
	BaseURL   string
}

// Deliver sends job to its resolved recipients. A target without any email
// address is skipped without error.
func (d *Deliverer) Deliver(ctx context.Context, job EmailJob) error {
	recipients, err := d.recipients(ctx, job.Target)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", job.Target, err)
	}
	if len(recipients) == 0 {
		metrics.IncEmail(d.Sender.Name(), "skipped")
		telemetry.Debug("notifications.email.no_recipients", map[string]any{"target": job.Target.String()})
		return nil
	}

	msg, err := d.render(job, recipients)
	if err != nil {
		return err
	}
	if err := d.Sender.Send(ctx, msg); err != nil {
		metrics.IncEmail(d.Sender.Name(), "failed")
		return err
	}
	metrics.IncEmail(d.Sender.Name(), "sent")
	return nil
}

func (d *Deliverer) recipients(ctx context.Context, t Target) ([]string, error) {
	if t.UserID != "" {
		email, ok, err := d.Directory.EmailForUser(ctx, t.UserID)
		if err != nil || !ok {
			return nil, err
		}
		return []string{email}, nil
	}
	return d.Directory.EmailsForRole(ctx, t.Role)
}

func (d *Deliverer) render(job EmailJob, to []string) (mailer.Message, error) {
	view := emailView{Title: job.Title, Message: job.Message}
	if job.Route != "" && d.BaseURL != "" {
		view.Link = strings.TrimRight(d.BaseURL, "/") + "/" + strings.TrimLeft(job.Route, "/")
	}
	var html bytes.Buffer
	if err := emailTemplate.Execute(&html, view); err != nil {
		return mailer.Message{}, fmt.Errorf("render email: %w", err)
	}
	text := job.Message
	if view.Link != "" {
		text += "\n\n" + view.Link
	}
	return mailer.Message{To: to, Subject: job.Title, Text: text, HTML: html.String()}, nil
}
