package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// SendGridConfig configures the SendGrid v3 mail-send transport.
type SendGridConfig struct {
	APIKey   string
	BaseURL  string
	From     string
	FromName string
	Timeout  time.Duration
}

// SendGridSender posts messages to the SendGrid HTTP API. It does not retry.
type SendGridSender struct {
	cfg        SendGridConfig
	httpClient *http.Client
}

func NewSendGrid(cfg SendGridConfig) (*SendGridSender, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("mailer: missing SENDGRID_API_KEY")
	}
	if strings.TrimSpace(cfg.From) == "" {
		return nil, errors.New("mailer: MAIL_FROM is required")
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://api.sendgrid.com"
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &SendGridSender{cfg: cfg, httpClient: &http.Client{Timeout: cfg.Timeout}}, nil
}

func (s *SendGridSender) Name() string { return "sendgrid" }

type emailAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type personalization struct {
	To []emailAddress `json:"to"`
}

type mailContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type mailSendRequest struct {
	Personalizations []personalization `json:"personalizations"`
	From             emailAddress      `json:"from"`
	Subject          string            `json:"subject"`
	Content          []mailContent     `json:"content"`
}

type errorResponse struct {
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// HTTPError is a non-2xx answer from SendGrid.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("sendgrid http %d: %s", e.StatusCode, e.Message)
}

func (s *SendGridSender) Send(ctx context.Context, msg Message) error {
	if err := msg.validate(); err != nil {
		return err
	}
	// One personalization per recipient keeps addresses private.
	wire := mailSendRequest{
		From:    emailAddress{Email: s.cfg.From, Name: s.cfg.FromName},
		Subject: strings.TrimSpace(msg.Subject),
	}
	for _, to := range msg.To {
		wire.Personalizations = append(wire.Personalizations, personalization{To: []emailAddress{{Email: to}}})
	}
	if t := strings.TrimSpace(msg.Text); t != "" {
		wire.Content = append(wire.Content, mailContent{Type: "text/plain", Value: t})
	}
	if h := strings.TrimSpace(msg.HTML); h != "" {
		wire.Content = append(wire.Content, mailContent{Type: "text/html", Value: h})
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(wire); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL+"/v3/mail/send", &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("mailer: sendgrid: %w", err)
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		he := &HTTPError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
		var er errorResponse
		if json.Unmarshal(raw, &er) == nil && len(er.Errors) > 0 && er.Errors[0].Message != "" {
			he.Message = er.Errors[0].Message
		}
		if he.Message == "" {
			he.Message = "<empty body>"
		}
		return he
	}
	return nil
}
