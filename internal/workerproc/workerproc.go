// Package workerproc decodes and handles notification jobs pulled off the queue.
package workerproc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"sst-backend/internal/notifications"
	"sst-backend/internal/queue"
)

// MessageMeta captures details useful for logging and diagnostics.
type MessageMeta struct {
	BodyLen int
	BodySHA string
}

// ComputeMeta returns the body length and SHA-256 hash.
func ComputeMeta(body string) MessageMeta {
	if body == "" {
		return MessageMeta{}
	}
	sum := sha256.Sum256([]byte(body))
	return MessageMeta{BodyLen: len(body), BodySHA: hex.EncodeToString(sum[:])}
}

// ErrEmptyBody indicates an empty queue payload.
type ErrEmptyBody struct {
	Meta MessageMeta
}

func (e ErrEmptyBody) Error() string { return "empty message body" }

// ErrDecode indicates a JSON decode failure.
type ErrDecode struct {
	Meta MessageMeta
	Err  error
}

func (e ErrDecode) Error() string {
	if e.Err == nil {
		return "decode message"
	}
	return "decode message: " + e.Err.Error()
}

func (e ErrDecode) Unwrap() error { return e.Err }

// ErrInvalidJob indicates a well-formed message that cannot be delivered:
// an unknown kind or a recipient that is not exactly one user or one role.
type ErrInvalidJob struct {
	Meta      MessageMeta
	Kind      string
	RequestID string
	Reason    string
}

func (e ErrInvalidJob) Error() string { return "invalid job: " + e.Reason }

// ErrProcess indicates delivery failed after successful parsing.
type ErrProcess struct {
	NotificationID int64
	RequestID      string
	Err            error
}

func (e ErrProcess) Error() string {
	if e.Err == nil {
		return "deliver notification"
	}
	return "deliver notification: " + e.Err.Error()
}

func (e ErrProcess) Unwrap() error { return e.Err }

// Deliverer sends one email job.
type Deliverer interface {
	Deliver(ctx context.Context, job notifications.EmailJob) error
}

// ParseMessage validates and decodes the queue payload.
func ParseMessage(body string) (notifications.EmailJob, MessageMeta, error) {
	meta := ComputeMeta(body)
	if strings.TrimSpace(body) == "" {
		return notifications.EmailJob{}, meta, ErrEmptyBody{Meta: meta}
	}

	msg, err := queue.DecodeMessage([]byte(body))
	if err != nil {
		return notifications.EmailJob{}, meta, ErrDecode{Meta: meta, Err: err}
	}
	if msg.Kind != queue.KindNotificationEmail {
		return notifications.EmailJob{}, meta, ErrInvalidJob{Meta: meta, Kind: msg.Kind, RequestID: msg.RequestID, Reason: "unknown kind " + msg.Kind}
	}
	job, err := notifications.JobFromMessage(msg)
	if err != nil {
		return notifications.EmailJob{}, meta, ErrInvalidJob{Meta: meta, Kind: msg.Kind, RequestID: msg.RequestID, Reason: err.Error()}
	}
	return job, meta, nil
}

type parsedJobKey struct{}

// WithParsedJob stores a decoded job in the context for reuse.
func WithParsedJob(ctx context.Context, job notifications.EmailJob) context.Context {
	return context.WithValue(ctx, parsedJobKey{}, job)
}

func parsedJobFromContext(ctx context.Context) (notifications.EmailJob, bool) {
	if ctx == nil {
		return notifications.EmailJob{}, false
	}
	job, ok := ctx.Value(parsedJobKey{}).(notifications.EmailJob)
	return job, ok
}

// HandleMessage parses, validates, and delivers a message payload.
func HandleMessage(ctx context.Context, d Deliverer, body string) error {
	if d == nil {
		return errors.New("email deliverer not configured")
	}

	job, ok := parsedJobFromContext(ctx)
	if !ok {
		var err error
		job, _, err = ParseMessage(body)
		if err != nil {
			return err
		}
	}

	ctx = notifications.WithRequestID(ctx, job.RequestID)
	if err := d.Deliver(ctx, job); err != nil {
		return ErrProcess{NotificationID: job.NotificationID, RequestID: job.RequestID, Err: err}
	}
	return nil
}
