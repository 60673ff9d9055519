package notifications

import (
	"context"
	"fmt"
	"strings"

	"sst-backend/internal/shared/auth"
	"sst-backend/internal/shared/metrics"
	"sst-backend/internal/shared/telemetry"
)

const listLimit = 100

// Service records in-app notifications and mirrors them by email.
type Service struct {
	Repo     Repo
	Dispatch Dispatcher
}

// NewService constructs a Service. A nil dispatcher disables email.
func NewService(repo Repo, dispatch Dispatcher) *Service {
	return &Service{Repo: repo, Dispatch: dispatch}
}

// Notify stores the in-app row, then hands the email off to the dispatcher.
// Failures are logged and never returned: the action that triggered the
// notification has already succeeded.
func (s *Service) Notify(ctx context.Context, target Target, title, message, route string) {
	target.UserID = strings.TrimSpace(target.UserID)
	target.Role = strings.TrimSpace(target.Role)
	if !target.valid() {
		metrics.IncNotification(ErrInvalidTarget)
		telemetry.Error("notifications.invalid_target", map[string]any{"user_id": target.UserID, "role": target.Role, "title": title})
		return
	}

	n := Notification{Title: title, Message: message}
	if target.UserID != "" {
		n.RecipientUserID = &target.UserID
	} else {
		n.RecipientRole = &target.Role
	}
	if route != "" {
		n.Route = &route
	}

	saved, err := s.persist(ctx, n)
	metrics.IncNotification(err)
	if err != nil {
		telemetry.Error("notifications.persist_failed", map[string]any{"target": target.String(), "title": title, "error": err})
	}

	if s.Dispatch == nil {
		return
	}
	requestID, _ := ctx.Value(requestIDKey{}).(string)
	s.Dispatch.Dispatch(EmailJob{
		NotificationID: saved.ID,
		Target:         target,
		Title:          title,
		Message:        message,
		Route:          route,
		RequestID:      requestID,
	})
}

func (s *Service) persist(ctx context.Context, n Notification) (saved Notification, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("persist notification: %v", rec)
		}
	}()
	if s.Repo == nil {
		return Notification{}, fmt.Errorf("notifications repo not configured")
	}
	return s.Repo.Create(ctx, n)
}

// List returns the caller's visible notifications, newest first.
func (s *Service) List(ctx context.Context, id auth.Identity) ([]Notification, error) {
	items, err := s.Repo.ListVisible(ctx, id.UserID, id.Role, listLimit)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []Notification{}
	}
	return items, nil
}

// MarkRead flags a notification as read. Only its recipient may do this.
func (s *Service) MarkRead(ctx context.Context, id auth.Identity, notificationID int64) error {
	if err := s.authorize(ctx, id, notificationID); err != nil {
		return err
	}
	return s.Repo.SetRead(ctx, notificationID)
}

// Hide removes a notification from the recipient's view.
func (s *Service) Hide(ctx context.Context, id auth.Identity, notificationID int64) error {
	if err := s.authorize(ctx, id, notificationID); err != nil {
		return err
	}
	return s.Repo.SetHidden(ctx, notificationID)
}

func (s *Service) authorize(ctx context.Context, id auth.Identity, notificationID int64) error {
	n, err := s.Repo.GetByID(ctx, notificationID)
	if err != nil {
		return err
	}
	if n.RecipientUserID != nil && *n.RecipientUserID == id.UserID {
		return nil
	}
	if n.RecipientRole != nil && id.HasRole(*n.RecipientRole) {
		return nil
	}
	return ErrForbidden
}

type requestIDKey struct{}

// WithRequestID tags ctx so queued email jobs can be correlated with the HTTP request.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, requestID)
}
