package notifications

import "context"

// Repo persists notifications.
type Repo interface {
	Create(ctx context.Context, n Notification) (Notification, error)
	GetByID(ctx context.Context, id int64) (Notification, error)
	// ListVisible returns non-hidden rows addressed to userID or role, newest first.
	ListVisible(ctx context.Context, userID, role string, limit int) ([]Notification, error)
	SetRead(ctx context.Context, id int64) error
	SetHidden(ctx context.Context, id int64) error
}
