package notifications

import (
	"strings"
	"time"
)

// Notification is an in-app alert. Exactly one of RecipientUserID and
// RecipientRole is set. Rows are never deleted; Hidden removes them from the
// recipient's view.
type Notification struct {
	ID              int64     `json:"id"`
	RecipientUserID *string   `json:"recipientUserId,omitempty"`
	RecipientRole   *string   `json:"recipientRole,omitempty"`
	Title           string    `json:"title"`
	Message         string    `json:"message"`
	Route           *string   `json:"route,omitempty"`
	Read            bool      `json:"read"`
	Hidden          bool      `json:"hidden"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Target addresses a notification to one user or to every member of a role.
type Target struct {
	UserID string
	Role   string
}

// ToUser targets a single user.
func ToUser(id string) Target { return Target{UserID: id} }

// ToRole targets every active member of role.
func ToRole(role string) Target { return Target{Role: role} }

func (t Target) valid() bool {
	hasUser := strings.TrimSpace(t.UserID) != ""
	hasRole := strings.TrimSpace(t.Role) != ""
	return hasUser != hasRole
}

func (t Target) String() string {
	if t.UserID != "" {
		return "user:" + t.UserID
	}
	return "role:" + t.Role
}

// EmailJob is the asynchronous half of a notification.
type EmailJob struct {
	NotificationID int64
	Target         Target
	Title          string
	Message        string
	Route          string
	RequestID      string
}
