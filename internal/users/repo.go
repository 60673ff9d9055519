package users

import "context"

var ErrNotFound = errNotFound{}

type errNotFound struct{}

func (errNotFound) Error() string { return "user not found" }

type Repo interface {
	GetByID(ctx context.Context, userID string) (User, error)
	// ListActiveByRole returns active users whose role matches case-insensitively.
	ListActiveByRole(ctx context.Context, role string) ([]User, error)
}
