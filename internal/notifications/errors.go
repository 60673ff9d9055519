package notifications

import "errors"

var (
	ErrNotFound      = errors.New("notification not found")
	ErrForbidden     = errors.New("notification belongs to another recipient")
	ErrInvalidTarget = errors.New("notification needs exactly one of user or role")
)
