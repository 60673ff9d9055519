package requests

import "errors"

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("request not found")
	ErrForbidden    = errors.New("forbidden")
	ErrNotPending   = errors.New("request is no longer pending")
	ErrConflict     = errors.New("request was modified concurrently")
	ErrNotSignable  = errors.New("request has no approved original document")
	ErrStampFailed  = errors.New("signature stamping failed")
)
