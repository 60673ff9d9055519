package auth

import "strings"

// Identity is the authenticated caller carried through feature services.
type Identity struct {
	UserID string
	Name   string
	Email  string
	Role   string
}

// HasRole reports whether the caller holds role, ignoring case.
func (i Identity) HasRole(role string) bool {
	return role != "" && strings.EqualFold(strings.TrimSpace(i.Role), strings.TrimSpace(role))
}
