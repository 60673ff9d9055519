package users

import (
	"context"
	"errors"
	"strings"
)

// Service answers recipient lookups for notifications.
type Service struct {
	Repo Repo
}

func NewService(repo Repo) *Service {
	return &Service{Repo: repo}
}

func (s *Service) GetByID(ctx context.Context, userID string) (User, error) {
	if s == nil || s.Repo == nil {
		return User{}, errors.New("users service not configured")
	}
	if strings.TrimSpace(userID) == "" {
		return User{}, errors.New("user id is required")
	}
	return s.Repo.GetByID(ctx, userID)
}

// EmailForUser returns the address of an active user. ok is false when the user
// is unknown, inactive or has no email.
func (s *Service) EmailForUser(ctx context.Context, userID string) (email string, ok bool, err error) {
	user, err := s.GetByID(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	email = strings.TrimSpace(user.Email)
	if !user.Active || email == "" {
		return "", false, nil
	}
	return email, true, nil
}

// EmailsForRole returns the distinct addresses of all active users holding role.
func (s *Service) EmailsForRole(ctx context.Context, role string) ([]string, error) {
	members, err := s.ListByRole(ctx, role)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(members))
	var out []string
	for _, u := range members {
		email := strings.TrimSpace(u.Email)
		if email == "" {
			continue
		}
		key := strings.ToLower(email)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, email)
	}
	return out, nil
}

// ListByRole returns the active members of role.
func (s *Service) ListByRole(ctx context.Context, role string) ([]User, error) {
	if s == nil || s.Repo == nil {
		return nil, errors.New("users service not configured")
	}
	role = strings.TrimSpace(role)
	if role == "" {
		return nil, errors.New("role is required")
	}
	return s.Repo.ListActiveByRole(ctx, role)
}
