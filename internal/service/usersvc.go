package service

import (
	"context"
	"strings"

	"qonnectme/internal/domain"
)

type ProfileSearchStore interface {
	SearchProfiles(ctx context.Context, q string, limit int, excludeUserID string) ([]domain.Profile, error)
}

type UsersService struct {
	Store ProfileSearchStore
}

func (s *UsersService) Search(ctx context.Context, q string, limit int, excludeUserID string) ([]domain.UserSummary, error) {
	q = strings.TrimSpace(q)
	if len(q) < 3 {
		return nil, domain.Invalid("q", "must be at least 3 characters")
	}
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	profiles, err := s.Store.SearchProfiles(ctx, q, limit, excludeUserID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.UserSummary, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, p.Summary())
	}
	return out, nil
}
