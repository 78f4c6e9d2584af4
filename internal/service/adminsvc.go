package service

import (
	"context"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"qonnectme/internal/domain"
)

type AdminUsersStore interface {
	ListUsers(ctx context.Context, limit, offset int) ([]domain.User, error)
	SearchUsers(ctx context.Context, query string, limit, offset int) ([]domain.User, error)
	GetUserByID(ctx context.Context, id string) (domain.User, error)
	SetUserStatus(ctx context.Context, userID string, status domain.UserStatus) error
}

type AdminProductsStore interface {
	CreateProduct(ctx context.Context, p domain.Product) (domain.Product, error)
	UpdateProduct(ctx context.Context, id string, in domain.ProductInput, when time.Time) (domain.Product, error)
	DeleteProduct(ctx context.Context, id string) error
}

// UserSessionsRevoker signs a user out everywhere.
type UserSessionsRevoker interface {
	RevokeUserSessions(ctx context.Context, userID string, when time.Time) error
}

type AdminService struct {
	Users    AdminUsersStore
	Products AdminProductsStore
	Sessions UserSessionsRevoker
	Now      func() time.Time
}

func (s *AdminService) ListUsers(ctx context.Context, query string, limit, offset int) ([]domain.User, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.Users.ListUsers(ctx, limit, offset)
	}
	return s.Users.SearchUsers(ctx, query, limit, offset)
}

func (s *AdminService) SetUserStatus(ctx context.Context, actorID, userID string, status domain.UserStatus) (domain.User, error) {
	if !status.Valid() {
		return domain.User{}, domain.Invalid("status", "must be active or disabled")
	}
	if actorID == userID && status == domain.UserStatusDisabled {
		return domain.User{}, domain.Invalid("status", "cannot disable yourself")
	}
	if err := s.Users.SetUserStatus(ctx, userID, status); err != nil {
		return domain.User{}, err
	}
	if status == domain.UserStatusDisabled && s.Sessions != nil {
		if err := s.Sessions.RevokeUserSessions(ctx, userID, s.now()); err != nil {
			return domain.User{}, err
		}
	}
	return s.Users.GetUserByID(ctx, userID)
}

func (s *AdminService) CreateProduct(ctx context.Context, in domain.ProductInput) (domain.Product, error) {
	fields := validateProductInput(in, true)
	if len(fields) > 0 {
		return domain.Product{}, domain.NewValidationError(fields)
	}
	now := s.now()
	p := domain.Product{
		Name:       strings.TrimSpace(*in.Name),
		PriceCents: *in.PriceCents,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if in.Description != nil {
		p.Description = strings.TrimSpace(*in.Description)
	}
	if in.ImageURL != nil {
		p.ImageURL = strings.TrimSpace(*in.ImageURL)
	}
	return s.Products.CreateProduct(ctx, p)
}

func (s *AdminService) UpdateProduct(ctx context.Context, id string, in domain.ProductInput) (domain.Product, error) {
	fields := validateProductInput(in, false)
	if len(fields) > 0 {
		return domain.Product{}, domain.NewValidationError(fields)
	}
	return s.Products.UpdateProduct(ctx, id, in, s.now())
}

func (s *AdminService) DeleteProduct(ctx context.Context, id string) error {
	return s.Products.DeleteProduct(ctx, id)
}

func (s *AdminService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func validateProductInput(in domain.ProductInput, create bool) map[string]string {
	fields := map[string]string{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" || utf8.RuneCountInString(name) > 80 {
			fields["name"] = "must be 1-80 characters"
		}
	} else if create {
		fields["name"] = "required"
	}
	if in.PriceCents != nil {
		if *in.PriceCents < 0 {
			fields["price_cents"] = "must be >= 0"
		}
	} else if create {
		fields["price_cents"] = "required"
	}
	if in.Description != nil && utf8.RuneCountInString(*in.Description) > 2000 {
		fields["description"] = "must be 2000 characters or less"
	}
	if in.ImageURL != nil {
		raw := strings.TrimSpace(*in.ImageURL)
		if raw != "" {
			if u, err := url.Parse(raw); err != nil || (u.Host == "" && !strings.HasPrefix(raw, "/")) {
				fields["image_url"] = "must be a URL or absolute path"
			}
		}
	}
	return fields
}
