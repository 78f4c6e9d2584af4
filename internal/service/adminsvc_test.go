package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"qonnectme/internal/domain"
)

type stubAdminUsersStore struct {
	t         *testing.T
	users     map[string]domain.User
	listFn    func(limit, offset int) ([]domain.User, error)
	searchFn  func(query string, limit, offset int) ([]domain.User, error)
	statusSet []domain.UserStatus
}

func (s *stubAdminUsersStore) ListUsers(_ context.Context, limit, offset int) ([]domain.User, error) {
	if s.listFn == nil {
		s.t.Fatalf("unexpected ListUsers call")
	}
	return s.listFn(limit, offset)
}

func (s *stubAdminUsersStore) SearchUsers(_ context.Context, query string, limit, offset int) ([]domain.User, error) {
	if s.searchFn == nil {
		s.t.Fatalf("unexpected SearchUsers call")
	}
	return s.searchFn(query, limit, offset)
}

func (s *stubAdminUsersStore) GetUserByID(_ context.Context, id string) (domain.User, error) {
	u, ok := s.users[id]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

func (s *stubAdminUsersStore) SetUserStatus(_ context.Context, userID string, status domain.UserStatus) error {
	u, ok := s.users[userID]
	if !ok {
		return domain.ErrNotFound
	}
	u.Status = status
	s.users[userID] = u
	s.statusSet = append(s.statusSet, status)
	return nil
}

type recordingRevoker struct {
	revoked []string
}

func (r *recordingRevoker) RevokeUserSessions(_ context.Context, userID string, _ time.Time) error {
	r.revoked = append(r.revoked, userID)
	return nil
}

func TestAdminListUsersUsesSearchForQuery(t *testing.T) {
	store := &stubAdminUsersStore{
		t: t,
		searchFn: func(query string, limit, offset int) ([]domain.User, error) {
			if query != "alice" || limit != 10 || offset != 5 {
				t.Fatalf("unexpected search args %q %d %d", query, limit, offset)
			}
			return []domain.User{{ID: "u1"}}, nil
		},
	}
	svc := &AdminService{Users: store}

	out, err := svc.ListUsers(context.Background(), "  alice ", 10, 5)
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(out) != 1 || out[0].ID != "u1" {
		t.Fatalf("unexpected users: %+v", out)
	}
}

func TestAdminDisableUserRevokesSessions(t *testing.T) {
	store := &stubAdminUsersStore{t: t, users: map[string]domain.User{
		"admin": {ID: "admin", Status: domain.UserStatusActive},
		"u2":    {ID: "u2", Status: domain.UserStatusActive},
	}}
	revoker := &recordingRevoker{}
	svc := &AdminService{Users: store, Sessions: revoker}

	u, err := svc.SetUserStatus(context.Background(), "admin", "u2", domain.UserStatusDisabled)
	if err != nil {
		t.Fatalf("SetUserStatus: %v", err)
	}
	if u.Status != domain.UserStatusDisabled {
		t.Fatalf("expected disabled, got %q", u.Status)
	}
	if len(revoker.revoked) != 1 || revoker.revoked[0] != "u2" {
		t.Fatalf("expected sessions revoked for u2, got %v", revoker.revoked)
	}
}

func TestAdminCannotDisableSelf(t *testing.T) {
	store := &stubAdminUsersStore{t: t, users: map[string]domain.User{"admin": {ID: "admin"}}}
	svc := &AdminService{Users: store}

	_, err := svc.SetUserStatus(context.Background(), "admin", "admin", domain.UserStatusDisabled)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(store.statusSet) != 0 {
		t.Fatalf("status should not change")
	}
}

func TestAdminSetUserStatusRejectsUnknownStatus(t *testing.T) {
	svc := &AdminService{Users: &stubAdminUsersStore{t: t}}
	_, err := svc.SetUserStatus(context.Background(), "admin", "u2", domain.UserStatus("banned"))
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

type memAdminProducts struct {
	created []domain.Product
}

func (m *memAdminProducts) CreateProduct(_ context.Context, p domain.Product) (domain.Product, error) {
	p.ID = "p1"
	m.created = append(m.created, p)
	return p, nil
}

func (m *memAdminProducts) UpdateProduct(context.Context, string, domain.ProductInput, time.Time) (domain.Product, error) {
	return domain.Product{}, domain.ErrNotFound
}

func (m *memAdminProducts) DeleteProduct(context.Context, string) error {
	return nil
}

func TestAdminCreateProductValidates(t *testing.T) {
	products := &memAdminProducts{}
	svc := &AdminService{Products: products}

	_, err := svc.CreateProduct(context.Background(), domain.ProductInput{})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if verr.Fields["name"] == "" || verr.Fields["price_cents"] == "" {
		t.Fatalf("expected name and price errors, got %v", verr.Fields)
	}

	name := "  QR Code Scarf "
	price := int64(1999)
	p, err := svc.CreateProduct(context.Background(), domain.ProductInput{Name: &name, PriceCents: &price})
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}
	if p.Name != "QR Code Scarf" || p.PriceCents != 1999 {
		t.Fatalf("unexpected product: %+v", p)
	}
}

func TestAdminUpdateProductRejectsNegativePrice(t *testing.T) {
	svc := &AdminService{Products: &memAdminProducts{}}
	price := int64(-1)
	_, err := svc.UpdateProduct(context.Background(), "p1", domain.ProductInput{PriceCents: &price})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
