package httpapi

import (
	"net/http"
	"strings"
	"time"

	"qonnectme/internal/domain"
)

type adminUserResponse struct {
	ID          string            `json:"id"`
	Email       string            `json:"email,omitempty"`
	Status      domain.UserStatus `json:"status"`
	Role        domain.Role       `json:"role"`
	CreatedAt   time.Time         `json:"created_at"`
	LastLoginAt *time.Time        `json:"last_login_at,omitempty"`
}

func (a *api) adminUser(u domain.User) adminUserResponse {
	return adminUserResponse{
		ID:          u.ID,
		Email:       u.Email,
		Status:      u.Status,
		Role:        a.authSvc.Role(u),
		CreatedAt:   u.CreatedAt,
		LastLoginAt: u.LastLoginAt,
	}
}

func (a *api) handleAdminUsersList(w http.ResponseWriter, r *http.Request) {
	users, err := a.adminSvc.ListUsers(r.Context(), r.URL.Query().Get("q"), queryInt(r, "limit", 50), queryInt(r, "offset", 0))
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	out := make([]adminUserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, a.adminUser(u))
	}
	WriteJSON(w, http.StatusOK, out)
}

type adminUserUpdateRequest struct {
	Status string `json:"status"`
}

func (a *api) handleAdminUserUpdate(w http.ResponseWriter, r *http.Request) {
	actor, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	var req adminUserUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadJSON(w, err)
		return
	}

	status := domain.UserStatus(strings.ToLower(strings.TrimSpace(req.Status)))
	u, err := a.adminSvc.SetUserStatus(r.Context(), actor.ID, r.PathValue("id"), status)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	a.logger.Info("admin set user status", "actor_id", actor.ID, "user_id", u.ID, "status", u.Status)
	WriteJSON(w, http.StatusOK, a.adminUser(u))
}

type productRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	PriceCents  *int64  `json:"price_cents"`
	ImageURL    *string `json:"image_url"`
}

func (p productRequest) input() domain.ProductInput {
	return domain.ProductInput{
		Name:        p.Name,
		Description: p.Description,
		PriceCents:  p.PriceCents,
		ImageURL:    p.ImageURL,
	}
}

func (a *api) handleAdminProductCreate(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadJSON(w, err)
		return
	}

	p, err := a.adminSvc.CreateProduct(r.Context(), req.input())
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, p)
}

func (a *api) handleAdminProductUpdate(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadJSON(w, err)
		return
	}

	p, err := a.adminSvc.UpdateProduct(r.Context(), r.PathValue("id"), req.input())
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, p)
}

func (a *api) handleAdminProductDelete(w http.ResponseWriter, r *http.Request) {
	if err := a.adminSvc.DeleteProduct(r.Context(), r.PathValue("id")); err != nil {
		WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
