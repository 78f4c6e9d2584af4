package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"qonnectme/internal/auth"
	"qonnectme/internal/domain"
)

const maxAvatarSize = 8 << 20

type meResponse struct {
	ID          string          `json:"id"`
	Email       string          `json:"email,omitempty"`
	Role        domain.Role     `json:"role"`
	CreatedAt   time.Time       `json:"created_at"`
	LastLoginAt *time.Time      `json:"last_login_at,omitempty"`
	Profile     *domain.Profile `json:"profile"`
}

// writeMe writes the account together with its profile. A missing profile
// is reported as null rather than failing the request.
func (a *api) writeMe(w http.ResponseWriter, r *http.Request, status int, u domain.User) {
	resp := meResponse{
		ID:          u.ID,
		Email:       u.Email,
		Role:        a.authSvc.Role(u),
		CreatedAt:   u.CreatedAt,
		LastLoginAt: u.LastLoginAt,
	}
	if a.profileSvc != nil {
		p, err := a.profileSvc.GetProfile(r.Context(), u.ID)
		switch {
		case err == nil:
			resp.Profile = &p
		case !errors.Is(err, domain.ErrNotFound):
			a.logger.Error("load profile failed", "err", err, "user_id", u.ID)
		}
	}
	w.Header().Set("Cache-Control", "no-store")
	WriteJSON(w, status, resp)
}

func (a *api) handleUsersMe(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}
	a.writeMe(w, r, http.StatusOK, u)
}

type updateProfileRequest struct {
	Name      *string `json:"name"`
	Bio       *string `json:"bio"`
	AvatarURL *string `json:"avatar_url"`
	Username  *string `json:"username"`
}

func (a *api) handleUsersMeUpdate(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	var req updateProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadJSON(w, err)
		return
	}

	p, err := a.profileSvc.SaveProfile(r.Context(), u.ID, domain.ProfileUpdate{
		Name:      req.Name,
		Bio:       req.Bio,
		AvatarURL: req.AvatarURL,
		Username:  req.Username,
	})
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, p)
}

func (a *api) handleUsersMeAvatar(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxAvatarSize)
	if err := r.ParseMultipartForm(maxAvatarSize); err != nil {
		writeBadUpload(w, err, "avatar", "avatar file is too large")
		return
	}

	file, _, err := r.FormFile("avatar")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_avatar", "avatar file is required")
		return
	}
	defer file.Close()

	p, err := a.profileSvc.UploadAvatar(r.Context(), u.ID, file)
	if err != nil {
		if !errors.Is(err, domain.ErrValidation) {
			a.logger.Error("avatar upload failed", "err", err, "user_id", u.ID)
		}
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, p)
}

func (a *api) handleUsersMeDelete(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	if err := a.authSvc.DeleteAccount(r.Context(), u.ID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		WriteDomainError(w, err)
		return
	}
	if a.musicSvc != nil {
		a.musicSvc.Forget(r.Context(), u.ID)
	}

	auth.ClearSessionCookie(w, a.cookieSecure)
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) handleUsersSearch(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	q := strings.TrimSpace(r.URL.Query().Get("q"))
	out, err := a.usersSvc.Search(r.Context(), q, queryInt(r, "limit", 20), u.ID)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, out)
}

// queryInt reads an integer query parameter, falling back to def when it is
// missing or malformed.
func queryInt(r *http.Request, name string, def int) int {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
