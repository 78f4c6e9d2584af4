package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"qonnectme/internal/domain"
	"qonnectme/internal/qrcode"
)

type availabilityResponse struct {
	Username  string `json:"username"`
	Available bool   `json:"available"`
}

func (a *api) handleUsernameAvailability(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.PathValue("username"))
	WriteJSON(w, http.StatusOK, availabilityResponse{
		Username:  name,
		Available: a.profileSvc.IsUsernameAvailable(r.Context(), name),
	})
}

func (a *api) handleProfileGet(w http.ResponseWriter, r *http.Request) {
	p, err := a.profileSvc.GetPublicProfile(r.Context(), r.PathValue("username"))
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, p)
}

// handleProfileQR redirects to a QR image of the profile address. size, bg
// and fg override the card defaults.
func (a *api) handleProfileQR(w http.ResponseWriter, r *http.Request) {
	p, err := a.profileSvc.GetPublicProfile(r.Context(), r.PathValue("username"))
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	opts := qrcode.DefaultOptions()
	q := r.URL.Query()
	if raw := strings.TrimSpace(q.Get("size")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			WriteDomainError(w, domain.Invalid("size", "must be a number"))
			return
		}
		opts.Size = n
	}
	if bg := strings.TrimSpace(q.Get("bg")); bg != "" {
		opts.Background = bg
	}
	if fg := strings.TrimSpace(q.Get("fg")); fg != "" {
		opts.Foreground = fg
	}

	target, err := qrcode.URL(p.ProfileURL, opts)
	if err != nil {
		WriteDomainError(w, domain.Invalid("qr", err.Error()))
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=300")
	http.Redirect(w, r, target, http.StatusFound)
}
