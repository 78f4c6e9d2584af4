package httpapi

import (
	"net/http"
	"strings"

	"qonnectme/internal/domain"
)

func (a *api) handleActivityFeed(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	items, err := a.activitySvc.Feed(r.Context(), u.ID, queryInt(r, "limit", 0))
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, items)
}

type postActivityRequest struct {
	Type     string `json:"type"`
	Content  string `json:"content"`
	ImageURL string `json:"image_url"`
}

func (a *api) handleActivityPost(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	var req postActivityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadJSON(w, err)
		return
	}

	item, err := a.activitySvc.Post(r.Context(), u.ID, domain.ActivityKind(strings.TrimSpace(req.Type)), req.Content, req.ImageURL)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, item)
}
