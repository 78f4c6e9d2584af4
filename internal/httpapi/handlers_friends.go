package httpapi

import (
	"context"
	"net/http"
	"strings"

	"qonnectme/internal/domain"
)

func (a *api) handleFriendsList(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	out, err := a.friendsSvc.ListOverview(r.Context(), u.ID)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, out)
}

// The addressee is named by username or by email.
type createFriendRequestRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

func (a *api) handleFriendsCreateRequest(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	var req createFriendRequestRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadJSON(w, err)
		return
	}

	target := strings.TrimSpace(req.Username)
	if target == "" {
		target = strings.TrimSpace(req.Email)
	}

	fr, err := a.friendsSvc.CreateRequest(r.Context(), u.ID, target)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, fr)
}

func (a *api) handleFriendsAccept(w http.ResponseWriter, r *http.Request) {
	a.respondToFriendRequest(w, r, a.friendsSvc.Accept)
}

func (a *api) handleFriendsDecline(w http.ResponseWriter, r *http.Request) {
	a.respondToFriendRequest(w, r, a.friendsSvc.Decline)
}

func (a *api) handleFriendsCancel(w http.ResponseWriter, r *http.Request) {
	a.respondToFriendRequest(w, r, a.friendsSvc.Cancel)
}

func (a *api) respondToFriendRequest(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, userID, requestID string) error) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		WriteDomainError(w, domain.Invalid("id", "required"))
		return
	}

	if err := fn(r.Context(), u.ID, id); err != nil {
		WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
