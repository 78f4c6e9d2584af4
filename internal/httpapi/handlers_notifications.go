package httpapi

import (
	"net/http"

	"qonnectme/internal/domain"
)

type deviceTokenBody struct {
	Token    string `json:"token"`
	Platform string `json:"platform"`
}

// POST /v1/notifications/token registers (or moves) a device token.
func (a *api) handleNotificationsTokenUpsert(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}
	var body deviceTokenBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeBadJSON(w, err)
		return
	}
	tok, err := a.notificationsSvc.RegisterToken(r.Context(), u.ID, body.Token, body.Platform)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, tok)
}

// DELETE /v1/notifications/token takes the token from ?token= or, for
// clients that cannot set a query, from a JSON body.
func (a *api) handleNotificationsTokenDelete(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}
	var body deviceTokenBody
	if body.Token = r.URL.Query().Get("token"); body.Token == "" {
		if err := decodeOptionalJSON(w, r, &body); err != nil {
			writeBadJSON(w, err)
			return
		}
	}
	if err := a.notificationsSvc.DeleteToken(r.Context(), u.ID, body.Token); err != nil {
		WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
