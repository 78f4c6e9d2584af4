package httpapi

import (
	"net/http"
	"strings"
	"time"

	"qonnectme/internal/auth"
	"qonnectme/internal/domain"
	"qonnectme/internal/service"
)

type registerRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

func (a *api) handleAuthRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadJSON(w, err)
		return
	}

	u, sessID, err := a.authSvc.Register(r.Context(), service.RegisterInput{
		Email:    req.Email,
		Username: req.Username,
		Name:     req.Name,
		Password: req.Password,
	}, a.clientIP(r), r.UserAgent())
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	a.startSession(w, sessID)
	a.writeMe(w, r, http.StatusCreated, u)
}

type loginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

func (a *api) handleAuthLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadJSON(w, err)
		return
	}

	req.Login = strings.TrimSpace(req.Login)
	if req.Login == "" || req.Password == "" {
		WriteDomainError(w, domain.NewValidationError(map[string]string{"login": "required", "password": "required"}))
		return
	}

	now := time.Now()
	ip := a.clientIP(r)
	if !a.loginLimiter.Allow("ip:"+ip, now) || !a.loginLimiter.Allow("login:"+strings.ToLower(req.Login), now) {
		a.metrics.rateLimited("login")
		WriteDomainError(w, domain.ErrRateLimited)
		return
	}

	u, sessID, err := a.authSvc.Login(r.Context(), req.Login, req.Password, ip, r.UserAgent())
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	a.startSession(w, sessID)
	a.writeMe(w, r, http.StatusOK, u)
}

type idTokenRequest struct {
	IDToken string `json:"id_token"`
}

// handleAuthProvider signs in with an ID token from provider, creating the
// account on first use.
func (a *api) handleAuthProvider(provider string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req idTokenRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeBadJSON(w, err)
			return
		}
		req.IDToken = strings.TrimSpace(req.IDToken)
		if req.IDToken == "" {
			WriteDomainError(w, domain.Invalid("id_token", "required"))
			return
		}

		ip := a.clientIP(r)
		if !a.loginLimiter.Allow("ip:"+ip, time.Now()) {
			a.metrics.rateLimited("login")
			WriteDomainError(w, domain.ErrRateLimited)
			return
		}

		u, sessID, err := a.authSvc.LoginWithProvider(r.Context(), provider, req.IDToken, ip, r.UserAgent())
		if err != nil {
			WriteDomainError(w, err)
			return
		}

		a.startSession(w, sessID)
		a.writeMe(w, r, http.StatusOK, u)
	}
}

func (a *api) handleAuthLogout(w http.ResponseWriter, r *http.Request) {
	sessID, ok := CurrentSessionID(r.Context())
	if !ok || sessID == "" {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	if err := a.authSvc.Logout(r.Context(), sessID); err != nil {
		a.logger.Warn("logout failed", "err", err)
	}
	auth.ClearSessionCookie(w, a.cookieSecure)
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) startSession(w http.ResponseWriter, sessID string) {
	auth.SetSessionCookie(w, a.cookieCodec.EncodeSessionID(sessID), a.sessionTTL, a.cookieSecure)
}
