package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"strings"
	"time"
)

const SessionCookieName = "qonnect_session"

// CookieCodec signs session ids as "<id>.<base64url hmac-sha256>". With an
// empty secret ids pass through unsigned, which is only meant for local
// development.
type CookieCodec struct {
	secret []byte
}

func NewCookieCodec(secret []byte) CookieCodec {
	return CookieCodec{secret: append([]byte(nil), secret...)}
}

func (c CookieCodec) sign(id string) []byte {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(id))
	return mac.Sum(nil)
}

func (c CookieCodec) EncodeSessionID(sessionID string) string {
	if len(c.secret) == 0 {
		return sessionID
	}
	return sessionID + "." + base64.RawURLEncoding.EncodeToString(c.sign(sessionID))
}

// DecodeSessionID verifies a cookie value and returns the session id in it.
func (c CookieCodec) DecodeSessionID(value string) (string, bool) {
	if len(c.secret) == 0 {
		return value, value != ""
	}
	id, encSig, ok := strings.Cut(value, ".")
	if !ok || id == "" {
		return "", false
	}
	sig, err := base64.RawURLEncoding.DecodeString(encSig)
	if err != nil || !hmac.Equal(sig, c.sign(id)) {
		return "", false
	}
	return id, true
}

// SessionIDFromRequest returns the verified session id carried by the
// request's session cookie.
func (c CookieCodec) SessionIDFromRequest(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return c.DecodeSessionID(cookie.Value)
}

func sessionCookie(value string, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func SetSessionCookie(w http.ResponseWriter, value string, ttl time.Duration, secure bool) {
	c := sessionCookie(value, secure)
	c.MaxAge = int(ttl.Seconds())
	c.Expires = time.Now().Add(ttl)
	http.SetCookie(w, c)
}

func ClearSessionCookie(w http.ResponseWriter, secure bool) {
	c := sessionCookie("", secure)
	c.MaxAge = -1
	c.Expires = time.Unix(0, 0)
	http.SetCookie(w, c)
}
