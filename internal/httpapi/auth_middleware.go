package httpapi

import (
	"context"
	"net"
	"net/http"
	"net/netip"
	"strings"

	"qonnectme/internal/domain"
)

type authKey struct{}

// authState is what requireAuth resolved from the session cookie.
type authState struct {
	user      domain.User
	sessionID string
}

func withAuth(ctx context.Context, u domain.User, sessionID string) context.Context {
	return context.WithValue(ctx, authKey{}, authState{user: u, sessionID: sessionID})
}

func CurrentUser(ctx context.Context) (domain.User, bool) {
	st, ok := ctx.Value(authKey{}).(authState)
	return st.user, ok
}

func CurrentSessionID(ctx context.Context) (string, bool) {
	st, ok := ctx.Value(authKey{}).(authState)
	return st.sessionID, ok && st.sessionID != ""
}

// requireAuth resolves the session cookie to an active user. Disabled
// users and dead sessions both come back as errors from the auth service.
func (a *api) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessID, ok := a.cookieCodec.SessionIDFromRequest(r)
		if !ok {
			WriteDomainError(w, domain.ErrUnauthorized)
			return
		}
		u, err := a.authSvc.GetUserForSession(r.Context(), sessID)
		if err != nil {
			WriteDomainError(w, err)
			return
		}
		next(w, r.WithContext(withAuth(r.Context(), u, sessID)))
	}
}

func (a *api) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return a.requireAuth(func(w http.ResponseWriter, r *http.Request) {
		if u, _ := CurrentUser(r.Context()); a.authSvc.Role(u) != domain.RoleAdmin {
			WriteDomainError(w, domain.ErrForbidden)
			return
		}
		next(w, r)
	})
}

// clientIP keys the rate limiters. X-Forwarded-For is only read when the
// peer is a trusted proxy; the rightmost hop that is not itself a trusted
// proxy is the client.
func (a *api) clientIP(r *http.Request) string {
	peer, ok := peerAddr(r.RemoteAddr)
	if !ok {
		return r.RemoteAddr
	}
	if !a.trusted(peer) {
		return peer.String()
	}
	client := peer
	hops := strings.Split(r.Header.Get("X-Forwarded-For"), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		addr, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
		if err != nil {
			break
		}
		client = addr.Unmap()
		if !a.trusted(client) {
			break
		}
	}
	return client.String()
}

func (a *api) trusted(addr netip.Addr) bool {
	for _, p := range a.trustedProxies {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

func peerAddr(remote string) (netip.Addr, bool) {
	host := remote
	if h, _, err := net.SplitHostPort(remote); err == nil {
		host = h
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}
