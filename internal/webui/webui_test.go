package webui

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"qonnectme/internal/domain"

	"github.com/stretchr/testify/require"
)

type profileLookupFunc func(ctx context.Context, username string) (domain.Profile, error)

func (f profileLookupFunc) GetPublicProfile(ctx context.Context, username string) (domain.Profile, error) {
	return f(ctx, username)
}

func signedIn(v bool) func(*http.Request) bool {
	return func(*http.Request) bool { return v }
}

func serve(h http.Handler, target string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
	return rr
}

func TestGateRedirectsAnonymousToLogin(t *testing.T) {
	h := New(Options{SignedIn: signedIn(false)})

	for _, p := range []string{"/profile", "/activity", "/friends/requests", "/store", "/cart", "/admin/users"} {
		rr := serve(h, p)
		require.Equal(t, http.StatusFound, rr.Code, p)
		require.Equal(t, "/login", rr.Header().Get("Location"), p)
	}
}

func TestGateLetsAnonymousSeePublicPages(t *testing.T) {
	h := New(Options{SignedIn: signedIn(false)})

	for _, p := range []string{"/", "/login", "/signup", "/profiles-are-public-prefix-lookalike"} {
		rr := serve(h, p)
		require.Equal(t, http.StatusOK, rr.Code, p)
	}
}

func TestGateRedirectsSignedInAwayFromLogin(t *testing.T) {
	h := New(Options{SignedIn: signedIn(true)})

	for _, p := range []string{"/login", "/signup"} {
		rr := serve(h, p)
		require.Equal(t, http.StatusFound, rr.Code, p)
		require.Equal(t, "/profile", rr.Header().Get("Location"), p)
	}

	rr := serve(h, "/profile")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "Your profile")
}

func TestStaticDirFallsBackToIndex(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>spa</html>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.js"), []byte("console.log(1)"), 0o644))

	h := New(Options{StaticDir: dir, SignedIn: signedIn(true)})

	rr := serve(h, "/app.js")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "console.log(1)", rr.Body.String())

	rr = serve(h, "/friends")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "spa")
}

func TestProfileCard(t *testing.T) {
	h := New(Options{
		Profiles: profileLookupFunc(func(_ context.Context, username string) (domain.Profile, error) {
			require.Equal(t, "alice", username)
			return domain.Profile{
				Username:  "alice",
				Name:      "Alice Doe",
				Bio:       "hello <there>",
				QRCodeURL: "https://api.qrserver.com/v1/create-qr-code/?data=x",
			}, nil
		}),
	})

	rr := serve(h, "/u/alice")
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	require.Contains(t, body, "<title>Alice Doe</title>")
	require.Contains(t, body, "@alice")
	require.Contains(t, body, "hello &lt;there&gt;")
	require.Contains(t, body, `class="qr"`)
	require.Contains(t, body, ">AD<")
}

func TestProfileCardUnknownUser(t *testing.T) {
	h := New(Options{
		Profiles: profileLookupFunc(func(context.Context, string) (domain.Profile, error) {
			return domain.Profile{}, domain.ErrNotFound
		}),
	})

	rr := serve(h, "/u/nobody")
	require.Equal(t, http.StatusNotFound, rr.Code)
	require.True(t, strings.Contains(rr.Body.String(), "<title>User Not Found</title>"))
}
