package webui

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"qonnectme/internal/domain"
)

// protectedPrefixes are the page trees that need a signed-in user.
var protectedPrefixes = []string{"/profile", "/activity", "/friends", "/store", "/cart", "/admin"}

type ProfileLookup interface {
	GetPublicProfile(ctx context.Context, username string) (domain.Profile, error)
}

type Options struct {
	Logger *slog.Logger

	// StaticDir holds the built single-page app. When empty the server
	// renders a minimal shell for every page route.
	StaticDir string
	Profiles  ProfileLookup
	SignedIn  func(r *http.Request) bool
}

type ui struct {
	logger    *slog.Logger
	staticDir string
	files     http.Handler
	profiles  ProfileLookup
	signedIn  func(r *http.Request) bool
}

func New(opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	u := &ui{
		logger:    logger,
		staticDir: opts.StaticDir,
		profiles:  opts.Profiles,
		signedIn:  opts.SignedIn,
	}
	if u.staticDir != "" {
		u.files = http.FileServer(http.Dir(u.staticDir))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /u/{username}", u.handleProfileCard)
	mux.HandleFunc("GET /", u.handlePage)
	return u.gate(mux)
}

func isProtected(p string) bool {
	for _, prefix := range protectedPrefixes {
		if p == prefix || strings.HasPrefix(p, prefix+"/") {
			return true
		}
	}
	return false
}

func (u *ui) gate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		signedIn := u.signedIn != nil && u.signedIn(r)
		switch {
		case isProtected(r.URL.Path) && !signedIn:
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		case (r.URL.Path == "/login" || r.URL.Path == "/signup") && signedIn:
			http.Redirect(w, r, "/profile", http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (u *ui) handlePage(w http.ResponseWriter, r *http.Request) {
	if u.files == nil {
		renderShell(w, http.StatusOK, pageTitle(r.URL.Path))
		return
	}

	clean := path.Clean("/" + r.URL.Path)
	if clean != "/" {
		full := filepath.Join(u.staticDir, filepath.FromSlash(clean))
		if st, err := os.Stat(full); err == nil && !st.IsDir() {
			u.files.ServeHTTP(w, r)
			return
		}
	}
	http.ServeFile(w, r, filepath.Join(u.staticDir, "index.html"))
}

func (u *ui) handleProfileCard(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")
	if u.profiles == nil || !domain.ValidUsername(username) {
		renderNotFound(w)
		return
	}

	p, err := u.profiles.GetPublicProfile(r.Context(), username)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			u.logger.Error("webui: profile lookup failed", "err", err, "username", username)
		}
		renderNotFound(w)
		return
	}
	renderProfileCard(w, p)
}

func pageTitle(p string) string {
	switch {
	case p == "/login":
		return "Sign in"
	case p == "/signup":
		return "Create account"
	case strings.HasPrefix(p, "/profile"):
		return "Your profile"
	case strings.HasPrefix(p, "/activity"):
		return "Activity"
	case strings.HasPrefix(p, "/friends"):
		return "Friends"
	case strings.HasPrefix(p, "/store"):
		return "Store"
	case strings.HasPrefix(p, "/cart"):
		return "Cart"
	case strings.HasPrefix(p, "/admin"):
		return "Admin"
	default:
		return "Qonnectme"
	}
}
