package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"qonnectme/internal/auth"
	"qonnectme/internal/domain"
	"qonnectme/internal/flows"
	"qonnectme/internal/service"
)

type RouterOpts struct {
	Logger *slog.Logger
	IsProd bool

	DBPing func(context.Context) error

	Auth          *service.AuthService
	Profiles      *service.ProfileService
	Users         *service.UsersService
	Friends       *service.FriendsService
	Activity      *service.ActivityService
	Store         *service.StoreService
	Music         *service.MusicService
	Notifications *service.NotificationService
	Admin         *service.AdminService
	Flows         *flows.Registry

	CookieCodec  auth.CookieCodec
	CookieSecure bool
	SessionTTL   time.Duration

	// TrustedProxies are the peers allowed to set X-Forwarded-For.
	TrustedProxies []netip.Prefix

	Metrics *Metrics
	// Media serves locally stored uploads under /media/. Nil when uploads
	// live in a bucket.
	Media http.Handler
	// Pages serves everything outside the API.
	Pages http.Handler
}

func NewRouter(opts RouterOpts) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	api := &api{
		logger:           logger,
		isProd:           opts.IsProd,
		dbPing:           opts.DBPing,
		authSvc:          opts.Auth,
		profileSvc:       opts.Profiles,
		usersSvc:         opts.Users,
		friendsSvc:       opts.Friends,
		activitySvc:      opts.Activity,
		storeSvc:         opts.Store,
		musicSvc:         opts.Music,
		notificationsSvc: opts.Notifications,
		adminSvc:         opts.Admin,
		flows:            opts.Flows,
		cookieCodec:      opts.CookieCodec,
		cookieSecure:     opts.CookieSecure,
		sessionTTL:       opts.SessionTTL,
		trustedProxies:   opts.TrustedProxies,
		metrics:          opts.Metrics,
		loginLimiter:     newLoginLimiter(),
		flowLimiter:      newFlowLimiter(),
	}

	publicMux := http.NewServeMux()
	apiMux := http.NewServeMux()

	publicMux.HandleFunc("GET /healthz", api.handleHealthz)
	if opts.Metrics != nil {
		publicMux.Handle("GET /metrics", opts.Metrics.Handler())
	}
	if opts.Media != nil {
		publicMux.Handle("GET /media/", opts.Media)
	}
	if opts.Pages != nil {
		publicMux.Handle("/", opts.Pages)
	}

	if api.flows != nil {
		apiMux.HandleFunc("POST /api/genkit/{flow}", api.handleFlowRun)
	}

	if api.profileSvc != nil {
		apiMux.HandleFunc("GET /v1/usernames/{username}/availability", api.handleUsernameAvailability)
		apiMux.HandleFunc("GET /v1/profiles/{username}", api.handleProfileGet)
		apiMux.HandleFunc("GET /v1/profiles/{username}/qr", api.handleProfileQR)
	}

	if api.authSvc == nil {
		apiMux.HandleFunc("POST /v1/auth/register", handleNotImplemented)
		apiMux.HandleFunc("POST /v1/auth/login", handleNotImplemented)
		apiMux.HandleFunc("GET /v1/users/me", handleNotImplemented)
	} else {
		apiMux.HandleFunc("POST /v1/auth/register", api.handleAuthRegister)
		apiMux.HandleFunc("POST /v1/auth/login", api.handleAuthLogin)
		apiMux.HandleFunc("POST /v1/auth/firebase", api.handleAuthProvider(domain.ProviderFirebase))
		apiMux.HandleFunc("POST /v1/auth/google", api.handleAuthProvider(domain.ProviderGoogle))
		apiMux.HandleFunc("POST /v1/auth/apple", api.handleAuthProvider(domain.ProviderApple))
		apiMux.HandleFunc("POST /v1/auth/logout", api.requireAuth(api.handleAuthLogout))

		apiMux.HandleFunc("GET /v1/users/me", api.requireAuth(api.handleUsersMe))
		apiMux.HandleFunc("DELETE /v1/users/me", api.requireAuth(api.handleUsersMeDelete))
		if api.profileSvc != nil {
			apiMux.HandleFunc("PATCH /v1/users/me", api.requireAuth(api.handleUsersMeUpdate))
			apiMux.HandleFunc("POST /v1/users/me/avatar", api.requireAuth(api.handleUsersMeAvatar))
		}
		if api.usersSvc != nil {
			apiMux.HandleFunc("GET /v1/users/search", api.requireAuth(api.handleUsersSearch))
		}

		if api.friendsSvc != nil {
			apiMux.HandleFunc("GET /v1/friends", api.requireAuth(api.handleFriendsList))
			apiMux.HandleFunc("POST /v1/friends/requests", api.requireAuth(api.handleFriendsCreateRequest))
			apiMux.HandleFunc("POST /v1/friends/requests/{id}/accept", api.requireAuth(api.handleFriendsAccept))
			apiMux.HandleFunc("POST /v1/friends/requests/{id}/decline", api.requireAuth(api.handleFriendsDecline))
			apiMux.HandleFunc("POST /v1/friends/requests/{id}/cancel", api.requireAuth(api.handleFriendsCancel))
		}

		if api.activitySvc != nil {
			apiMux.HandleFunc("GET /v1/activity", api.requireAuth(api.handleActivityFeed))
			apiMux.HandleFunc("POST /v1/activity", api.requireAuth(api.handleActivityPost))
		}

		if api.storeSvc != nil {
			apiMux.HandleFunc("GET /v1/products", api.requireAuth(api.handleProductsList))
			apiMux.HandleFunc("GET /v1/cart", api.requireAuth(api.handleCartGet))
			apiMux.HandleFunc("POST /v1/cart/items", api.requireAuth(api.handleCartAdd))
			apiMux.HandleFunc("PUT /v1/cart/items/{productID}", api.requireAuth(api.handleCartSet))
			apiMux.HandleFunc("DELETE /v1/cart/items/{productID}", api.requireAuth(api.handleCartRemove))
		}

		if api.musicSvc != nil {
			apiMux.HandleFunc("GET /v1/music", api.requireAuth(api.handleMusicState))
			apiMux.HandleFunc("POST /v1/music/play", api.requireAuth(api.handleMusicPlay))
			apiMux.HandleFunc("POST /v1/music/next", api.requireAuth(api.handleMusicNext))
			apiMux.HandleFunc("POST /v1/music/prev", api.requireAuth(api.handleMusicPrev))
			apiMux.HandleFunc("POST /v1/music/ended", api.requireAuth(api.handleMusicEnded))
			apiMux.HandleFunc("POST /v1/music/songs", api.requireAuth(api.handleMusicUpload))
			apiMux.HandleFunc("DELETE /v1/music/songs/{id}", api.requireAuth(api.handleMusicDelete))
		}

		if api.notificationsSvc != nil {
			apiMux.HandleFunc("POST /v1/notifications/token", api.requireAuth(api.handleNotificationsTokenUpsert))
			apiMux.HandleFunc("DELETE /v1/notifications/token", api.requireAuth(api.handleNotificationsTokenDelete))
		}

		if api.adminSvc != nil {
			apiMux.HandleFunc("GET /v1/admin/users", api.requireAdmin(api.handleAdminUsersList))
			apiMux.HandleFunc("PATCH /v1/admin/users/{id}", api.requireAdmin(api.handleAdminUserUpdate))
			apiMux.HandleFunc("POST /v1/admin/products", api.requireAdmin(api.handleAdminProductCreate))
			apiMux.HandleFunc("PATCH /v1/admin/products/{id}", api.requireAdmin(api.handleAdminProductUpdate))
			apiMux.HandleFunc("DELETE /v1/admin/products/{id}", api.requireAdmin(api.handleAdminProductDelete))
		}
	}

	root := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isAPIPath(r.URL.Path) {
			_, pattern := apiMux.Handler(r)
			if pattern == "" {
				handleAPINotFound(w, r)
				return
			}
			setRoutePattern(r, pattern)
			apiMux.ServeHTTP(w, r)
			return
		}
		_, pattern := publicMux.Handler(r)
		setRoutePattern(r, pattern)
		publicMux.ServeHTTP(w, r)
	})

	var h http.Handler = root
	if opts.Metrics != nil {
		h = opts.Metrics.Middleware(h)
	}
	h = RequestLogger(logger)(h)
	h = RequestID(h)
	h = Recoverer(logger, opts.IsProd)(h)
	return h
}

func isAPIPath(p string) bool {
	return p == "/v1" || strings.HasPrefix(p, "/v1/") || strings.HasPrefix(p, "/api/")
}

func handleNotImplemented(w http.ResponseWriter, _ *http.Request) {
	WriteError(w, http.StatusNotImplemented, "not_implemented", "not implemented")
}

func handleAPINotFound(w http.ResponseWriter, _ *http.Request) {
	WriteError(w, http.StatusNotFound, "not_found", "not found")
}

type api struct {
	logger *slog.Logger
	isProd bool

	dbPing func(context.Context) error

	authSvc          *service.AuthService
	profileSvc       *service.ProfileService
	usersSvc         *service.UsersService
	friendsSvc       *service.FriendsService
	activitySvc      *service.ActivityService
	storeSvc         *service.StoreService
	musicSvc         *service.MusicService
	notificationsSvc *service.NotificationService
	adminSvc         *service.AdminService
	flows            *flows.Registry

	cookieCodec  auth.CookieCodec
	cookieSecure bool
	sessionTTL   time.Duration

	trustedProxies []netip.Prefix

	metrics      *Metrics
	loginLimiter *rateLimiter
	flowLimiter  *rateLimiter
}

func (a *api) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	if a.dbPing != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 1*time.Second)
		defer cancel()
		if err := a.dbPing(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("db down"))
			return
		}
	}

	_, _ = w.Write([]byte("ok"))
}
