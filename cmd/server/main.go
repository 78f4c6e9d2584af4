package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"

	"qonnectme/internal/auth"
	"qonnectme/internal/config"
	"qonnectme/internal/domain"
	"qonnectme/internal/flows"
	"qonnectme/internal/httpapi"
	"qonnectme/internal/media"
	"qonnectme/internal/music"
	"qonnectme/internal/notifications"
	"qonnectme/internal/service"
	"qonnectme/internal/store/firestore"
	"qonnectme/internal/store/postgres"
	"qonnectme/internal/webui"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/api/option"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}

	logger := newLogger(cfg)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := httpapi.NewMetrics()
	cookieCodec := auth.NewCookieCodec([]byte(cfg.CookieSecret))

	var googleOpts []option.ClientOption
	if cfg.GoogleCredentialsFile != "" {
		googleOpts = append(googleOpts, option.WithCredentialsFile(cfg.GoogleCredentialsFile))
	}

	mediaStore, mediaHandler, err := newMediaStore(ctx, cfg, googleOpts)
	if err != nil {
		logger.Error("media store setup failed", "err", err)
		os.Exit(1)
	}

	opts := httpapi.RouterOpts{
		Logger:       logger,
		IsProd:       cfg.IsProd(),
		CookieCodec:  cookieCodec,
		CookieSecure: cfg.CookieSecure(),
		SessionTTL:   cfg.SessionTTL,
		Metrics:      metrics,
		Media:        mediaHandler,

		TrustedProxies: cfg.TrustedProxies,
		Music: &service.MusicService{
			Library: music.NewLibrary(),
			Media:   mediaStore,
			Logger:  logger,
		},
	}

	var gen flows.Generator
	if cfg.GeminiAPIKey != "" {
		g, err := flows.NewGeminiGenerator(ctx, flows.GeminiConfig{APIKey: cfg.GeminiAPIKey, Model: cfg.GeminiModel})
		if err != nil {
			logger.Error("gemini setup failed", "err", err)
			os.Exit(1)
		}
		gen = g
	} else {
		logger.Info("theme flow has no model configured; runs will fail until APP_GEMINI_API_KEY is set")
	}
	opts.Flows, err = flows.NewRegistry(flows.SuggestProfileTheme(gen))
	if err != nil {
		logger.Error("flow registry setup failed", "err", err)
		os.Exit(1)
	}

	if cfg.DBDSN != "" {
		pgPool, err := postgres.Open(ctx, cfg.DBDSN)
		if err != nil {
			logger.Error("db open failed", "err", err)
			os.Exit(1)
		}
		defer pgPool.Close()

		if cfg.DBMigrate {
			if err := postgres.Migrate(ctx, pgPool); err != nil {
				logger.Error("db migrate failed", "err", err)
				os.Exit(1)
			}
		}
		registerPoolMetrics(metrics.Registerer(), pgPool)

		profileStore, err := newProfileStore(ctx, cfg, pgPool, googleOpts)
		if err != nil {
			logger.Error("profile store setup failed", "err", err)
			os.Exit(1)
		}

		users := postgres.NewUsersStore(pgPool)
		sessions := postgres.NewSessionsStore(pgPool)
		products := postgres.NewProductsStore(pgPool)

		if err := bootstrapAdminUser(ctx, logger, users, profileStore, cfg.AdminBootstrapEmail, cfg.AdminBootstrapUsername, cfg.AdminBootstrapPassword); err != nil {
			logger.Error("bootstrap admin failed", "err", err)
			os.Exit(1)
		}

		profiles := &service.ProfileService{
			Store:   profileStore,
			Media:   mediaStore,
			BaseURL: cfg.ProfileBaseURL,
			Logger:  logger,
		}
		activity := &service.ActivityService{
			Store:    postgres.NewActivityStore(pgPool),
			Profiles: profileStore,
		}

		notifier := &service.NotificationService{
			Tokens:   postgres.NewNotificationTokensStore(pgPool),
			Profiles: profileStore,
			Logger:   logger,
		}
		if cfg.FCMEnabled {
			sender, err := notifications.NewFCMSender(ctx, cfg.FirebaseProjectID, cfg.GoogleCredentialsFile)
			if err != nil {
				logger.Error("fcm setup failed", "err", err)
				os.Exit(1)
			}
			notifier.Sender = sender
		}

		opts.DBPing = pgPool.Ping
		opts.Auth = &service.AuthService{
			Users:       users,
			Sessions:    sessions,
			Profiles:    profileStore,
			SessionTTL:  cfg.SessionTTL,
			Verifiers:   newVerifiers(cfg),
			AdminEmails: cfg.AdminEmails,
			Logger:      logger,
		}
		opts.Profiles = profiles
		opts.Users = &service.UsersService{Store: profileStore}
		opts.Friends = &service.FriendsService{
			Users:       users,
			Profiles:    profileStore,
			Friendships: postgres.NewFriendshipsStore(pgPool),
			Activity:    activity,
			Notifier:    notifier,
			Logger:      logger,
		}
		opts.Activity = activity
		opts.Store = &service.StoreService{
			Catalog: products,
			Carts:   postgres.NewCartStore(pgPool),
		}
		opts.Notifications = notifier
		opts.Admin = &service.AdminService{
			Users:    postgres.NewAdminUsersStore(pgPool),
			Products: products,
			Sessions: sessions,
		}

		go purgeSessions(ctx, logger, sessions, time.Hour)
	} else {
		logger.Warn("APP_DB_DSN not set; only public routes are served")
	}

	pages := webui.Options{
		Logger:    logger,
		StaticDir: cfg.StaticDir,
		SignedIn:  signedIn(opts.Auth, cookieCodec),
	}
	if opts.Profiles != nil {
		pages.Profiles = opts.Profiles
	}
	opts.Pages = webui.New(pages)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.NewRouter(opts),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "env", cfg.Env, "addr", cfg.Addr, "profiles", cfg.ProfileBackend, "media", cfg.MediaBackend)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "err", err)
			os.Exit(1)
		}
	}
}

func newMediaStore(ctx context.Context, cfg config.Config, googleOpts []option.ClientOption) (media.Store, http.Handler, error) {
	if cfg.MediaBackend == config.MediaBackendGCS {
		s, err := media.NewGCSStore(ctx, cfg.MediaBucket, googleOpts...)
		if err != nil {
			return nil, nil, err
		}
		return s, nil, nil
	}
	s := media.NewLocalStore(cfg.MediaDir)
	return s, s.Handler(), nil
}

func newProfileStore(ctx context.Context, cfg config.Config, pool *pgxpool.Pool, googleOpts []option.ClientOption) (service.ProfileStore, error) {
	if cfg.ProfileBackend == config.ProfileBackendFirestore {
		s, err := firestore.NewProfilesStore(ctx, cfg.FirebaseProjectID, cfg.FirestoreDatabase, googleOpts...)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return postgres.NewProfilesStore(pool), nil
}

func newVerifiers(cfg config.Config) map[string]auth.IDTokenVerifier {
	v := map[string]auth.IDTokenVerifier{}
	if cfg.FirebaseProjectID != "" {
		v[domain.ProviderFirebase] = auth.NewFirebaseVerifier(cfg.FirebaseProjectID)
	}
	if cfg.GoogleClientID != "" {
		v[domain.ProviderGoogle] = auth.GoogleVerifier{ClientID: cfg.GoogleClientID}
	}
	if cfg.AppleServiceID != "" {
		v[domain.ProviderApple] = auth.AppleVerifier{ServiceID: cfg.AppleServiceID}
	}
	return v
}

func signedIn(authSvc *service.AuthService, codec auth.CookieCodec) func(*http.Request) bool {
	return func(r *http.Request) bool {
		if authSvc == nil {
			return false
		}
		sessID, ok := codec.SessionIDFromRequest(r)
		if !ok {
			return false
		}
		_, err := authSvc.GetUserForSession(r.Context(), sessID)
		return err == nil
	}
}

func registerPoolMetrics(reg prometheus.Registerer, pool *pgxpool.Pool) {
	reg.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "qonnectme",
			Name:      "db_pool_acquired_conns",
			Help:      "Connections currently checked out of the pool.",
		}, func() float64 { return float64(pool.Stat().AcquiredConns()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "qonnectme",
			Name:      "db_pool_total_conns",
			Help:      "Connections currently open in the pool.",
		}, func() float64 { return float64(pool.Stat().TotalConns()) }),
	)
}

func newLogger(cfg config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	if cfg.IsProd() {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	}
	return slog.New(tint.NewHandler(os.Stdout, &tint.Options{Level: level, TimeFormat: time.Kitchen}))
}
