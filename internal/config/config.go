package config

import (
	"errors"
	"fmt"
	"net/netip"
	"net/url"
	"os"
	"slices"
	"strings"
	"time"
)

const (
	ProfileBackendPostgres  = "postgres"
	ProfileBackendFirestore = "firestore"

	MediaBackendLocal = "local"
	MediaBackendGCS   = "gcs"

	defaultAdminEmail = "admin@qonnectme.com"
)

// Config is read from APP_* environment variables, optionally seeded from
// a .env file.
type Config struct {
	Env          string
	Addr         string
	PublicURL    *url.URL
	DBDSN        string
	DBMigrate    bool
	CookieSecret string
	SessionTTL   time.Duration
	LogLevel     string
	AdminEmails  []string

	// TrustedProxies are the peers whose X-Forwarded-For header is honored.
	TrustedProxies []netip.Prefix

	AdminBootstrapEmail    string
	AdminBootstrapUsername string
	AdminBootstrapPassword string

	ProfileBaseURL    string
	ProfileBackend    string
	FirebaseProjectID string
	FirestoreDatabase string

	GoogleCredentialsFile string
	GoogleClientID        string
	AppleServiceID        string

	MediaBackend string
	MediaDir     string
	MediaBucket  string

	GeminiAPIKey string
	GeminiModel  string

	FCMEnabled bool
	StaticDir  string
}

func Load() (Config, error) {
	envFile := os.Getenv("APP_ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := loadDotEnvFile(envFile, os.Setenv, os.Getenv); err != nil {
		return Config{}, err
	}
	return LoadFromEnv(os.Getenv)
}

// env reads typed values and keeps the first parse error.
type env struct {
	get func(string) string
	err error
}

func (e *env) fail(key, format string, args ...any) {
	if e.err == nil {
		e.err = fmt.Errorf("%s: %s", key, fmt.Sprintf(format, args...))
	}
}

func (e *env) str(key, def string) string {
	if v := strings.TrimSpace(e.get(key)); v != "" {
		return v
	}
	return def
}

// choice lowercases the value and requires it to be one of allowed.
func (e *env) choice(key string, allowed ...string) string {
	v := strings.ToLower(e.str(key, allowed[0]))
	if !slices.Contains(allowed, v) {
		e.fail(key, "must be one of %s", strings.Join(allowed, ", "))
	}
	return v
}

func (e *env) boolean(key string, def bool) bool {
	switch strings.ToLower(e.str(key, "")) {
	case "":
		return def
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	e.fail(key, "must be a boolean")
	return def
}

func (e *env) duration(key string, def time.Duration) time.Duration {
	raw := e.str(key, "")
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	switch {
	case err != nil:
		e.fail(key, "%v", err)
	case d <= 0:
		e.fail(key, "must be > 0")
	}
	return d
}

func (e *env) httpURL(key string) *url.URL {
	raw := e.str(key, "")
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	switch {
	case err != nil:
		e.fail(key, "%v", err)
	case !u.IsAbs() || u.Host == "":
		e.fail(key, "must be an absolute URL")
	case u.Scheme != "http" && u.Scheme != "https":
		e.fail(key, "scheme must be http or https")
	default:
		return u
	}
	return nil
}

func (e *env) emails(key string) []string {
	var out []string
	for _, p := range strings.Split(e.get(key), ",") {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" && !slices.Contains(out, p) {
			out = append(out, p)
		}
	}
	return out
}

// prefixes reads a comma separated list of CIDRs or bare addresses.
func (e *env) prefixes(key string) []netip.Prefix {
	var out []netip.Prefix
	for _, p := range strings.Split(e.get(key), ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if addr, err := netip.ParseAddr(p); err == nil {
			addr = addr.Unmap()
			out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
			continue
		}
		prefix, err := netip.ParsePrefix(p)
		if err != nil {
			e.fail(key, "%q is not an address or CIDR", p)
			return nil
		}
		out = append(out, prefix.Masked())
	}
	return out
}

func LoadFromEnv(getenv func(string) string) (Config, error) {
	e := &env{get: getenv}
	cfg := Config{
		Env:          e.choice("APP_ENV", "dev", "test", "prod"),
		Addr:         e.str("APP_ADDR", "127.0.0.1:8080"),
		PublicURL:    e.httpURL("APP_PUBLIC_URL"),
		DBDSN:        e.str("APP_DB_DSN", ""),
		DBMigrate:    e.boolean("APP_DB_MIGRATE", true),
		CookieSecret: getenv("APP_COOKIE_SECRET"),
		SessionTTL:   e.duration("APP_SESSION_TTL", 30*24*time.Hour),
		LogLevel:     e.str("APP_LOG_LEVEL", ""),
		AdminEmails:  e.emails("APP_ADMIN_EMAILS"),

		TrustedProxies: e.prefixes("APP_TRUSTED_PROXIES"),

		AdminBootstrapEmail:    strings.ToLower(e.str("APP_ADMIN_BOOTSTRAP_EMAIL", "")),
		AdminBootstrapUsername: e.str("APP_ADMIN_BOOTSTRAP_USERNAME", ""),
		AdminBootstrapPassword: getenv("APP_ADMIN_BOOTSTRAP_PASSWORD"),

		ProfileBaseURL:    strings.TrimRight(e.str("APP_PROFILE_BASE_URL", "https://qonnect.me"), "/"),
		ProfileBackend:    e.choice("APP_PROFILE_BACKEND", ProfileBackendPostgres, ProfileBackendFirestore),
		FirebaseProjectID: e.str("APP_FIREBASE_PROJECT_ID", ""),
		FirestoreDatabase: e.str("APP_FIRESTORE_DATABASE", "(default)"),

		GoogleCredentialsFile: e.str("APP_GOOGLE_CREDENTIALS_FILE", ""),
		GoogleClientID:        e.str("APP_GOOGLE_CLIENT_ID", ""),
		AppleServiceID:        e.str("APP_APPLE_SERVICE_ID", ""),

		MediaBackend: e.choice("APP_MEDIA_BACKEND", MediaBackendLocal, MediaBackendGCS),
		MediaDir:     e.str("APP_MEDIA_DIR", "data/media"),
		MediaBucket:  e.str("APP_MEDIA_BUCKET", ""),

		GeminiAPIKey: e.str("APP_GEMINI_API_KEY", ""),
		GeminiModel:  e.str("APP_GEMINI_MODEL", "gemini-2.0-flash"),

		FCMEnabled: e.boolean("APP_FCM_ENABLED", false),
		StaticDir:  e.str("APP_STATIC_DIR", ""),
	}
	e.httpURL("APP_PROFILE_BASE_URL")
	if e.err != nil {
		return Config{}, e.err
	}
	if err := cfg.finish(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// finish applies the cross-field rules once every variable parsed.
func (c *Config) finish() error {
	if c.AdminBootstrapPassword != "" {
		if c.AdminBootstrapEmail == "" {
			return errors.New("APP_ADMIN_BOOTSTRAP_EMAIL: required when APP_ADMIN_BOOTSTRAP_PASSWORD is set")
		}
		if c.AdminBootstrapUsername == "" {
			c.AdminBootstrapUsername = "admin"
		}
	}
	if c.AdminBootstrapEmail != "" && !slices.Contains(c.AdminEmails, c.AdminBootstrapEmail) {
		c.AdminEmails = append(c.AdminEmails, c.AdminBootstrapEmail)
	}
	if len(c.AdminEmails) == 0 && !c.IsProd() {
		c.AdminEmails = []string{defaultAdminEmail}
	}

	switch {
	case c.ProfileBackend == ProfileBackendFirestore && c.FirebaseProjectID == "":
		return errors.New("APP_FIREBASE_PROJECT_ID: required when APP_PROFILE_BACKEND=firestore")
	case c.MediaBackend == MediaBackendGCS && c.MediaBucket == "":
		return errors.New("APP_MEDIA_BUCKET: required when APP_MEDIA_BACKEND=gcs")
	case c.FCMEnabled && c.GoogleCredentialsFile == "":
		return errors.New("APP_GOOGLE_CREDENTIALS_FILE: required when APP_FCM_ENABLED is set")
	}

	if !c.IsProd() {
		return nil
	}
	switch {
	case c.PublicURL == nil:
		return errors.New("APP_PUBLIC_URL: required in prod")
	case c.DBDSN == "":
		return errors.New("APP_DB_DSN: required in prod")
	case len(c.CookieSecret) < 32:
		return errors.New("APP_COOKIE_SECRET: must be at least 32 bytes in prod")
	}
	return nil
}

func (c Config) IsProd() bool { return c.Env == "prod" }

func (c Config) CookieSecure() bool {
	if c.PublicURL != nil {
		return c.PublicURL.Scheme == "https"
	}
	return c.IsProd()
}
