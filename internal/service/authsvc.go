package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"strings"
	"time"

	"qonnectme/internal/auth"
	"qonnectme/internal/domain"
)

type UsersStore interface {
	CreateUser(ctx context.Context, email, passwordHash string) (domain.User, error)
	GetUserByID(ctx context.Context, id string) (domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (domain.UserWithPassword, error)
	GetUserWithPasswordByID(ctx context.Context, id string) (domain.UserWithPassword, error)
	GetUserByExternalAccount(ctx context.Context, provider, providerID string) (domain.User, error)
	CreateUserWithExternalAccount(ctx context.Context, provider, providerID, email string) (domain.User, error)
	LinkExternalAccount(ctx context.Context, userID, provider, providerID, email string) error
	SetLastLogin(ctx context.Context, userID string, when time.Time) error
	SetPasswordHash(ctx context.Context, userID, passwordHash string) error
	DeleteUser(ctx context.Context, userID string) error
}

type SessionsStore interface {
	CreateSession(ctx context.Context, userID string, expiresAt time.Time, ip, userAgent string) (string, error)
	GetSession(ctx context.Context, sessionID string) (domain.Session, error)
	RevokeSession(ctx context.Context, sessionID string, when time.Time) error
}

// AccountProfiles is the part of the profile store that account
// lifecycle needs.
type AccountProfiles interface {
	CreateProfile(ctx context.Context, p domain.Profile) (domain.Profile, error)
	GetProfileByUsername(ctx context.Context, username string) (domain.Profile, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	DeleteProfile(ctx context.Context, userID string) error
}

type AuthService struct {
	Users      UsersStore
	Sessions   SessionsStore
	Profiles   AccountProfiles
	SessionTTL time.Duration

	// Verifiers is keyed by provider name (domain.ProviderFirebase, ...).
	Verifiers   map[string]auth.IDTokenVerifier
	AdminEmails []string

	Logger *slog.Logger
	Now    func() time.Time
}

type RegisterInput struct {
	Email    string
	Username string
	Name     string
	Password string
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput, ip, userAgent string) (domain.User, string, error) {
	email := strings.TrimSpace(strings.ToLower(in.Email))
	username := strings.TrimSpace(in.Username)
	name := strings.TrimSpace(in.Name)

	fields := map[string]string{}
	if email == "" || !strings.Contains(email, "@") {
		fields["email"] = "must be a valid email"
	}
	if !domain.ValidUsername(username) {
		fields["username"] = "must be 3-24 chars [A-Za-z0-9_]"
	}
	if msg := validateName(name); msg != "" {
		fields["name"] = msg
	}
	if msg := auth.ValidatePassword(in.Password); msg != "" {
		fields["password"] = msg
	}
	if len(fields) > 0 {
		return domain.User{}, "", domain.NewValidationError(fields)
	}
	if name == "" {
		name = username
	}

	taken, err := s.Profiles.UsernameExists(ctx, domain.UsernameKey(username))
	if err != nil {
		return domain.User{}, "", err
	}
	if taken {
		return domain.User{}, "", domain.ErrUsernameTaken
	}

	passwordHash, err := auth.HashPassword(in.Password)
	if err != nil {
		return domain.User{}, "", err
	}

	u, err := s.Users.CreateUser(ctx, email, passwordHash)
	if err != nil {
		return domain.User{}, "", err
	}

	if _, err := s.Profiles.CreateProfile(ctx, domain.Profile{UserID: u.ID, Username: username, Name: name, UpdatedAt: s.now()}); err != nil {
		if delErr := s.Users.DeleteUser(ctx, u.ID); delErr != nil {
			s.logger().Error("register: rollback user failed", "err", delErr, "user_id", u.ID)
		}
		return domain.User{}, "", err
	}

	sessID, err := s.Sessions.CreateSession(ctx, u.ID, s.now().Add(s.SessionTTL), ip, userAgent)
	if err != nil {
		return domain.User{}, "", err
	}

	return u, sessID, nil
}

// Login accepts an email address or a username as login.
func (s *AuthService) Login(ctx context.Context, login, password, ip, userAgent string) (domain.User, string, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return domain.User{}, "", domain.ErrInvalidCredentials
	}

	u, err := s.lookupLogin(ctx, login)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, "", domain.ErrInvalidCredentials
		}
		return domain.User{}, "", err
	}
	if u.Disabled() {
		return domain.User{}, "", domain.ErrUserDisabled
	}
	if u.PasswordHash == "" {
		return domain.User{}, "", domain.ErrInvalidCredentials
	}

	ok, err := auth.VerifyPassword(u.PasswordHash, password)
	if err != nil {
		return domain.User{}, "", err
	}
	if !ok {
		return domain.User{}, "", domain.ErrInvalidCredentials
	}

	if auth.NeedsRehash(u.PasswordHash) {
		if hash, err := auth.HashPassword(password); err == nil {
			if err := s.Users.SetPasswordHash(ctx, u.ID, hash); err != nil {
				s.logger().Warn("login: rehash failed", "err", err, "user_id", u.ID)
			}
		}
	}

	return s.startSession(ctx, u.User, ip, userAgent)
}

func (s *AuthService) lookupLogin(ctx context.Context, login string) (domain.UserWithPassword, error) {
	if strings.Contains(login, "@") {
		return s.Users.GetUserByEmail(ctx, strings.ToLower(login))
	}
	if !domain.ValidUsername(login) {
		return domain.UserWithPassword{}, domain.ErrNotFound
	}
	p, err := s.Profiles.GetProfileByUsername(ctx, domain.UsernameKey(login))
	if err != nil {
		return domain.UserWithPassword{}, err
	}
	return s.Users.GetUserWithPasswordByID(ctx, p.UserID)
}

// LoginWithProvider signs in with an ID token issued by provider. The
// token subject is looked up as a linked external account first, then by
// email, and a new user with a generated username is created last.
func (s *AuthService) LoginWithProvider(ctx context.Context, provider, idToken, ip, userAgent string) (domain.User, string, error) {
	verifier, ok := s.Verifiers[provider]
	if !ok || verifier == nil {
		return domain.User{}, "", domain.ErrUnavailable
	}

	claims, err := verifier.Verify(ctx, idToken)
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidIDToken) {
			s.logger().Warn("id token verification failed", "err", err, "provider", provider)
		}
		return domain.User{}, "", domain.ErrInvalidCredentials
	}
	if claims.Subject == "" {
		return domain.User{}, "", domain.ErrInvalidCredentials
	}

	u, err := s.Users.GetUserByExternalAccount(ctx, provider, claims.Subject)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrNotFound):
		u, err = s.linkOrCreate(ctx, provider, claims)
		if err != nil {
			return domain.User{}, "", err
		}
	default:
		return domain.User{}, "", err
	}
	if u.Disabled() {
		return domain.User{}, "", domain.ErrUserDisabled
	}

	return s.startSession(ctx, u, ip, userAgent)
}

func (s *AuthService) linkOrCreate(ctx context.Context, provider string, claims *auth.ExternalTokenClaims) (domain.User, error) {
	if claims.Email != "" {
		existing, err := s.Users.GetUserByEmail(ctx, claims.Email)
		if err == nil {
			if err := s.Users.LinkExternalAccount(ctx, existing.ID, provider, claims.Subject, claims.Email); err != nil {
				return domain.User{}, err
			}
			return existing.User, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, err
		}
	}

	u, err := s.Users.CreateUserWithExternalAccount(ctx, provider, claims.Subject, claims.Email)
	if err != nil {
		return domain.User{}, err
	}
	if err := s.createGeneratedProfile(ctx, u.ID, claims.Email); err != nil {
		if delErr := s.Users.DeleteUser(ctx, u.ID); delErr != nil {
			s.logger().Error("external signup: rollback user failed", "err", delErr, "user_id", u.ID)
		}
		return domain.User{}, err
	}
	return u, nil
}

const usernameAttempts = 8

func (s *AuthService) createGeneratedProfile(ctx context.Context, userID, email string) error {
	base := usernameBase(email)
	for attempt := 0; attempt < usernameAttempts; attempt++ {
		candidate := base
		if attempt > 0 {
			candidate = fmt.Sprintf("%s_%04d", base, rand.IntN(10000))
		}
		_, err := s.Profiles.CreateProfile(ctx, domain.Profile{UserID: userID, Username: candidate, Name: base, UpdatedAt: s.now()})
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrUsernameTaken) {
			return err
		}
	}
	return domain.ErrUsernameTaken
}

// usernameBase derives a valid username stem from the email local part.
func usernameBase(email string) string {
	local, _, _ := strings.Cut(strings.ToLower(email), "@")
	var b strings.Builder
	for _, r := range local {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '+':
			b.WriteByte('_')
		}
		if b.Len() >= 16 {
			break
		}
	}
	base := strings.Trim(b.String(), "_")
	if len(base) < domain.UsernameMinLen {
		return "user"
	}
	return base
}

func (s *AuthService) startSession(ctx context.Context, u domain.User, ip, userAgent string) (domain.User, string, error) {
	now := s.now()
	sessID, err := s.Sessions.CreateSession(ctx, u.ID, now.Add(s.SessionTTL), ip, userAgent)
	if err != nil {
		return domain.User{}, "", err
	}
	if err := s.Users.SetLastLogin(ctx, u.ID, now); err != nil {
		s.logger().Warn("set last login failed", "err", err, "user_id", u.ID)
	}
	return u, sessID, nil
}

func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	return s.Sessions.RevokeSession(ctx, sessionID, s.now())
}

func (s *AuthService) GetUserForSession(ctx context.Context, sessionID string) (domain.User, error) {
	sess, err := s.Sessions.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, domain.ErrUnauthorized
		}
		return domain.User{}, err
	}

	u, err := s.Users.GetUserByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, domain.ErrUnauthorized
		}
		return domain.User{}, err
	}
	if u.Disabled() {
		return domain.User{}, domain.ErrForbidden
	}

	return u, nil
}

// DeleteAccount removes the profile (releasing its username claim) and
// then the user with its sessions.
func (s *AuthService) DeleteAccount(ctx context.Context, userID string) error {
	if err := s.Profiles.DeleteProfile(ctx, userID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return s.Users.DeleteUser(ctx, userID)
}

func (s *AuthService) Role(u domain.User) domain.Role {
	if u.Email != "" && slices.Contains(s.AdminEmails, strings.ToLower(u.Email)) {
		return domain.RoleAdmin
	}
	return domain.RoleUser
}

func (s *AuthService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *AuthService) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}
