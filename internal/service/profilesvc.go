package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"qonnectme/internal/domain"
	"qonnectme/internal/media"
	"qonnectme/internal/qrcode"
)

const (
	maxNameLen = 48
	maxBioLen  = 280
)

// ProfileReader is the read side of the profile store.
type ProfileReader interface {
	GetProfile(ctx context.Context, userID string) (domain.Profile, error)
	GetProfileByUsername(ctx context.Context, username string) (domain.Profile, error)
	GetProfiles(ctx context.Context, userIDs []string) (map[string]domain.Profile, error)
}

// ProfileStore persists profile documents and the usernames/{name} claims
// that keep usernames unique.
type ProfileStore interface {
	ProfileReader
	CreateProfile(ctx context.Context, p domain.Profile) (domain.Profile, error)
	UpdateProfile(ctx context.Context, userID string, upd domain.ProfileUpdate, when time.Time) (domain.Profile, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	SearchProfiles(ctx context.Context, q string, limit int, excludeUserID string) ([]domain.Profile, error)
	DeleteProfile(ctx context.Context, userID string) error
}

type ProfileService struct {
	Store   ProfileStore
	Media   media.Store
	BaseURL string
	Logger  *slog.Logger
	Now     func() time.Time
}

// IsUsernameAvailable reports whether nobody holds name. Blank names and
// lookup failures count as unavailable. The format rules are checked when
// the name is saved, not here.
func (s *ProfileService) IsUsernameAvailable(ctx context.Context, name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	exists, err := s.Store.UsernameExists(ctx, domain.UsernameKey(name))
	if err != nil {
		s.logger().Error("username lookup failed", "err", err, "username", name)
		return false
	}
	return !exists
}

func (s *ProfileService) GetProfile(ctx context.Context, userID string) (domain.Profile, error) {
	p, err := s.Store.GetProfile(ctx, userID)
	if err != nil {
		return domain.Profile{}, err
	}
	return s.decorate(p), nil
}

func (s *ProfileService) GetPublicProfile(ctx context.Context, username string) (domain.Profile, error) {
	username = strings.TrimSpace(username)
	if !domain.ValidUsername(username) {
		return domain.Profile{}, domain.ErrNotFound
	}
	p, err := s.Store.GetProfileByUsername(ctx, domain.UsernameKey(username))
	if err != nil {
		return domain.Profile{}, err
	}
	return s.decorate(p), nil
}

// SaveProfile overwrites the given fields. A new username is claimed and
// the old claim released by the store in one write.
func (s *ProfileService) SaveProfile(ctx context.Context, userID string, upd domain.ProfileUpdate) (domain.Profile, error) {
	fields := map[string]string{}
	// Name, bio and avatar are stored exactly as submitted.
	if upd.Name != nil {
		if msg := validateName(strings.TrimSpace(*upd.Name)); msg != "" {
			fields["name"] = msg
		}
	}
	if upd.Bio != nil {
		if utf8.RuneCountInString(strings.TrimSpace(*upd.Bio)) > maxBioLen {
			fields["bio"] = "must be 280 characters or less"
		}
	}
	if upd.AvatarURL != nil {
		if !s.validAvatarURL(strings.TrimSpace(*upd.AvatarURL)) {
			fields["avatar_url"] = "must be an http(s) URL"
		}
	}
	if upd.Username != nil {
		username := strings.TrimSpace(*upd.Username)
		if !domain.ValidUsername(username) {
			fields["username"] = "must be 3-24 chars [A-Za-z0-9_]"
		}
		upd.Username = &username
	}
	if len(fields) > 0 {
		return domain.Profile{}, domain.NewValidationError(fields)
	}

	p, err := s.Store.UpdateProfile(ctx, userID, upd, s.now())
	if err != nil {
		return domain.Profile{}, err
	}
	return s.decorate(p), nil
}

// UploadAvatar stores a normalized copy of the image and points the
// profile at it. The previous avatar object is removed once the profile
// no longer references it.
func (s *ProfileService) UploadAvatar(ctx context.Context, userID string, r io.Reader) (domain.Profile, error) {
	if s.Media == nil {
		return domain.Profile{}, domain.ErrUnavailable
	}

	current, err := s.Store.GetProfile(ctx, userID)
	if err != nil {
		return domain.Profile{}, err
	}

	data, err := media.NormalizeAvatar(r)
	if err != nil {
		if errors.Is(err, media.ErrInvalidImage) {
			return domain.Profile{}, domain.Invalid("avatar", "must be a PNG, JPEG or GIF image")
		}
		return domain.Profile{}, err
	}

	key := media.NewKey("avatars", userID, ".jpg")
	avatarURL, err := s.Media.Put(ctx, key, bytes.NewReader(data), "image/jpeg")
	if err != nil {
		return domain.Profile{}, err
	}

	updated, err := s.Store.UpdateProfile(ctx, userID, domain.ProfileUpdate{AvatarURL: &avatarURL}, s.now())
	if err != nil {
		if delErr := s.Media.Delete(ctx, key); delErr != nil {
			s.logger().Error("avatar cleanup failed", "err", delErr, "key", key)
		}
		return domain.Profile{}, err
	}

	if oldKey, ok := s.Media.KeyForURL(current.AvatarURL); ok && oldKey != key {
		if err := s.Media.Delete(ctx, oldKey); err != nil {
			s.logger().Error("old avatar delete failed", "err", err, "key", oldKey)
		}
	}

	return s.decorate(updated), nil
}

func (s *ProfileService) decorate(p domain.Profile) domain.Profile {
	if p.Username == "" {
		return p
	}
	base := s.BaseURL
	if base == "" {
		base = "https://qonnect.me"
	}
	p.ProfileURL = qrcode.ProfileURL(base, p.Username)
	p.QRCodeURL = qrcode.ProfileQRURL(base, p.Username)
	return p
}

func (s *ProfileService) validAvatarURL(raw string) bool {
	if raw == "" {
		return true
	}
	if s.Media != nil {
		if _, ok := s.Media.KeyForURL(raw); ok {
			return true
		}
	}
	return isHTTPURL(raw)
}

func (s *ProfileService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *ProfileService) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func validateName(name string) string {
	if utf8.RuneCountInString(name) > maxNameLen {
		return "must be 48 characters or less"
	}
	for _, r := range name {
		if r < 32 || r == 127 {
			return "contains invalid characters"
		}
	}
	return ""
}
