package domain

import (
	"strings"
	"time"
)

// Push platforms a device token can be registered for.
const (
	PlatformAndroid = "android"
	PlatformIOS     = "ios"
)

// NormalizePlatform lowercases p and reports whether it is a supported
// push platform.
func NormalizePlatform(p string) (string, bool) {
	p = strings.ToLower(strings.TrimSpace(p))
	return p, p == PlatformAndroid || p == PlatformIOS
}

// NotificationToken is a device registration for push delivery. A token
// belongs to at most one user; registering it again moves it.
type NotificationToken struct {
	UserID    string    `json:"-"`
	Token     string    `json:"token"`
	Platform  string    `json:"platform"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
