package domain

import "time"

type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusDisabled UserStatus = "disabled"
)

func (s UserStatus) Valid() bool {
	return s == UserStatusActive || s == UserStatusDisabled
}

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Sign-in providers an account can be linked to besides a password.
const (
	ProviderFirebase = "firebase"
	ProviderGoogle   = "google"
	ProviderApple    = "apple"
)

// User is the sign-in identity. Public-facing fields live on Profile.
type User struct {
	ID          string
	Email       string
	Status      UserStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
	LastLoginAt *time.Time
}

func (u User) Disabled() bool { return u.Status == UserStatusDisabled }

// UserWithPassword is only loaded on the password sign-in path.
type UserWithPassword struct {
	User
	PasswordHash string
}

// Session is a server-side login. Only live sessions are ever loaded.
type Session struct {
	ID        string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
}
