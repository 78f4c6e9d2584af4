package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"qonnectme/internal/auth"
	"qonnectme/internal/domain"
)

type bootstrapUsers interface {
	GetUserByEmail(ctx context.Context, email string) (domain.UserWithPassword, error)
	CreateUser(ctx context.Context, email, passwordHash string) (domain.User, error)
	DeleteUser(ctx context.Context, userID string) error
}

type bootstrapProfiles interface {
	CreateProfile(ctx context.Context, p domain.Profile) (domain.Profile, error)
}

// bootstrapAdminUser creates the configured admin account on first start.
// An existing account with the same email is left alone.
func bootstrapAdminUser(ctx context.Context, logger *slog.Logger, users bootstrapUsers, profiles bootstrapProfiles, email, username, password string) error {
	if password == "" {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	if len(password) < 12 {
		return errors.New("APP_ADMIN_BOOTSTRAP_PASSWORD: must be at least 12 characters")
	}
	if email == "" || !domain.ValidUsername(username) {
		return errors.New("admin bootstrap: email and a valid username are required")
	}

	_, err := users.GetUserByEmail(ctx, email)
	if err == nil {
		logger.Info("admin bootstrap: user already exists", "email", email)
		return nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("admin bootstrap: lookup user: %w", err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("admin bootstrap: hash password: %w", err)
	}

	u, err := users.CreateUser(ctx, email, hash)
	if err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			logger.Info("admin bootstrap: user already exists", "email", email)
			return nil
		}
		return fmt.Errorf("admin bootstrap: create user: %w", err)
	}

	_, err = profiles.CreateProfile(ctx, domain.Profile{UserID: u.ID, Username: username, Name: "Admin"})
	if err != nil {
		if delErr := users.DeleteUser(ctx, u.ID); delErr != nil {
			logger.Error("admin bootstrap: cleanup failed", "err", delErr, "user_id", u.ID)
		}
		return fmt.Errorf("admin bootstrap: create profile: %w", err)
	}

	logger.Info("admin bootstrap: created admin user", "email", email, "username", username)
	return nil
}

type sessionPurger interface {
	PurgeSessions(ctx context.Context, cutoff time.Time) (int64, error)
}

// purgeSessions drops dead sessions every interval until ctx is done.
func purgeSessions(ctx context.Context, logger *slog.Logger, sessions sessionPurger, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			n, err := sessions.PurgeSessions(ctx, now)
			if err != nil {
				logger.Warn("session purge failed", "err", err)
				continue
			}
			if n > 0 {
				logger.Info("purged sessions", "count", n)
			}
		}
	}
}
