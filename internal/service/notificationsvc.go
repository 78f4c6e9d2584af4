package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"qonnectme/internal/domain"
	"qonnectme/internal/notifications"
)

type NotificationTokensStore interface {
	UpsertToken(ctx context.Context, userID, token, platform string, when time.Time) (domain.NotificationToken, error)
	DeleteToken(ctx context.Context, userID, token string) error
	ListTokens(ctx context.Context, userID string) ([]domain.NotificationToken, error)
}

type PushSender interface {
	Send(ctx context.Context, token string, msg notifications.Message) error
}

type FriendRequestNotification struct {
	RequestID   string
	RequesterID string
	AddresseeID string
}

type FriendRequestNotifier interface {
	NotifyFriendRequest(ctx context.Context, n FriendRequestNotification) error
}

// NotificationService registers device tokens and fans friend request
// pushes out to them. Without a Sender, registration still works and
// notifying is a no-op.
type NotificationService struct {
	Tokens   NotificationTokensStore
	Profiles ProfileReader
	Sender   PushSender
	Logger   *slog.Logger
	Now      func() time.Time
}

func (s *NotificationService) RegisterToken(ctx context.Context, userID, token, platform string) (domain.NotificationToken, error) {
	if s.Tokens == nil {
		return domain.NotificationToken{}, domain.ErrUnavailable
	}
	token = strings.TrimSpace(token)
	fields := map[string]string{}
	if token == "" {
		fields["token"] = "required"
	}
	platform, ok := domain.NormalizePlatform(platform)
	switch {
	case platform == "":
		fields["platform"] = "required"
	case !ok:
		fields["platform"] = "must be ios or android"
	}
	if len(fields) > 0 {
		return domain.NotificationToken{}, domain.NewValidationError(fields)
	}
	return s.Tokens.UpsertToken(ctx, userID, token, platform, s.now())
}

func (s *NotificationService) DeleteToken(ctx context.Context, userID, token string) error {
	if s.Tokens == nil {
		return domain.ErrUnavailable
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.Invalid("token", "required")
	}
	return s.Tokens.DeleteToken(ctx, userID, token)
}

// NotifyFriendRequest pushes to every device of the addressee. Tokens the
// sender reports as dead are dropped; other send failures are only logged.
func (s *NotificationService) NotifyFriendRequest(ctx context.Context, n FriendRequestNotification) error {
	if s.Tokens == nil || s.Sender == nil || s.Profiles == nil {
		return nil
	}
	logger := s.logger().With("user_id", n.AddresseeID)

	tokens, err := s.Tokens.ListTokens(ctx, n.AddresseeID)
	if err != nil {
		logger.Error("notifications: list tokens failed", "err", err)
		return err
	}
	if len(tokens) == 0 {
		return nil
	}

	requester, err := s.Profiles.GetProfile(ctx, n.RequesterID)
	if err != nil {
		logger.Error("notifications: requester lookup failed", "err", err, "requester_id", n.RequesterID)
		return err
	}

	for _, t := range tokens {
		err := s.Sender.Send(ctx, t.Token, friendRequestMessage(requester, n.RequestID, t.Platform))
		switch {
		case err == nil:
		case errors.Is(err, notifications.ErrInvalidToken):
			if delErr := s.Tokens.DeleteToken(ctx, n.AddresseeID, t.Token); delErr != nil {
				logger.Error("notifications: delete invalid token failed", "err", delErr)
			}
		default:
			logger.Error("notifications: send failed", "err", err, "platform", t.Platform)
		}
	}
	return nil
}

// friendRequestMessage is data-only for Android, which renders it in the
// app. iOS needs an alert block to show anything while backgrounded.
func friendRequestMessage(requester domain.Profile, requestID, platform string) notifications.Message {
	display := strings.TrimSpace(requester.Name)
	if display == "" {
		display = requester.Username
	}
	msg := notifications.Message{Data: map[string]string{
		"type":         "friend_request",
		"display_name": display,
		"username":     requester.Username,
		"request_id":   requestID,
	}}
	if p, _ := domain.NormalizePlatform(platform); p != domain.PlatformIOS {
		return msg
	}
	body := "You received a friend request."
	if display != "" {
		body = display + " wants to qonnect with you."
	}
	msg.Notification = &notifications.Notification{Title: "New friend request", Body: body}
	return msg
}

func (s *NotificationService) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC().Truncate(time.Millisecond)
	}
	return s.Now().UTC().Truncate(time.Millisecond)
}

func (s *NotificationService) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}
