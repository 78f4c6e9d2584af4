package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"qonnectme/internal/domain"
)

type FriendshipsStore interface {
	CreateRequest(ctx context.Context, requesterID, addresseeID string) (string, time.Time, error)
	Accept(ctx context.Context, requestID, addresseeID string, when time.Time) (domain.Friendship, error)
	Decline(ctx context.Context, requestID, addresseeID string, when time.Time) error
	Cancel(ctx context.Context, requestID, requesterID string, when time.Time) error
	ListLinks(ctx context.Context, userID string) (domain.FriendLinks, error)
}

type FriendUsersStore interface {
	GetUserByID(ctx context.Context, id string) (domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (domain.UserWithPassword, error)
}

type ActivityRecorder interface {
	Record(ctx context.Context, rec domain.ActivityRecord) error
}

type FriendsService struct {
	Users       FriendUsersStore
	Profiles    ProfileReader
	Friendships FriendshipsStore
	Activity    ActivityRecorder
	Notifier    FriendRequestNotifier
	Logger      *slog.Logger
	Now         func() time.Time
}

func (s *FriendsService) ListOverview(ctx context.Context, userID string) (domain.FriendsOverview, error) {
	links, err := s.Friendships.ListLinks(ctx, userID)
	if err != nil {
		return domain.FriendsOverview{}, err
	}

	ids := make([]string, 0, len(links.FriendIDs)+len(links.Incoming)+len(links.Outgoing))
	ids = append(ids, links.FriendIDs...)
	for _, l := range links.Incoming {
		ids = append(ids, l.UserID)
	}
	for _, l := range links.Outgoing {
		ids = append(ids, l.UserID)
	}
	summaries, err := summarize(ctx, s.Profiles, ids)
	if err != nil {
		return domain.FriendsOverview{}, err
	}

	out := domain.FriendsOverview{
		Friends:  make([]domain.UserSummary, 0, len(links.FriendIDs)),
		Incoming: make([]domain.FriendRequest, 0, len(links.Incoming)),
		Outgoing: make([]domain.FriendRequest, 0, len(links.Outgoing)),
	}
	for _, id := range links.FriendIDs {
		out.Friends = append(out.Friends, summaries[id])
	}
	for _, l := range links.Incoming {
		out.Incoming = append(out.Incoming, domain.FriendRequest{ID: l.ID, User: summaries[l.UserID], CreatedAt: l.CreatedAt})
	}
	for _, l := range links.Outgoing {
		out.Outgoing = append(out.Outgoing, domain.FriendRequest{ID: l.ID, User: summaries[l.UserID], CreatedAt: l.CreatedAt})
	}
	return out, nil
}

// CreateRequest sends a request to the user identified by target, which is
// a username or an email address.
func (s *FriendsService) CreateRequest(ctx context.Context, requesterID, target string) (domain.FriendRequest, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return domain.FriendRequest{}, domain.Invalid("username", "required")
	}

	addresseeID, err := s.resolveTarget(ctx, target)
	if err != nil {
		return domain.FriendRequest{}, err
	}
	if addresseeID == requesterID {
		return domain.FriendRequest{}, domain.Invalid("username", "cannot friend yourself")
	}

	addressee, err := s.Users.GetUserByID(ctx, addresseeID)
	if err != nil {
		return domain.FriendRequest{}, err
	}
	if addressee.Disabled() {
		return domain.FriendRequest{}, domain.ErrForbidden
	}

	id, createdAt, err := s.Friendships.CreateRequest(ctx, requesterID, addresseeID)
	if err != nil {
		return domain.FriendRequest{}, err
	}

	summaries, err := summarize(ctx, s.Profiles, []string{addresseeID})
	if err != nil {
		return domain.FriendRequest{}, err
	}

	s.record(ctx, domain.ActivityRecord{Kind: domain.ActivityFriendRequest, ActorID: requesterID, TargetID: addresseeID, CreatedAt: createdAt})
	if s.Notifier != nil {
		if err := s.Notifier.NotifyFriendRequest(ctx, FriendRequestNotification{RequestID: id, RequesterID: requesterID, AddresseeID: addresseeID}); err != nil {
			s.logger().Warn("friend request notification failed", "err", err, "request_id", id)
		}
	}

	return domain.FriendRequest{ID: id, User: summaries[addresseeID], CreatedAt: createdAt}, nil
}

func (s *FriendsService) resolveTarget(ctx context.Context, target string) (string, error) {
	if strings.Contains(target, "@") {
		u, err := s.Users.GetUserByEmail(ctx, strings.ToLower(target))
		if err != nil {
			return "", err
		}
		return u.ID, nil
	}
	if !domain.ValidUsername(target) {
		return "", domain.ErrNotFound
	}
	p, err := s.Profiles.GetProfileByUsername(ctx, domain.UsernameKey(target))
	if err != nil {
		return "", err
	}
	return p.UserID, nil
}

func (s *FriendsService) Accept(ctx context.Context, addresseeID, requestID string) error {
	now := s.now()
	f, err := s.Friendships.Accept(ctx, requestID, addresseeID, now)
	if err != nil {
		return err
	}
	s.record(ctx, domain.ActivityRecord{Kind: domain.ActivityNewFriend, ActorID: f.AddresseeID, TargetID: f.RequesterID, CreatedAt: now})
	return nil
}

func (s *FriendsService) Decline(ctx context.Context, addresseeID, requestID string) error {
	return s.Friendships.Decline(ctx, requestID, addresseeID, s.now())
}

func (s *FriendsService) Cancel(ctx context.Context, requesterID, requestID string) error {
	return s.Friendships.Cancel(ctx, requestID, requesterID, s.now())
}

func (s *FriendsService) record(ctx context.Context, rec domain.ActivityRecord) {
	if s.Activity == nil {
		return
	}
	if err := s.Activity.Record(ctx, rec); err != nil {
		s.logger().Warn("activity record failed", "err", err, "kind", rec.Kind, "actor_id", rec.ActorID)
	}
}

func (s *FriendsService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *FriendsService) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

// summarize loads profile summaries for ids. Users without a profile get
// an id-only summary.
func summarize(ctx context.Context, profiles ProfileReader, ids []string) (map[string]domain.UserSummary, error) {
	out := make(map[string]domain.UserSummary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	found, err := profiles.GetProfiles(ctx, ids)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	for _, id := range ids {
		if p, ok := found[id]; ok {
			out[id] = p.Summary()
			continue
		}
		out[id] = domain.UserSummary{ID: id}
	}
	return out, nil
}
