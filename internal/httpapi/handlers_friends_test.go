package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"qonnectme/internal/domain"
	"qonnectme/internal/service"
)

type stubFriendshipsStore struct {
	t *testing.T

	createRequestFunc func(context.Context, string, string) (string, time.Time, error)
	acceptFunc        func(context.Context, string, string, time.Time) (domain.Friendship, error)
	declineFunc       func(context.Context, string, string, time.Time) error
	cancelFunc        func(context.Context, string, string, time.Time) error
	listLinksFunc     func(context.Context, string) (domain.FriendLinks, error)
}

func (s *stubFriendshipsStore) CreateRequest(ctx context.Context, requesterID, addresseeID string) (string, time.Time, error) {
	if s.createRequestFunc != nil {
		return s.createRequestFunc(ctx, requesterID, addresseeID)
	}
	s.t.Fatalf("CreateRequest called unexpectedly")
	return "", time.Time{}, context.Canceled
}

func (s *stubFriendshipsStore) Accept(ctx context.Context, requestID, addresseeID string, when time.Time) (domain.Friendship, error) {
	if s.acceptFunc != nil {
		return s.acceptFunc(ctx, requestID, addresseeID, when)
	}
	s.t.Fatalf("Accept called unexpectedly")
	return domain.Friendship{}, context.Canceled
}

func (s *stubFriendshipsStore) Decline(ctx context.Context, requestID, addresseeID string, when time.Time) error {
	if s.declineFunc != nil {
		return s.declineFunc(ctx, requestID, addresseeID, when)
	}
	s.t.Fatalf("Decline called unexpectedly")
	return context.Canceled
}

func (s *stubFriendshipsStore) Cancel(ctx context.Context, requestID, requesterID string, when time.Time) error {
	if s.cancelFunc != nil {
		return s.cancelFunc(ctx, requestID, requesterID, when)
	}
	s.t.Fatalf("Cancel called unexpectedly")
	return context.Canceled
}

func (s *stubFriendshipsStore) ListLinks(ctx context.Context, userID string) (domain.FriendLinks, error) {
	if s.listLinksFunc != nil {
		return s.listLinksFunc(ctx, userID)
	}
	s.t.Fatalf("ListLinks called unexpectedly")
	return domain.FriendLinks{}, context.Canceled
}

// stubProfiles serves profiles keyed by user id.
type stubProfiles map[string]domain.Profile

func (s stubProfiles) GetProfile(_ context.Context, userID string) (domain.Profile, error) {
	p, ok := s[userID]
	if !ok {
		return domain.Profile{}, domain.ErrNotFound
	}
	return p, nil
}

func (s stubProfiles) GetProfileByUsername(_ context.Context, username string) (domain.Profile, error) {
	for _, p := range s {
		if domain.UsernameKey(p.Username) == domain.UsernameKey(username) {
			return p, nil
		}
	}
	return domain.Profile{}, domain.ErrNotFound
}

func (s stubProfiles) GetProfiles(_ context.Context, userIDs []string) (map[string]domain.Profile, error) {
	out := make(map[string]domain.Profile, len(userIDs))
	for _, id := range userIDs {
		if p, ok := s[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

type stubFriendUsers struct {
	users map[string]domain.User
}

func (s stubFriendUsers) GetUserByID(_ context.Context, id string) (domain.User, error) {
	u, ok := s.users[id]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

func (s stubFriendUsers) GetUserByEmail(_ context.Context, email string) (domain.UserWithPassword, error) {
	for _, u := range s.users {
		if u.Email == email {
			return domain.UserWithPassword{User: u}, nil
		}
	}
	return domain.UserWithPassword{}, domain.ErrNotFound
}

func withUser(req *http.Request, id string) *http.Request {
	return req.WithContext(withAuth(req.Context(), domain.User{ID: id}, "sess-"+id))
}

func TestFriendsListReturnsSummaries(t *testing.T) {
	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	store := &stubFriendshipsStore{
		t: t,
		listLinksFunc: func(_ context.Context, userID string) (domain.FriendLinks, error) {
			if userID != "user-1" {
				t.Fatalf("unexpected user id: %s", userID)
			}
			return domain.FriendLinks{
				FriendIDs: []string{"user-2"},
				Incoming:  []domain.FriendRequestLink{{ID: "req-9", UserID: "user-3", CreatedAt: created}},
			}, nil
		},
	}

	api := &api{
		friendsSvc: &service.FriendsService{
			Friendships: store,
			Profiles: stubProfiles{
				"user-2": {UserID: "user-2", Username: "alice", Name: "Alice"},
				"user-3": {UserID: "user-3", Username: "bob"},
			},
		},
	}

	req := withUser(httptest.NewRequest(http.MethodGet, "/v1/friends", nil), "user-1")
	rr := httptest.NewRecorder()
	api.handleFriendsList(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}

	var got domain.FriendsOverview
	if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(got.Friends) != 1 || got.Friends[0].Username != "alice" {
		t.Fatalf("unexpected friends: %#v", got.Friends)
	}
	if len(got.Incoming) != 1 || got.Incoming[0].ID != "req-9" || got.Incoming[0].User.Username != "bob" {
		t.Fatalf("unexpected incoming: %#v", got.Incoming)
	}
	if got.Outgoing == nil || len(got.Outgoing) != 0 {
		t.Fatalf("outgoing should be an empty list: %#v", got.Outgoing)
	}
}

func TestFriendsCreateRequestByUsername(t *testing.T) {
	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	store := &stubFriendshipsStore{
		t: t,
		createRequestFunc: func(_ context.Context, requesterID, addresseeID string) (string, time.Time, error) {
			if requesterID != "user-1" || addresseeID != "user-2" {
				t.Fatalf("unexpected ids: %s %s", requesterID, addresseeID)
			}
			return "req-1", created, nil
		},
	}

	api := &api{
		friendsSvc: &service.FriendsService{
			Friendships: store,
			Users:       stubFriendUsers{users: map[string]domain.User{"user-2": {ID: "user-2", Status: domain.UserStatusActive}}},
			Profiles:    stubProfiles{"user-2": {UserID: "user-2", Username: "Alice"}},
		},
	}

	req := withUser(httptest.NewRequest(http.MethodPost, "/v1/friends/requests", strings.NewReader(`{"username":"alice"}`)), "user-1")
	rr := httptest.NewRecorder()
	api.handleFriendsCreateRequest(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("unexpected status: %d body=%s", rr.Code, rr.Body.String())
	}
	var got domain.FriendRequest
	if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.ID != "req-1" || got.User.ID != "user-2" {
		t.Fatalf("unexpected request: %#v", got)
	}
}

func TestFriendsCreateRequestExistingPairConflicts(t *testing.T) {
	store := &stubFriendshipsStore{
		t: t,
		createRequestFunc: func(context.Context, string, string) (string, time.Time, error) {
			return "", time.Time{}, domain.ErrFriendshipExists
		},
	}

	api := &api{
		friendsSvc: &service.FriendsService{
			Friendships: store,
			Users:       stubFriendUsers{users: map[string]domain.User{"user-2": {ID: "user-2", Email: "bob@example.com", Status: domain.UserStatusActive}}},
			Profiles:    stubProfiles{},
		},
	}

	req := withUser(httptest.NewRequest(http.MethodPost, "/v1/friends/requests", strings.NewReader(`{"email":"Bob@example.com"}`)), "user-1")
	rr := httptest.NewRecorder()
	api.handleFriendsCreateRequest(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	var resp errorEnvelope
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Error.Code != "friendship_exists" {
		t.Fatalf("unexpected error code: %s", resp.Error.Code)
	}
}

func TestFriendsCreateRequestToSelfIsRejected(t *testing.T) {
	api := &api{
		friendsSvc: &service.FriendsService{
			Friendships: &stubFriendshipsStore{t: t},
			Profiles:    stubProfiles{"user-1": {UserID: "user-1", Username: "me_myself"}},
		},
	}

	req := withUser(httptest.NewRequest(http.MethodPost, "/v1/friends/requests", strings.NewReader(`{"username":"me_myself"}`)), "user-1")
	rr := httptest.NewRecorder()
	api.handleFriendsCreateRequest(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
}

func TestFriendsAcceptUnknownRequestIsNotFound(t *testing.T) {
	store := &stubFriendshipsStore{
		t: t,
		acceptFunc: func(_ context.Context, requestID, addresseeID string, _ time.Time) (domain.Friendship, error) {
			if requestID != "req-1" || addresseeID != "user-1" {
				t.Fatalf("unexpected accept ids: %s %s", requestID, addresseeID)
			}
			return domain.Friendship{}, domain.ErrNotFound
		},
	}

	api := &api{friendsSvc: &service.FriendsService{Friendships: store}}

	req := withUser(httptest.NewRequest(http.MethodPost, "/v1/friends/requests/req-1/accept", nil), "user-1")
	req.SetPathValue("id", "req-1")
	rr := httptest.NewRecorder()
	api.handleFriendsAccept(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
}

func TestFriendsCancelReturnsNoContent(t *testing.T) {
	called := false
	store := &stubFriendshipsStore{
		t: t,
		cancelFunc: func(_ context.Context, requestID, requesterID string, _ time.Time) error {
			called = true
			if requestID != "req-1" || requesterID != "user-1" {
				t.Fatalf("unexpected cancel ids: %s %s", requestID, requesterID)
			}
			return nil
		},
	}

	api := &api{friendsSvc: &service.FriendsService{Friendships: store}}

	req := withUser(httptest.NewRequest(http.MethodPost, "/v1/friends/requests/req-1/cancel", nil), "user-1")
	req.SetPathValue("id", "req-1")
	rr := httptest.NewRecorder()
	api.handleFriendsCancel(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	if !called {
		t.Fatalf("expected cancel to be called")
	}
}
