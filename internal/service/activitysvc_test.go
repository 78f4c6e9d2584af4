package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"qonnectme/internal/domain"
)

type memActivityStore struct {
	recs      []domain.ActivityRecord
	lastLimit int
}

func (m *memActivityStore) InsertActivity(_ context.Context, rec domain.ActivityRecord) (domain.ActivityRecord, error) {
	rec.ID = "act-" + string(rune('a'+len(m.recs)))
	m.recs = append(m.recs, rec)
	return rec, nil
}

func (m *memActivityStore) ListFeed(_ context.Context, _ string, limit int) ([]domain.ActivityRecord, error) {
	m.lastLimit = limit
	out := make([]domain.ActivityRecord, 0, len(m.recs))
	for i := len(m.recs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.recs[i])
	}
	return out, nil
}

func TestActivityServicePostValidation(t *testing.T) {
	svc := &ActivityService{Store: &memActivityStore{}, Profiles: newMemProfileStore()}
	ctx := context.Background()

	cases := []struct {
		kind     domain.ActivityKind
		content  string
		imageURL string
		field    string
	}{
		{domain.ActivityNewPost, "  ", "", "content"},
		{domain.ActivityNewPhoto, "", "", "image_url"},
		{domain.ActivityNewVideo, "", "ftp://x", "image_url"},
		{domain.ActivityNewFriend, "hi", "", "type"},
	}
	for _, tc := range cases {
		_, err := svc.Post(ctx, "user-1", tc.kind, tc.content, tc.imageURL)
		var ve *domain.ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("%s: expected validation error, got %v", tc.kind, err)
		}
		if _, ok := ve.Fields[tc.field]; !ok {
			t.Fatalf("%s: missing field %s in %v", tc.kind, tc.field, ve.Fields)
		}
	}
}

func TestActivityServicePostAndFeed(t *testing.T) {
	now := time.Date(2025, 5, 6, 7, 8, 9, 0, time.UTC)
	store := &memActivityStore{}
	profiles := newMemProfileStore()
	_, _ = profiles.CreateProfile(context.Background(), domain.Profile{UserID: "user-1", Username: "alice", Name: "Alice"})
	svc := &ActivityService{Store: store, Profiles: profiles, Now: func() time.Time { return now }}

	a, err := svc.Post(context.Background(), "user-1", domain.ActivityNewPost, "  hello world  ", "")
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if a.Content != "hello world" || a.User.Username != "alice" || !a.CreatedAt.Equal(now) {
		t.Fatalf("unexpected activity: %+v", a)
	}
	if _, err := svc.Post(context.Background(), "user-1", domain.ActivityNewPhoto, "", "https://cdn.example.com/p.jpg"); err != nil {
		t.Fatalf("post photo: %v", err)
	}

	feed, err := svc.Feed(context.Background(), "user-1", 0)
	if err != nil {
		t.Fatalf("feed: %v", err)
	}
	if store.lastLimit != defaultFeedLimit {
		t.Fatalf("limit = %d", store.lastLimit)
	}
	if len(feed) != 2 || feed[0].Kind != domain.ActivityNewPhoto || feed[1].Kind != domain.ActivityNewPost {
		t.Fatalf("unexpected feed: %+v", feed)
	}

	if _, err := svc.Feed(context.Background(), "user-1", 1000); err != nil {
		t.Fatalf("feed: %v", err)
	}
	if store.lastLimit != maxFeedLimit {
		t.Fatalf("limit = %d", store.lastLimit)
	}
}

func TestActivityServiceRecordRejectsUnknownKind(t *testing.T) {
	svc := &ActivityService{Store: &memActivityStore{}}
	err := svc.Record(context.Background(), domain.ActivityRecord{Kind: "party", ActorID: "user-1"})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
