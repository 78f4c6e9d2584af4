package service

import (
	"context"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"qonnectme/internal/domain"
)

const (
	defaultFeedLimit = 20
	maxFeedLimit     = 100
	maxPostLen       = 1000
)

type ActivityStore interface {
	InsertActivity(ctx context.Context, rec domain.ActivityRecord) (domain.ActivityRecord, error)
	// ListFeed returns records acted by userID or an accepted friend, or
	// targeted at userID, newest first.
	ListFeed(ctx context.Context, userID string, limit int) ([]domain.ActivityRecord, error)
}

type ActivityService struct {
	Store    ActivityStore
	Profiles ProfileReader
	Now      func() time.Time
}

func (s *ActivityService) Record(ctx context.Context, rec domain.ActivityRecord) error {
	if !rec.Kind.Valid() {
		return domain.Invalid("type", "unknown activity type")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}
	_, err := s.Store.InsertActivity(ctx, rec)
	return err
}

// Post publishes user content to the feed.
func (s *ActivityService) Post(ctx context.Context, userID string, kind domain.ActivityKind, content, imageURL string) (domain.Activity, error) {
	content = strings.TrimSpace(content)
	imageURL = strings.TrimSpace(imageURL)

	fields := map[string]string{}
	switch kind {
	case domain.ActivityNewPost:
		if content == "" {
			fields["content"] = "required"
		}
	case domain.ActivityNewPhoto, domain.ActivityNewVideo:
		if imageURL == "" {
			fields["image_url"] = "required"
		}
	default:
		fields["type"] = "must be new_post, new_photo or new_video"
	}
	if utf8.RuneCountInString(content) > maxPostLen {
		fields["content"] = "must be 1000 characters or less"
	}
	if imageURL != "" && !isHTTPURL(imageURL) && !strings.HasPrefix(imageURL, "/media/") {
		fields["image_url"] = "must be an http(s) URL"
	}
	if len(fields) > 0 {
		return domain.Activity{}, domain.NewValidationError(fields)
	}

	rec, err := s.Store.InsertActivity(ctx, domain.ActivityRecord{
		Kind:      kind,
		ActorID:   userID,
		Content:   content,
		ImageURL:  imageURL,
		CreatedAt: s.now(),
	})
	if err != nil {
		return domain.Activity{}, err
	}

	summaries, err := summarize(ctx, s.Profiles, []string{userID})
	if err != nil {
		return domain.Activity{}, err
	}
	return toActivity(rec, summaries), nil
}

func (s *ActivityService) Feed(ctx context.Context, userID string, limit int) ([]domain.Activity, error) {
	if limit <= 0 {
		limit = defaultFeedLimit
	}
	if limit > maxFeedLimit {
		limit = maxFeedLimit
	}

	recs, err := s.Store.ListFeed(ctx, userID, limit)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(recs))
	seen := make(map[string]bool, len(recs))
	for _, r := range recs {
		if !seen[r.ActorID] {
			seen[r.ActorID] = true
			ids = append(ids, r.ActorID)
		}
	}
	summaries, err := summarize(ctx, s.Profiles, ids)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Activity, 0, len(recs))
	for _, r := range recs {
		out = append(out, toActivity(r, summaries))
	}
	return out, nil
}

func toActivity(r domain.ActivityRecord, summaries map[string]domain.UserSummary) domain.Activity {
	return domain.Activity{
		ID:        r.ID,
		Kind:      r.Kind,
		User:      summaries[r.ActorID],
		Content:   r.Content,
		ImageURL:  r.ImageURL,
		CreatedAt: r.CreatedAt,
	}
}

func (s *ActivityService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}
