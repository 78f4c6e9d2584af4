package domain

import "time"

type ActivityKind string

const (
	ActivityNewFriend     ActivityKind = "new_friend"
	ActivityNewPhoto      ActivityKind = "new_photo"
	ActivityNewPost       ActivityKind = "new_post"
	ActivityNewVideo      ActivityKind = "new_video"
	ActivityFriendRequest ActivityKind = "friend_request"
)

func (k ActivityKind) Valid() bool {
	switch k {
	case ActivityNewFriend, ActivityNewPhoto, ActivityNewPost, ActivityNewVideo, ActivityFriendRequest:
		return true
	}
	return false
}

type Activity struct {
	ID        string       `json:"id"`
	Kind      ActivityKind `json:"type"`
	User      UserSummary  `json:"user"`
	Content   string       `json:"content,omitempty"`
	ImageURL  string       `json:"image_url,omitempty"`
	CreatedAt time.Time    `json:"timestamp"`
}

// ActivityRecord is the stored form; the actor summary is resolved on read.
type ActivityRecord struct {
	ID        string
	Kind      ActivityKind
	ActorID   string
	TargetID  string
	Content   string
	ImageURL  string
	CreatedAt time.Time
}
