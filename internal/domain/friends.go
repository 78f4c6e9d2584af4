package domain

import "time"

type UserSummary struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Name      string `json:"name,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

type FriendRequest struct {
	ID        string      `json:"id"`
	User      UserSummary `json:"user"`
	CreatedAt time.Time   `json:"created_at"`
}

type FriendsOverview struct {
	Friends  []UserSummary   `json:"friends"`
	Incoming []FriendRequest `json:"incoming_requests"`
	Outgoing []FriendRequest `json:"outgoing_requests"`
}

// FriendLinks is the raw shape stored for a user; summaries are filled in
// from the profile store.
type FriendLinks struct {
	FriendIDs []string
	Incoming  []FriendRequestLink
	Outgoing  []FriendRequestLink
}

type FriendRequestLink struct {
	ID        string
	UserID    string
	CreatedAt time.Time
}

// Friendship is a request row as seen by the addressee after a state change.
type Friendship struct {
	ID          string
	RequesterID string
	AddresseeID string
}
