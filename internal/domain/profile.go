package domain

import "time"

// Profile is the public-facing record of a user. QRCodeURL and ProfileURL
// are derived from Username when the profile is served.
type Profile struct {
	UserID     string    `json:"id"`
	Username   string    `json:"username"`
	Name       string    `json:"name"`
	Bio        string    `json:"bio"`
	AvatarURL  string    `json:"avatar_url"`
	QRCodeURL  string    `json:"qr_code_url,omitempty"`
	ProfileURL string    `json:"profile_url,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ProfileUpdate carries the fields to overwrite. Nil fields are left alone.
type ProfileUpdate struct {
	Name      *string
	Bio       *string
	AvatarURL *string
	Username  *string
}

func (p Profile) Summary() UserSummary {
	return UserSummary{
		ID:        p.UserID,
		Username:  p.Username,
		Name:      p.Name,
		AvatarURL: p.AvatarURL,
	}
}
