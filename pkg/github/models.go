package github

import "time"

// Profile is an immutable snapshot of a user's public GitHub profile.
// Field tags match the wire format served by the API.
type Profile struct {
	Login       string    `json:"login"`
	FullName    *string   `json:"fullName"`
	AvatarURL   string    `json:"avatar_url"`
	Bio         *string   `json:"bio"`
	PublicRepos int       `json:"public_repos"`
	Followers   int       `json:"followers"`
	Following   int       `json:"following"`
	ProfileURL  string    `json:"profile_url"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Repository is an immutable snapshot of one repository owned by a user.
// PushedAt is nil for repositories that never received a push.
type Repository struct {
	Name     string     `json:"name"`
	Stars    int        `json:"stars"`
	PushedAt *time.Time `json:"pushedAt,omitempty"`
}
