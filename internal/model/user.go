package model

import "time"

// User is a registered account.
//
// Accounts come from two places: the email/password registration form, and
// GitHub OAuth. Email is the identity used on blogs and likes, so it is
// unique across both sources.
//
// WHY GitHubID *int64?
// Password-only accounts have no GitHub identity. A nil pointer maps to SQL
// NULL, which lets the UNIQUE index on github_id ignore those rows.
//
// PasswordHash is never serialized to JSON.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Picture      string    `json:"picture"` // avatar URL or relative path
	PasswordHash string    `json:"-"`
	GitHubID     *int64    `json:"githubId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// DisplayName falls back to the email when no name was given.
func (u User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}
