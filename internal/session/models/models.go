package models

import "time"

// Identity is the authenticated subject. Credential is the remote service's
// bearer token and is dropped by discarding the session, never revoked remotely.
type Identity struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
	Credential  string `json:"credential,omitempty"`
}

// Session binds an Identity to a BFF session for its lifetime.
type Session struct {
	ID        string    `json:"id"`
	Identity  Identity  `json:"identity"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// IsExpired reports whether the session is no longer usable at now.
func (s Session) IsExpired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// LoginResult is what the remote auth endpoint returned. Identity fields may
// be partially filled; the access token always is.
type LoginResult struct {
	AccessToken string
	Identity    Identity
}

// Registration is a new account request. Name and Organization are optional.
type Registration struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	Name         string `json:"name,omitempty"`
	Organization string `json:"organization,omitempty"`
}
