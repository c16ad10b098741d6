// Package session owns the authenticated identity for the lifetime of a BFF
// session: created at sign-in from the remote auth service, read by the
// consent gate and the workflow, discarded at sign-out.
package session

import (
	"context"

	"complyscan/internal/session/models"
)

// Store persists sessions. Get returns sentinel.ErrNotFound for an unknown id
// and sentinel.ErrExpired for a session past its expiry.
type Store interface {
	Save(ctx context.Context, sess *models.Session) error
	Get(ctx context.Context, sessionID string) (*models.Session, error)
	Delete(ctx context.Context, sessionID string) error
}

// Authenticator is the remote auth collaborator.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*models.LoginResult, error)
	Profile(ctx context.Context, credential, userID string) (*models.Identity, error)
	Register(ctx context.Context, reg models.Registration) (*models.Identity, error)
}
