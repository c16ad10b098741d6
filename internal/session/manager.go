package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"complyscan/internal/platform/middleware"
	"complyscan/internal/remote"
	"complyscan/internal/session/lockout"
	"complyscan/internal/session/models"
	dErrors "complyscan/pkg/domain-errors"
	emailutil "complyscan/pkg/email"
	"complyscan/pkg/platform/sentinel"
	"complyscan/pkg/requestcontext"
)

// Manager runs the session lifecycle.
type Manager struct {
	store   Store
	auth    Authenticator
	signer  *TokenSigner
	lockout *lockout.Lockout
	ttl     time.Duration
	logger  *slog.Logger
}

type Option func(*Manager)

// WithLockout throttles repeated failed sign-ins per email.
func WithLockout(l *lockout.Lockout) Option {
	return func(m *Manager) { m.lockout = l }
}

func NewManager(store Store, auth Authenticator, signer *TokenSigner, ttl time.Duration, logger *slog.Logger, opts ...Option) *Manager {
	m := &Manager{store: store, auth: auth, signer: signer, ttl: ttl, logger: logger}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SignIn authenticates against the remote service and opens a session holding
// the service's access token as the identity credential.
func (m *Manager) SignIn(ctx context.Context, email, password string) (*models.Session, string, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, "", dErrors.New(dErrors.CodeInvalidInput, "email and password are required")
	}

	if m.lockout != nil {
		if err := m.lockout.Check(ctx, email); err != nil {
			return nil, "", err
		}
	}

	res, err := m.auth.Login(ctx, email, password)
	if err != nil {
		m.logger.WarnContext(ctx, "sign-in rejected", "error", err)
		rejected := remote.CategoryOf(err) == remote.CategoryUnauthorized
		err = loginError(err)
		if m.lockout != nil && rejected {
			if lerr := m.lockout.RecordFailure(ctx, email); lerr != nil {
				m.logger.ErrorContext(ctx, "failed to record sign-in failure", "error", lerr)
			}
		}
		return nil, "", err
	}
	if m.lockout != nil {
		if err := m.lockout.Clear(ctx, email); err != nil {
			m.logger.WarnContext(ctx, "failed to clear sign-in failures", "error", err)
		}
	}

	identity := res.Identity
	identity.Credential = res.AccessToken
	if identity.ID == "" {
		identity.ID, err = SubjectFromAccessToken(res.AccessToken)
		if err != nil {
			return nil, "", dErrors.Wrap(err, dErrors.CodeUnavailable, "authentication service returned no user id")
		}
	}
	if identity.DisplayName == "" || identity.Email == "" {
		m.fillProfile(ctx, &identity)
	}
	if identity.Email == "" {
		identity.Email = email
	}
	if identity.DisplayName == "" {
		identity.DisplayName = emailutil.DisplayName(identity.Email)
	}

	now := requestcontext.Now(ctx)
	sess := &models.Session{
		ID:        uuid.NewString(),
		Identity:  identity,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
	if err := m.store.Save(ctx, sess); err != nil {
		return nil, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to save session")
	}
	token, err := m.signer.Issue(sess)
	if err != nil {
		return nil, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue session token")
	}

	m.logger.InfoContext(ctx, "signed in",
		"subject_id", identity.ID,
		"session_id", sess.ID,
	)
	return sess, token, nil
}

func (m *Manager) fillProfile(ctx context.Context, identity *models.Identity) {
	profile, err := m.auth.Profile(ctx, identity.Credential, identity.ID)
	if err != nil {
		m.logger.WarnContext(ctx, "profile lookup failed; continuing with login data",
			"subject_id", identity.ID,
			"error", err,
		)
		return
	}
	if identity.DisplayName == "" {
		identity.DisplayName = profile.DisplayName
	}
	if identity.Email == "" {
		identity.Email = profile.Email
	}
}

func loginError(err error) error {
	switch remote.CategoryOf(err) {
	case remote.CategoryUnauthorized, remote.CategoryNotFound:
		return dErrors.Wrap(err, dErrors.CodeUnauthorized, messageOr(err, "invalid email or password"))
	case remote.CategoryRejected:
		return dErrors.Wrap(err, dErrors.CodeInvalidInput, messageOr(err, "sign-in request rejected"))
	default:
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "authentication service unavailable")
	}
}

// Register creates an account on the remote service. It does not sign in.
func (m *Manager) Register(ctx context.Context, reg models.Registration) (*models.Identity, error) {
	reg.Email = strings.TrimSpace(reg.Email)
	reg.Name = strings.TrimSpace(reg.Name)
	reg.Organization = strings.TrimSpace(reg.Organization)
	if reg.Email == "" || reg.Password == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "email and password are required")
	}
	if !strings.Contains(reg.Email, "@") {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "email is not valid")
	}

	identity, err := m.auth.Register(ctx, reg)
	if err != nil {
		m.logger.WarnContext(ctx, "registration rejected", "error", err)
		switch remote.CategoryOf(err) {
		case remote.CategoryConflict:
			return nil, dErrors.Wrap(err, dErrors.CodeConflict, messageOr(err, "an account with this email already exists"))
		case remote.CategoryRejected:
			return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, messageOr(err, "registration rejected"))
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "registration service unavailable")
		}
	}

	out := *identity
	out.Credential = ""
	if out.Email == "" {
		out.Email = reg.Email
	}
	if out.DisplayName == "" {
		out.DisplayName = reg.Name
	}
	if out.DisplayName == "" {
		out.DisplayName = emailutil.DisplayName(out.Email)
	}
	m.logger.InfoContext(ctx, "account registered", "subject_id", out.ID)
	return &out, nil
}

func messageOr(err error, fallback string) string {
	if message := remote.MessageOf(err); message != "" {
		return message
	}
	return fallback
}

// Resolve returns the live session for sessionID.
func (m *Manager) Resolve(ctx context.Context, sessionID string) (*models.Session, error) {
	sess, err := m.store.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) || errors.Is(err, sentinel.ErrExpired) {
			return nil, dErrors.Wrap(err, dErrors.CodeUnauthorized, "session expired or signed out")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load session")
	}
	return sess, nil
}

// SignOut discards the session and with it the credential. The remote
// service is not contacted.
func (m *Manager) SignOut(ctx context.Context, sessionID string) error {
	if err := m.store.Delete(ctx, sessionID); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete session")
	}
	m.logger.InfoContext(ctx, "signed out", "session_id", sessionID)
	return nil
}

// ValidateToken lets the manager stand in as middleware.JWTValidator.
func (m *Manager) ValidateToken(token string) (*middleware.JWTClaims, error) {
	return m.signer.ValidateToken(token)
}
