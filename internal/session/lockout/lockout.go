// Package lockout throttles repeated failed sign-ins for one identifier.
// After Attempts failures inside Window the identifier is locked for
// Duration; a successful sign-in clears the record.
package lockout

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	dErrors "complyscan/pkg/domain-errors"
	"complyscan/pkg/requestcontext"
)

// Record is the failure history of one identifier.
type Record struct {
	Identifier  string
	Failures    int
	LockedUntil time.Time
}

// IsLockedAt reports whether the record blocks sign-in at now.
func (r *Record) IsLockedAt(now time.Time) bool {
	return r != nil && now.Before(r.LockedUntil)
}

// Store keeps failure counters. RecordFailure starts a new window when the
// previous one has elapsed. Get returns nil, nil for an unknown identifier.
type Store interface {
	RecordFailure(ctx context.Context, identifier string, window time.Duration) (*Record, error)
	Get(ctx context.Context, identifier string) (*Record, error)
	Lock(ctx context.Context, identifier string, until time.Time) error
	Clear(ctx context.Context, identifier string) error
}

type Config struct {
	Attempts int
	Window   time.Duration
	Duration time.Duration
}

type Lockout struct {
	store  Store
	cfg    Config
	logger *slog.Logger
}

func New(store Store, cfg Config, logger *slog.Logger) *Lockout {
	return &Lockout{store: store, cfg: cfg, logger: logger}
}

func key(identifier string) string {
	return strings.ToLower(strings.TrimSpace(identifier))
}

// Check rejects a sign-in while the identifier is locked.
func (l *Lockout) Check(ctx context.Context, identifier string) error {
	rec, err := l.store.Get(ctx, key(identifier))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read sign-in lockout")
	}
	now := requestcontext.Now(ctx)
	if rec.IsLockedAt(now) {
		retry := rec.LockedUntil.Sub(now).Round(time.Second)
		return dErrors.New(dErrors.CodeRateLimited,
			fmt.Sprintf("too many failed sign-in attempts; try again in %s", retry))
	}
	return nil
}

// RecordFailure counts a rejected sign-in and locks the identifier once the
// threshold is reached.
func (l *Lockout) RecordFailure(ctx context.Context, identifier string) error {
	k := key(identifier)
	rec, err := l.store.RecordFailure(ctx, k, l.cfg.Window)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record sign-in failure")
	}
	if rec.Failures < l.cfg.Attempts {
		return nil
	}
	until := requestcontext.Now(ctx).Add(l.cfg.Duration)
	if err := l.store.Lock(ctx, k, until); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to lock sign-in")
	}
	l.logger.WarnContext(ctx, "sign-in locked",
		"identifier", k,
		"failures", rec.Failures,
		"locked_until", until,
	)
	return nil
}

func (l *Lockout) Clear(ctx context.Context, identifier string) error {
	if err := l.store.Clear(ctx, key(identifier)); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to clear sign-in failures")
	}
	return nil
}
