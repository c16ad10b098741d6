// Package gate answers whether a subject has an active consent for the audit
// purpose, and records a new consent when asked to.
//
// CheckConsent never fails: a collaborator error reads as "no consent", which
// is the safe default. Concurrent checks for the same subject share one call;
// the shared call outlives any single caller's cancellation and is bounded by
// its own timeout.
package gate

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"complyscan/internal/consent/models"
	"complyscan/internal/events"
	"complyscan/internal/platform/metrics"
	"complyscan/internal/remote"
	"complyscan/pkg/domain"
)

// ConsentService is the remote consent collaborator, bound to one session.
type ConsentService interface {
	ListConsents(ctx context.Context, subjectID string) ([]models.ConsentRecord, error)
	RecordConsent(ctx context.Context, req models.GrantRequest) (*models.ConsentRecord, error)
}

// ErrConsentRequestFailed is matched by every error RequestConsent returns.
var ErrConsentRequestFailed = errors.New("consent request failed")

// DefaultCheckTimeout bounds one shared consent check.
const DefaultCheckTimeout = 15 * time.Second

const fallbackRequestMessage = "We could not record your consent. Please try again."

// RequestError is a failed consent request. Message is the service's own
// message when it sent one.
type RequestError struct {
	Message string
	Err     error
}

func (e *RequestError) Error() string {
	return ErrConsentRequestFailed.Error() + ": " + e.Message
}

func (e *RequestError) Unwrap() []error {
	return []error{ErrConsentRequestFailed, e.Err}
}

type Gate struct {
	service ConsentService
	purpose domain.ConsentPurpose
	events  events.Emitter
	metrics *metrics.Metrics
	logger  *slog.Logger
	group   singleflight.Group
	timeout time.Duration

	mu      sync.RWMutex
	granted *models.ConsentRecord
}

type Option func(*Gate)

func WithEvents(e events.Emitter) Option {
	return func(g *Gate) { g.events = e }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Gate) { g.metrics = m }
}

func WithCheckTimeout(d time.Duration) Option {
	return func(g *Gate) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// New creates a gate for the audit purpose.
func New(service ConsentService, logger *slog.Logger, opts ...Option) *Gate {
	g := &Gate{
		service: service,
		purpose: domain.ConsentPurposeAudit,
		events:  events.Discard,
		logger:  logger,
		timeout: DefaultCheckTimeout,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// CheckConsent returns the subject's selected active audit consent, or nil
// when there is none or the service could not be asked. A caller whose ctx
// ends first gets nil; callers sharing the same check are unaffected.
func (g *Gate) CheckConsent(ctx context.Context, subjectID string) *models.ConsentRecord {
	ch := g.group.DoChan(subjectID, func() (any, error) {
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.timeout)
		defer cancel()
		return g.check(shared, subjectID), nil
	})
	select {
	case <-ctx.Done():
		g.logger.WarnContext(ctx, "consent check abandoned by caller",
			"subject_id", subjectID,
			"error", ctx.Err(),
		)
		return nil
	case res := <-ch:
		rec, _ := res.Val.(*models.ConsentRecord)
		if rec == nil {
			return nil
		}
		out := *rec
		return &out
	}
}

func (g *Gate) check(ctx context.Context, subjectID string) *models.ConsentRecord {
	records, err := g.service.ListConsents(ctx, subjectID)
	if err != nil {
		g.logger.WarnContext(ctx, "consent check failed; treating as no consent",
			"subject_id", subjectID,
			"error", err,
		)
		g.observe("error")
		g.events.Emit(ctx, events.Event{
			SubjectID: subjectID,
			Action:    events.ActionConsentChecked,
			Purpose:   g.purpose.String(),
			Decision:  "error",
			Reason:    err.Error(),
		})
		return nil
	}

	selected, stale := models.SelectActive(records, g.purpose)
	if stale > 0 {
		g.logger.WarnContext(ctx, "multiple active consent records; using the most recent",
			"subject_id", subjectID,
			"selected_id", selected.ID,
			"stale", stale,
		)
	}

	g.mu.Lock()
	g.granted = selected
	g.mu.Unlock()

	event := events.Event{
		SubjectID: subjectID,
		Action:    events.ActionConsentChecked,
		Purpose:   g.purpose.String(),
		Decision:  "missing",
	}
	if selected != nil {
		event.Decision = "granted"
		event.ConsentID = selected.ID
	}
	g.observe(event.Decision)
	g.events.Emit(ctx, event)
	return selected
}

// RequestConsent records a new consent with the text being agreed to. On
// failure the gate's granted state is left untouched.
func (g *Gate) RequestConsent(ctx context.Context, subjectID, consentText string) (*models.ConsentRecord, error) {
	rec, err := g.service.RecordConsent(ctx, models.GrantRequest{
		SubjectID:   subjectID,
		Purpose:     g.purpose,
		ConsentText: consentText,
	})
	if err == nil && (rec == nil || rec.ID == "") {
		err = errors.New("consent service returned no record")
	}
	if err != nil {
		message := remote.MessageOf(err)
		if message == "" {
			message = fallbackRequestMessage
		}
		g.logger.WarnContext(ctx, "consent request failed",
			"subject_id", subjectID,
			"error", err,
		)
		g.events.Emit(ctx, events.Event{
			SubjectID: subjectID,
			Action:    events.ActionConsentRequestFailed,
			Purpose:   g.purpose.String(),
			Decision:  "failed",
			Reason:    message,
		})
		return nil, &RequestError{Message: message, Err: err}
	}

	granted := *rec
	granted.SubjectID = subjectID
	granted.Purpose = g.purpose
	granted.Active = true

	g.mu.Lock()
	g.granted = &granted
	g.mu.Unlock()

	g.logger.InfoContext(ctx, "consent granted",
		"subject_id", subjectID,
		"consent_id", granted.ID,
	)
	g.events.Emit(ctx, events.Event{
		SubjectID: subjectID,
		Action:    events.ActionConsentGranted,
		Purpose:   g.purpose.String(),
		ConsentID: granted.ID,
		Decision:  "granted",
	})
	out := granted
	return &out, nil
}

// Granted returns the last consent this gate observed or recorded.
func (g *Gate) Granted() *models.ConsentRecord {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.granted == nil {
		return nil
	}
	out := *g.granted
	return &out
}

// Reset drops the cached consent, e.g. at sign-out.
func (g *Gate) Reset() {
	g.mu.Lock()
	g.granted = nil
	g.mu.Unlock()
}

func (g *Gate) observe(result string) {
	if g.metrics != nil {
		g.metrics.ObserveConsentCheck(result)
	}
}
