// Package service keeps one consent gate and one workflow orchestrator per
// BFF session and runs submissions in the background so HTTP callers only
// observe state.
package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	auditModels "complyscan/internal/audit/models"
	"complyscan/internal/audit/workflow"
	"complyscan/internal/consent/gate"
	consentModels "complyscan/internal/consent/models"
	"complyscan/internal/events"
	"complyscan/internal/platform/metrics"
	"complyscan/internal/remote"
	sessionModels "complyscan/internal/session/models"
	dErrors "complyscan/pkg/domain-errors"
	"complyscan/pkg/requestcontext"
)

// AuditHistory lists the audits the remote service holds for a subject.
type AuditHistory interface {
	ListAudits(ctx context.Context, subjectID string) ([]auditModels.AuditRecord, error)
}

// Backend is the remote service bound to one credential.
type Backend interface {
	gate.ConsentService
	workflow.AuditService
	AuditHistory
}

// BindFunc binds the remote service to a session credential.
type BindFunc func(credential string) Backend

// Sessions resolves the live session of an authenticated request.
type Sessions interface {
	Resolve(ctx context.Context, sessionID string) (*sessionModels.Session, error)
}

// Trail is the compliance event trail.
type Trail interface {
	events.Emitter
	List(ctx context.Context, subjectID string) ([]events.Event, error)
}

// Config is shared by every orchestrator the service creates.
type Config struct {
	ConsentText string
	StepTimeout time.Duration
}

// ConsentView is what the presentation layer shows about consent.
type ConsentView struct {
	Granted      bool                         `json:"granted"`
	Consent      *consentModels.ConsentRecord `json:"consent,omitempty"`
	CallToAction string                       `json:"call_to_action,omitempty"`
	State        *workflow.State              `json:"state,omitempty"`
}

type entry struct {
	subjectID string
	backend   Backend
	gate      *gate.Gate
	workflow  *workflow.Orchestrator
}

type Service struct {
	cfg      Config
	sessions Sessions
	bind     BindFunc
	trail    Trail
	metrics  *metrics.Metrics
	logger   *slog.Logger

	mu      sync.Mutex
	entries map[string]*entry
	runs    sync.WaitGroup
}

func New(cfg Config, sessions Sessions, bind BindFunc, trail Trail, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		cfg:      cfg,
		sessions: sessions,
		bind:     bind,
		trail:    trail,
		metrics:  m,
		logger:   logger,
		entries:  make(map[string]*entry),
	}
}

func (s *Service) entryFor(ctx context.Context, sessionID string) (*entry, error) {
	sess, err := s.sessions.Resolve(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[sessionID]; ok {
		return e, nil
	}

	backend := s.bind(sess.Identity.Credential)
	g := gate.New(backend, s.logger, gate.WithEvents(s.trail), gate.WithMetrics(s.metrics))
	o := workflow.New(workflow.Config{
		SubjectID:   sess.Identity.ID,
		ConsentText: s.cfg.ConsentText,
		StepTimeout: s.cfg.StepTimeout,
	}, backend, g, s.logger, workflow.WithEvents(s.trail), workflow.WithMetrics(s.metrics))

	e := &entry{subjectID: sess.Identity.ID, backend: backend, gate: g, workflow: o}
	s.entries[sessionID] = e
	return e, nil
}

// Submit starts a run for targetURL and returns the state at acceptance.
// An invalid URL is accepted and fails the run with InvalidInput.
func (s *Service) Submit(ctx context.Context, sessionID, targetURL string) (workflow.State, error) {
	e, err := s.entryFor(ctx, sessionID)
	if err != nil {
		return workflow.State{}, err
	}
	done, err := e.workflow.Start(detach(ctx), targetURL)
	if err != nil {
		return workflow.State{}, runError(err)
	}
	s.track(done)
	return e.workflow.CurrentState(), nil
}

// State returns the session's current observable workflow state.
func (s *Service) State(ctx context.Context, sessionID string) (workflow.State, error) {
	e, err := s.entryFor(ctx, sessionID)
	if err != nil {
		return workflow.State{}, err
	}
	return e.workflow.CurrentState(), nil
}

// ConsentStatus asks the gate whether the subject has consented.
func (s *Service) ConsentStatus(ctx context.Context, sessionID string) (ConsentView, error) {
	e, err := s.entryFor(ctx, sessionID)
	if err != nil {
		return ConsentView{}, err
	}
	rec := e.gate.CheckConsent(ctx, e.subjectID)
	if rec == nil {
		return ConsentView{CallToAction: workflow.ConsentCallToAction}, nil
	}
	return ConsentView{Granted: true, Consent: rec}, nil
}

// GrantConsent records consent. A run waiting in consent-required is resumed
// in the background and the view carries its state; otherwise the consent is
// requested directly.
func (s *Service) GrantConsent(ctx context.Context, sessionID string) (ConsentView, error) {
	e, err := s.entryFor(ctx, sessionID)
	if err != nil {
		return ConsentView{}, err
	}

	done, err := e.workflow.Resume(detach(ctx))
	switch {
	case err == nil:
		s.track(done)
		state := e.workflow.CurrentState()
		return ConsentView{State: &state}, nil
	case errors.Is(err, workflow.ErrRunInProgress):
		return ConsentView{}, runError(err)
	}

	rec, err := e.gate.RequestConsent(ctx, e.subjectID, s.cfg.ConsentText)
	if err != nil {
		var reqErr *gate.RequestError
		if errors.As(err, &reqErr) {
			return ConsentView{}, dErrors.Wrap(err, dErrors.CodeUnavailable, reqErr.Message)
		}
		return ConsentView{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "consent request failed")
	}
	return ConsentView{Granted: true, Consent: rec}, nil
}

// Events lists the subject's compliance trail, newest first.
func (s *Service) Events(ctx context.Context, sessionID string) ([]events.Event, error) {
	sess, err := s.sessions.Resolve(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	list, err := s.trail.List(ctx, sess.Identity.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list compliance events")
	}
	return list, nil
}

// History lists the subject's past audits in the order the service returns them.
func (s *Service) History(ctx context.Context, sessionID string) ([]auditModels.AuditRecord, error) {
	e, err := s.entryFor(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	records, err := e.backend.ListAudits(ctx, e.subjectID)
	if err != nil {
		s.logger.WarnContext(ctx, "audit history unavailable",
			"subject_id", e.subjectID,
			"error", err,
		)
		if remote.CategoryOf(err) == remote.CategoryUnauthorized {
			return nil, dErrors.Wrap(err, dErrors.CodeUnauthorized, "the audit service no longer accepts this session")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "audit history unavailable")
	}
	if records == nil {
		records = []auditModels.AuditRecord{}
	}
	return records, nil
}

// Forget drops the session's gate and orchestrator. A run still in flight
// finishes but is no longer observable.
func (s *Service) Forget(sessionID string) {
	s.mu.Lock()
	e, ok := s.entries[sessionID]
	delete(s.entries, sessionID)
	s.mu.Unlock()
	if ok {
		e.gate.Reset()
	}
}

// Wait blocks until background runs finish or ctx is done.
func (s *Service) Wait(ctx context.Context) error {
	finished := make(chan struct{})
	go func() {
		s.runs.Wait()
		close(finished)
	}()
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) track(done <-chan struct{}) {
	s.runs.Add(1)
	go func() {
		defer s.runs.Done()
		<-done
	}()
}

// detach carries the request's correlation ids and trace into a run that
// outlives the request. The pinned request time is left behind.
func detach(ctx context.Context) context.Context {
	out := requestcontext.WithRequestID(context.Background(), requestcontext.RequestID(ctx))
	out = requestcontext.WithSessionID(out, requestcontext.SessionID(ctx))
	return trace.ContextWithSpanContext(out, trace.SpanContextFromContext(ctx))
}

func runError(err error) error {
	if errors.Is(err, workflow.ErrRunInProgress) {
		return dErrors.Wrap(err, dErrors.CodeConflict, "an audit run is already in progress")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to start audit run")
}
