// Package workflow drives one subject's audit runs: consent check, audit
// creation, execution, summary retrieval and normalization, strictly in that
// order. A run ends in ready or failed, or rests in consent-required until
// consent is granted or a new URL is submitted.
//
// One Orchestrator serves one subject. Runs never interleave: a submit while a
// run is between checking-consent and a resting state is rejected with
// ErrRunInProgress.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"complyscan/internal/audit/models"
	"complyscan/internal/audit/summary"
	"complyscan/internal/events"
	"complyscan/internal/platform/metrics"
	"complyscan/internal/remote"
	dErrors "complyscan/pkg/domain-errors"
	"complyscan/pkg/platform/sentinel"
)

const DefaultStepTimeout = 60 * time.Second

// Config fixes who the orchestrator acts for and how long each step may take.
type Config struct {
	SubjectID   string
	ConsentText string
	StepTimeout time.Duration
}

type Orchestrator struct {
	cfg     Config
	audits  AuditService
	gate    ConsentGate
	events  events.Emitter
	metrics *metrics.Metrics
	tracer  trace.Tracer
	logger  *slog.Logger

	mu        sync.Mutex
	busy      bool
	phase     Phase
	state     State
	pending   string
	listeners []listener
	nextID    int
}

type listener struct {
	id int
	fn func(State)
}

type Option func(*Orchestrator)

func WithEvents(e events.Emitter) Option {
	return func(o *Orchestrator) { o.events = e }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

func New(cfg Config, audits AuditService, gate ConsentGate, logger *slog.Logger, opts ...Option) *Orchestrator {
	if cfg.StepTimeout <= 0 {
		cfg.StepTimeout = DefaultStepTimeout
	}
	o := &Orchestrator{
		cfg:    cfg,
		audits: audits,
		gate:   gate,
		events: events.Discard,
		tracer: otel.Tracer("complyscan/internal/audit/workflow"),
		logger: logger,
		phase:  PhaseIdle,
		state:  State{Phase: PhaseIdle},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// CurrentState returns a snapshot of the last observable state.
func (o *Orchestrator) CurrentState() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

// Busy reports whether a run is in flight.
func (o *Orchestrator) Busy() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.busy
}

// Subscribe registers fn for every observable transition, in order, on the
// goroutine driving the run. fn must not call back into the orchestrator's
// Submit or GrantConsent.
func (o *Orchestrator) Subscribe(fn func(State)) (unsubscribe func()) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.nextID++
	id := o.nextID
	o.listeners = append(o.listeners, listener{id: id, fn: fn})
	return func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		for i, l := range o.listeners {
			if l.id == id {
				o.listeners = append(o.listeners[:i], o.listeners[i+1:]...)
				return
			}
		}
	}
}

// Submit runs the workflow for targetURL and returns once the run is ready,
// failed or waiting for consent. The only error is ErrRunInProgress; run
// failures are reported through the state.
func (o *Orchestrator) Submit(ctx context.Context, targetURL string) error {
	if err := o.reserve(); err != nil {
		return err
	}
	o.execute(ctx, targetURL)
	return nil
}

// Start is Submit without waiting. done is closed when the run rests.
func (o *Orchestrator) Start(ctx context.Context, targetURL string) (done <-chan struct{}, err error) {
	if err := o.reserve(); err != nil {
		return nil, err
	}
	ch := make(chan struct{})
	go func() {
		defer close(ch)
		o.execute(ctx, targetURL)
	}()
	return ch, nil
}

// GrantConsent requests consent for the run waiting in consent-required and,
// once granted, resumes it with the pending URL.
func (o *Orchestrator) GrantConsent(ctx context.Context) error {
	target, err := o.reserveResume()
	if err != nil {
		return err
	}
	o.resume(ctx, target)
	return nil
}

// Resume is GrantConsent without waiting.
func (o *Orchestrator) Resume(ctx context.Context) (done <-chan struct{}, err error) {
	target, err := o.reserveResume()
	if err != nil {
		return nil, err
	}
	ch := make(chan struct{})
	go func() {
		defer close(ch)
		o.resume(ctx, target)
	}()
	return ch, nil
}

func (o *Orchestrator) reserve() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.busy {
		return ErrRunInProgress
	}
	o.busy = true
	return nil
}

func (o *Orchestrator) reserveResume() (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.busy {
		return "", ErrRunInProgress
	}
	if o.phase != PhaseConsentMissing || o.pending == "" {
		return "", ErrNoPendingConsent
	}
	o.busy = true
	return o.pending, nil
}

func (o *Orchestrator) release() {
	o.mu.Lock()
	o.busy = false
	o.mu.Unlock()
}

func (o *Orchestrator) execute(ctx context.Context, targetURL string) {
	defer o.release()

	runID := uuid.NewString()
	ctx, span := o.tracer.Start(ctx, "workflow.run", trace.WithAttributes(
		attribute.String("subject_id", o.cfg.SubjectID),
		attribute.String("run_id", runID),
	))
	defer span.End()

	o.mu.Lock()
	o.phase = PhaseIdle
	o.pending = ""
	o.state = State{Phase: PhaseIdle, RunID: runID, TargetURL: targetURL}
	o.mu.Unlock()

	target, err := ValidateTarget(targetURL)
	if err != nil {
		o.fail(ctx, FailureInvalidInput, err)
		return
	}

	o.logger.InfoContext(ctx, "audit submitted",
		"subject_id", o.cfg.SubjectID,
		"run_id", runID,
		"target", target,
	)
	o.events.Emit(ctx, events.Event{
		SubjectID: o.cfg.SubjectID,
		Action:    events.ActionAuditSubmitted,
		Target:    target,
	})

	o.transition(ctx, PhaseCheckingConsent, func(s *State) { s.TargetURL = target })
	rec, _ := runStep(ctx, o, "check_consent", func(ctx context.Context) (*consentRecord, error) {
		return o.gate.CheckConsent(ctx, o.cfg.SubjectID), nil
	})
	if rec == nil {
		o.mu.Lock()
		o.pending = target
		o.mu.Unlock()
		o.transition(ctx, PhaseConsentMissing, func(s *State) { s.CallToAction = ConsentCallToAction })
		o.observeRun("consent_required")
		return
	}
	o.proceed(ctx, target, rec.ID)
}

func (o *Orchestrator) resume(ctx context.Context, target string) {
	defer o.release()

	ctx, span := o.tracer.Start(ctx, "workflow.resume", trace.WithAttributes(
		attribute.String("subject_id", o.cfg.SubjectID),
		attribute.String("run_id", o.CurrentState().RunID),
	))
	defer span.End()

	rec, err := runStep(ctx, o, "request_consent", func(ctx context.Context) (*consentRecord, error) {
		return o.gate.RequestConsent(ctx, o.cfg.SubjectID, o.cfg.ConsentText)
	})
	if err == nil && (rec == nil || rec.ID == "") {
		err = errors.New("consent gate returned no record")
	}
	if err != nil {
		o.fail(ctx, FailureConsentRequestFailed, err)
		return
	}
	o.proceed(ctx, target, rec.ID)
}

// proceed runs everything after a consent was observed. consentID is never
// empty here; audit creation is unreachable without it.
func (o *Orchestrator) proceed(ctx context.Context, target, consentID string) {
	o.mu.Lock()
	o.pending = ""
	o.mu.Unlock()
	o.transition(ctx, PhaseConsentGranted, func(s *State) { s.CallToAction = "" })

	o.transition(ctx, PhaseCreating, nil)
	handle, err := runStep(ctx, o, "create", func(ctx context.Context) (*models.AuditHandle, error) {
		return o.audits.Create(ctx, models.AuditRequest{
			TargetURL: target,
			SubjectID: o.cfg.SubjectID,
			ConsentID: consentID,
		})
	})
	if err == nil && (handle == nil || handle.AuditID == "") {
		err = errors.New("audit service returned no audit id")
	}
	if err != nil {
		o.fail(ctx, FailureCreateError, err)
		return
	}
	auditID := handle.AuditID
	o.events.Emit(ctx, events.Event{
		SubjectID: o.cfg.SubjectID,
		Action:    events.ActionAuditCreated,
		Purpose:   "audit",
		ConsentID: consentID,
		Target:    target,
		AuditID:   auditID,
	})

	o.transition(ctx, PhaseRunning, func(s *State) { s.AuditID = auditID })
	if _, err := runStep(ctx, o, "run", func(ctx context.Context) (*models.RunStatus, error) {
		return o.audits.Run(ctx, auditID)
	}); err != nil {
		o.fail(ctx, FailureRunError, err)
		return
	}

	o.transition(ctx, PhaseFetchingSummary, nil)
	raw, err := runStep(ctx, o, "summary", func(ctx context.Context) (*models.RawSummary, error) {
		return o.audits.Summary(ctx, auditID)
	})
	if err == nil && raw == nil {
		err = errors.New("audit service returned no summary")
	}
	if err != nil {
		o.fail(ctx, FailureSummaryError, err)
		return
	}

	o.transition(ctx, PhaseNormalizing, nil)
	result, anomalies := summary.Normalize(*raw)
	for _, anomaly := range anomalies {
		o.logger.WarnContext(ctx, "summary normalization anomaly",
			"subject_id", o.cfg.SubjectID,
			"audit_id", auditID,
			"field", anomaly.Field,
			"reason", anomaly.Reason,
		)
		if o.metrics != nil {
			o.metrics.IncrementAnomalies(anomaly.Field)
		}
	}
	if result.AuditID == "" {
		result.AuditID = auditID
	}

	o.transition(ctx, PhaseReady, func(s *State) { s.Summary = &result })
	o.logger.InfoContext(ctx, "audit ready",
		"subject_id", o.cfg.SubjectID,
		"audit_id", auditID,
		"score", result.Score,
		"status", string(result.Status),
		"anomalies", len(anomalies),
	)
	o.events.Emit(ctx, events.Event{
		SubjectID: o.cfg.SubjectID,
		Action:    events.ActionAuditReady,
		Target:    target,
		AuditID:   auditID,
		ConsentID: consentID,
		Decision:  string(result.Status),
	})
	o.observeRun(string(PhaseReady))
}

// fail ends the run. The message comes from the collaborator's payload when
// it sent one.
func (o *Orchestrator) fail(ctx context.Context, kind FailureKind, err error) {
	message := remote.MessageOf(err)
	if message == "" {
		message = kind.FallbackMessage()
	}
	failure := &Failure{Kind: kind, Message: message, Err: err}

	o.transition(ctx, PhaseFailed, func(s *State) {
		s.Failure = failure
		s.CallToAction = ""
	})

	state := o.CurrentState()
	o.logger.WarnContext(ctx, "audit run failed",
		"subject_id", o.cfg.SubjectID,
		"run_id", state.RunID,
		"audit_id", state.AuditID,
		"kind", string(kind),
		"error", err,
	)
	o.events.Emit(ctx, events.Event{
		SubjectID: o.cfg.SubjectID,
		Action:    events.ActionAuditFailed,
		Target:    state.TargetURL,
		AuditID:   state.AuditID,
		Decision:  string(kind),
		Reason:    message,
	})
	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, string(kind))
	o.observeRun(string(kind))
}

func (o *Orchestrator) transition(ctx context.Context, phase Phase, mutate func(*State)) {
	o.mu.Lock()
	from := o.phase
	o.phase = phase
	if mutate != nil {
		mutate(&o.state)
	}
	observable := phase.Observable()
	var snapshot State
	var fns []func(State)
	if observable {
		o.state.Phase = phase
		snapshot = o.snapshotLocked()
		for _, l := range o.listeners {
			fns = append(fns, l.fn)
		}
	}
	o.mu.Unlock()

	o.logger.DebugContext(ctx, "workflow transition",
		"subject_id", o.cfg.SubjectID,
		"from", string(from),
		"to", string(phase),
	)
	if !observable {
		return
	}
	if o.metrics != nil {
		o.metrics.ObserveTransition(string(phase))
	}
	for _, fn := range fns {
		fn(snapshot)
	}
}

func (o *Orchestrator) snapshotLocked() State {
	s := o.state
	if s.Summary != nil {
		sum := *s.Summary
		s.Summary = &sum
	}
	if s.Failure != nil {
		f := *s.Failure
		s.Failure = &f
	}
	return s
}

func (o *Orchestrator) observeRun(outcome string) {
	if o.metrics != nil {
		o.metrics.ObserveRun(outcome)
	}
}

// runStep bounds fn by the step timeout. A collaborator that ignores its
// context is abandoned when the deadline passes and its late answer dropped.
func runStep[T any](ctx context.Context, o *Orchestrator, name string, fn func(context.Context) (T, error)) (T, error) {
	stepCtx, cancel := context.WithTimeout(ctx, o.cfg.StepTimeout)
	defer cancel()

	type result struct {
		value T
		err   error
	}
	start := time.Now()
	done := make(chan result, 1)
	go func() {
		v, err := fn(stepCtx)
		done <- result{value: v, err: err}
	}()

	var r result
	select {
	case r = <-done:
	case <-stepCtx.Done():
		r.err = fmt.Errorf("%s: %w: %w", name, sentinel.ErrTimeout, stepCtx.Err())
	}
	if o.metrics != nil {
		o.metrics.ObserveStep(name, time.Since(start))
	}
	return r.value, r.err
}

// ValidateTarget accepts a non-empty, well-formed absolute URL with a host.
func ValidateTarget(raw string) (string, error) {
	target := strings.TrimSpace(raw)
	if target == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "target URL is required")
	}
	u, err := url.Parse(target)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInvalidInput, "target URL is malformed")
	}
	if !u.IsAbs() || u.Host == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "target URL must be absolute")
	}
	return target, nil
}
