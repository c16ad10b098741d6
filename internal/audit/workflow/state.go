package workflow

import (
	"errors"

	"complyscan/internal/audit/models"
)

// Phase is a step of one workflow run. Only observable phases are ever
// exposed through State; the others are transient.
type Phase string

const (
	PhaseIdle            Phase = "idle"
	PhaseCheckingConsent Phase = "checking-consent"
	PhaseConsentMissing  Phase = "consent-required"
	PhaseConsentGranted  Phase = "consent-granted"
	PhaseCreating        Phase = "creating"
	PhaseRunning         Phase = "running"
	PhaseFetchingSummary Phase = "fetching-summary"
	PhaseNormalizing     Phase = "normalizing"
	PhaseReady           Phase = "ready"
	PhaseFailed          Phase = "failed"
)

// Observable reports whether the phase is surfaced to the presentation layer.
func (p Phase) Observable() bool {
	return p != PhaseConsentGranted && p != PhaseNormalizing
}

// Terminal reports whether a run ends in p.
func (p Phase) Terminal() bool {
	return p == PhaseReady || p == PhaseFailed
}

// Resting reports whether a new submit is accepted in p.
func (p Phase) Resting() bool {
	return p == PhaseIdle || p == PhaseConsentMissing || p.Terminal()
}

// FailureKind classifies why a run failed.
type FailureKind string

const (
	FailureInvalidInput         FailureKind = "InvalidInput"
	FailureConsentRequestFailed FailureKind = "ConsentRequestFailed"
	FailureCreateError          FailureKind = "CreateError"
	FailureRunError             FailureKind = "RunError"
	FailureSummaryError         FailureKind = "SummaryError"
)

var fallbackMessages = map[FailureKind]string{
	FailureInvalidInput:         "Please enter a valid absolute URL, for example https://example.com.",
	FailureConsentRequestFailed: "We could not record your consent. Please try again.",
	FailureCreateError:          "The audit could not be created. Please try again.",
	FailureRunError:             "The audit could not be run. Please try again.",
	FailureSummaryError:         "The audit results could not be retrieved. Please try again.",
}

// FallbackMessage is shown when the collaborator supplied no message.
func (k FailureKind) FallbackMessage() string {
	return fallbackMessages[k]
}

// Failure is the terminal error of a run. Message is always user-presentable.
type Failure struct {
	Kind    FailureKind `json:"kind"`
	Message string      `json:"message"`
	Err     error       `json:"-"`
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return string(f.Kind) + ": " + f.Message + ": " + f.Err.Error()
	}
	return string(f.Kind) + ": " + f.Message
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// ConsentCallToAction is rendered in the consent-required state.
const ConsentCallToAction = "An audit analyzes your website on your behalf. Please grant consent for the audit purpose to continue."

// State is a read-only snapshot of a workflow.
type State struct {
	Phase        Phase           `json:"state"`
	RunID        string          `json:"runId,omitempty"`
	TargetURL    string          `json:"targetUrl,omitempty"`
	AuditID      string          `json:"auditId,omitempty"`
	Summary      *models.Summary `json:"summary,omitempty"`
	Failure      *Failure        `json:"failure,omitempty"`
	CallToAction string          `json:"call_to_action,omitempty"`
}

var (
	// ErrRunInProgress rejects a submit while a run has not reached a resting state.
	ErrRunInProgress = errors.New("an audit run is already in progress")
	// ErrNoPendingConsent rejects a consent resume outside consent-required.
	ErrNoPendingConsent = errors.New("no run is waiting for consent")
)
