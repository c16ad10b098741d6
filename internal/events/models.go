package events

import (
	"time"

	"github.com/google/uuid"
)

// Action names a decision recorded in the compliance trail.
type Action string

const (
	ActionConsentChecked       Action = "consent_checked"
	ActionConsentGranted       Action = "consent_granted"
	ActionConsentRequestFailed Action = "consent_request_failed"
	ActionAuditSubmitted       Action = "audit_submitted"
	ActionAuditCreated         Action = "audit_created"
	ActionAuditReady           Action = "audit_ready"
	ActionAuditFailed          Action = "audit_failed"
)

// Event is emitted from the consent gate and the workflow to capture who asked
// for what under which consent. Keep it transport-agnostic so stores can fan out.
type Event struct {
	ID        uuid.UUID `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	SubjectID string    `json:"subjectId"`
	Action    Action    `json:"action"`
	Purpose   string    `json:"purpose,omitempty"`
	ConsentID string    `json:"consentId,omitempty"`
	Target    string    `json:"target,omitempty"`
	AuditID   string    `json:"auditId,omitempty"`
	Decision  string    `json:"decision,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	RequestID string    `json:"requestId,omitempty"`
}
