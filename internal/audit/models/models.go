package models

import (
	"encoding/json"
	"time"
)

// AuditRequest asks the audit service to analyze one target URL. It is only
// constructed once an active consent record has been observed for the subject.
type AuditRequest struct {
	TargetURL string `json:"targetUrl"`
	SubjectID string `json:"subjectId"`
	ConsentID string `json:"consentId"`
}

// AuditHandle is the only required output of audit creation.
type AuditHandle struct {
	AuditID string `json:"auditId"`
}

// RunStatus is the acknowledgement returned when an audit is executed.
type RunStatus struct {
	Status string `json:"status"`
}

// AuditRecord is one entry of a subject's audit history. Score is nil until
// the audit has been scored.
type AuditRecord struct {
	ID        string    `json:"id"`
	Target    string    `json:"target,omitempty"`
	Status    string    `json:"status,omitempty"`
	Score     *float64  `json:"score,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
}

// Severity ranks a violation.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Priority ranks a recommendation.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// Violation is a compliance finding tied to a regulatory article.
type Violation struct {
	Article     string   `json:"article"`
	Severity    Severity `json:"severity"`
	Description string   `json:"description"`
}

// Recommendation is a suggested remediation.
type Recommendation struct {
	Title       string   `json:"title"`
	Priority    Priority `json:"priority"`
	Description string   `json:"description"`
}

// ComplianceStatus is derived from the score.
type ComplianceStatus string

const (
	StatusCompliant          ComplianceStatus = "compliant"
	StatusPartiallyCompliant ComplianceStatus = "partially compliant"
	StatusNonCompliant       ComplianceStatus = "non-compliant"
)

// RawSummary is the untrusted summary payload after alias mapping. Score,
// Violations and Recommendations keep their original JSON so the normalizer
// can resolve string-or-array encodings in one place.
type RawSummary struct {
	AuditID         string
	Target          string
	SummaryText     string
	Score           json.RawMessage
	Violations      json.RawMessage
	Recommendations json.RawMessage
}

// Summary is the canonical, display-ready result of an audit. Violations and
// Recommendations are never nil after normalization.
type Summary struct {
	AuditID         string           `json:"auditId,omitempty"`
	Target          string           `json:"target,omitempty"`
	Score           float64          `json:"score"`
	Status          ComplianceStatus `json:"status"`
	Violations      []Violation      `json:"violations"`
	Recommendations []Recommendation `json:"recommendations"`
	SummaryText     string           `json:"summaryText,omitempty"`
}
