package workflow

import (
	"context"

	"complyscan/internal/audit/models"
	consentModels "complyscan/internal/consent/models"
)

// AuditService is the remote audit collaborator, bound to one session.
type AuditService interface {
	Create(ctx context.Context, req models.AuditRequest) (*models.AuditHandle, error)
	Run(ctx context.Context, auditID string) (*models.RunStatus, error)
	Summary(ctx context.Context, auditID string) (*models.RawSummary, error)
}

// ConsentGate is satisfied by *gate.Gate.
type ConsentGate interface {
	CheckConsent(ctx context.Context, subjectID string) *consentModels.ConsentRecord
	RequestConsent(ctx context.Context, subjectID, consentText string) (*consentModels.ConsentRecord, error)
}

type consentRecord = consentModels.ConsentRecord
