package remote

import (
	"context"
	"net/http"

	"complyscan/internal/audit/models"
)

const (
	opCreateAudit = "audits.create"
	opRunAudit    = "audits.run"
	opSummary     = "audits.summary"
	opListAudits  = "audits.list"
)

// Create registers an audit and returns its handle. Fields other than the id
// are advisory and dropped.
func (b *Bound) Create(ctx context.Context, req models.AuditRequest) (*models.AuditHandle, error) {
	body, err := b.client.call(ctx, opCreateAudit, http.MethodPost, "audits", b.credential, req)
	if err != nil {
		return nil, err
	}
	handle, ok := decodeAuditHandle(body)
	if !ok {
		return nil, badData(opCreateAudit, "audit response carried no audit id")
	}
	return &handle, nil
}

// Run executes a created audit.
func (b *Bound) Run(ctx context.Context, auditID string) (*models.RunStatus, error) {
	body, err := b.client.call(ctx, opRunAudit, http.MethodPost, "audits/"+escape(auditID)+"/run", b.credential, nil)
	if err != nil {
		return nil, err
	}
	status := decodeRunStatus(body)
	return &status, nil
}

// Summary fetches the raw, untrusted summary of an audit.
func (b *Bound) Summary(ctx context.Context, auditID string) (*models.RawSummary, error) {
	body, err := b.client.call(ctx, opSummary, http.MethodGet, "audits/"+escape(auditID)+"/summary", b.credential, nil)
	if err != nil {
		return nil, err
	}
	raw, ok := decodeRawSummary(body)
	if !ok {
		return nil, badData(opSummary, "malformed summary response")
	}
	if raw.AuditID == "" {
		raw.AuditID = auditID
	}
	return &raw, nil
}

// ListAudits returns the subject's audit history as the service reports it.
func (b *Bound) ListAudits(ctx context.Context, subjectID string) ([]models.AuditRecord, error) {
	body, err := b.client.call(ctx, opListAudits, http.MethodGet, "users/"+escape(subjectID)+"/audits", b.credential, nil)
	if err != nil {
		return nil, err
	}
	records, ok := decodeAuditList(body)
	if !ok {
		return nil, badData(opListAudits, "malformed audit list")
	}
	return records, nil
}
