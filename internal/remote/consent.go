package remote

import (
	"context"
	"net/http"

	"complyscan/internal/consent/models"
)

const (
	opListConsents  = "consents.list"
	opRecordConsent = "consents.create"
)

type grantPayload struct {
	SubjectID   string `json:"subjectId"`
	Purpose     string `json:"purpose"`
	ConsentText string `json:"consentText"`
}

// ListConsents returns every record the service holds for subjectID.
func (b *Bound) ListConsents(ctx context.Context, subjectID string) ([]models.ConsentRecord, error) {
	body, err := b.client.call(ctx, opListConsents, http.MethodGet, "consents/"+escape(subjectID), b.credential, nil)
	if err != nil {
		return nil, err
	}
	records, skipped, ok := decodeConsentList(body)
	if !ok {
		return nil, badData(opListConsents, "malformed consent list")
	}
	for _, err := range skipped {
		b.client.logger.WarnContext(ctx, "skipped consent record",
			"op", opListConsents,
			"error", err,
		)
	}
	for i := range records {
		if records[i].SubjectID == "" {
			records[i].SubjectID = subjectID
		}
	}
	return records, nil
}

// RecordConsent submits a new consent record and returns what the service stored.
func (b *Bound) RecordConsent(ctx context.Context, req models.GrantRequest) (*models.ConsentRecord, error) {
	body, err := b.client.call(ctx, opRecordConsent, http.MethodPost, "consents", b.credential, grantPayload{
		SubjectID:   req.SubjectID,
		Purpose:     req.Purpose.String(),
		ConsentText: req.ConsentText,
	})
	if err != nil {
		return nil, err
	}
	rec, err := decodeConsent(body)
	if err != nil {
		return nil, badData(opRecordConsent, err.Error())
	}
	if rec.SubjectID == "" {
		rec.SubjectID = req.SubjectID
	}
	if rec.Purpose == "" {
		rec.Purpose = req.Purpose
	}
	return &rec, nil
}
