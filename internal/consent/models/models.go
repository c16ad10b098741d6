package models

import (
	"time"

	"complyscan/pkg/domain"
)

// ConsentRecord is a subject's decision for one purpose as reported by the
// consent service.
type ConsentRecord struct {
	ID        string                `json:"id"`
	SubjectID string                `json:"subjectId"`
	Purpose   domain.ConsentPurpose `json:"purpose"`
	GrantedAt time.Time             `json:"grantedAt"`
	Active    bool                  `json:"active"`
}

// GrantRequest submits a new consent record with the text being agreed to.
type GrantRequest struct {
	SubjectID   string                `json:"subjectId"`
	Purpose     domain.ConsentPurpose `json:"purpose"`
	ConsentText string                `json:"consentText"`
}

// Matches reports whether the record authorizes purpose right now.
func (c ConsentRecord) Matches(purpose domain.ConsentPurpose) bool {
	return c.Active && c.Purpose == purpose
}

// SelectActive returns the most recently granted active record for purpose,
// plus how many other active records were treated as stale. Ties on GrantedAt
// are broken by the greater ID so the choice is deterministic.
func SelectActive(records []ConsentRecord, purpose domain.ConsentPurpose) (*ConsentRecord, int) {
	var selected *ConsentRecord
	matches := 0
	for i := range records {
		rec := records[i]
		if !rec.Matches(purpose) {
			continue
		}
		matches++
		if selected == nil || newer(rec, *selected) {
			selected = &rec
		}
	}
	if selected == nil {
		return nil, 0
	}
	return selected, matches - 1
}

func newer(a, b ConsentRecord) bool {
	if a.GrantedAt.Equal(b.GrantedAt) {
		return a.ID > b.ID
	}
	return a.GrantedAt.After(b.GrantedAt)
}
