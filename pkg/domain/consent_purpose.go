package domain

import (
	"strings"

	dErrors "complyscan/pkg/domain-errors"
)

// ConsentPurpose is a domain value that identifies why data is processed.
// Invariant: the value must be one of the supported consent purposes; distinct
// purposes require distinct consent records.
//
// Usage: construct via ParseConsentPurpose at trust boundaries to enforce the
// allowlist; direct casting bypasses validation.
type ConsentPurpose string

// ConsentPurposeAudit authorizes the automated GDPR analysis of a website.
const ConsentPurposeAudit ConsentPurpose = "audit"

var validConsentPurposes = map[ConsentPurpose]bool{
	ConsentPurposeAudit: true,
}

// ParseConsentPurpose constructs a ConsentPurpose from external input. Case
// and surrounding whitespace are ignored.
//
// Errors: returns CodeInvalidInput when the value is empty or unsupported.
func ParseConsentPurpose(s string) (ConsentPurpose, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "purpose cannot be empty")
	}
	p := ConsentPurpose(s)
	if !p.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid purpose")
	}
	return p, nil
}

// IsValid checks if the consent purpose is one of the supported enum values.
func (p ConsentPurpose) IsValid() bool {
	return validConsentPurposes[p]
}

func (p ConsentPurpose) String() string {
	return string(p)
}
