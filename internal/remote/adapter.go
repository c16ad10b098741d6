package remote

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	auditModels "complyscan/internal/audit/models"
	consentModels "complyscan/internal/consent/models"
	sessionModels "complyscan/internal/session/models"
	"complyscan/pkg/domain"
)

// The remote service has shipped several payload revisions with different
// field names. Every alias is resolved here so callers only see the
// canonical models.
var (
	consentIDKeys      = []string{"id", "consentId", "consent_id"}
	subjectIDKeys      = []string{"subjectId", "subject_id", "user_id", "userId", "userid"}
	purposeKeys        = []string{"purpose", "consenttype", "consentType", "consent_type"}
	grantedAtKeys      = []string{"grantedAt", "granted_at", "created_at", "createdAt", "timestamp", "date"}
	activeKeys         = []string{"active", "is_active", "isActive"}
	auditIDKeys        = []string{"auditId", "audit_id", "id"}
	targetKeys         = []string{"target", "targetUrl", "target_url", "site", "url", "site_url"}
	scoreKeys          = []string{"score", "compliance_score", "complianceScore"}
	violationKeys      = []string{"violations"}
	recommendationKeys = []string{"recommendations"}
	summaryTextKeys    = []string{"summaryText", "summary_text", "summary"}
	statusKeys         = []string{"status", "state"}
	accessTokenKeys    = []string{"access_token", "accessToken", "token"}
	displayNameKeys    = []string{"displayName", "display_name", "name", "username", "fullname"}
	emailKeys          = []string{"email", "mail"}
	messageKeys        = []string{"message", "error", "description", "detail", "error_description"}
)

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC1123,
	time.RFC1123Z,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

type fields map[string]json.RawMessage

func decodeFields(raw []byte) (fields, bool) {
	var f fields
	if err := json.Unmarshal(raw, &f); err != nil || f == nil {
		return nil, false
	}
	return f, true
}

// first returns the first alias that is present and not null.
func (f fields) first(keys ...string) (json.RawMessage, bool) {
	for _, key := range keys {
		raw, ok := f[key]
		if !ok {
			continue
		}
		trimmed := bytes.TrimSpace(raw)
		if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
			continue
		}
		return trimmed, true
	}
	return nil, false
}

// str reads the first alias holding a non-empty string; numeric ids are
// rendered as their JSON text.
func (f fields) str(keys ...string) string {
	for _, key := range keys {
		raw, ok := f.first(key)
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
			continue
		}
		var n json.Number
		if err := json.Unmarshal(raw, &n); err == nil {
			return n.String()
		}
	}
	return ""
}

func (f fields) boolean(keys ...string) bool {
	raw, ok := f.first(keys...)
	if !ok {
		return false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n != 0
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		parsed, err := strconv.ParseBool(strings.TrimSpace(s))
		return err == nil && parsed
	}
	return false
}

// number reads a JSON number or a numeric string.
func (f fields) number(keys ...string) (float64, bool) {
	raw, ok := f.first(keys...)
	if !ok {
		return 0, false
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return n, true
		}
	}
	return 0, false
}

func (f fields) time(keys ...string) time.Time {
	raw, ok := f.first(keys...)
	if !ok {
		return time.Time{}
	}
	var epoch float64
	if err := json.Unmarshal(raw, &epoch); err == nil {
		sec := int64(epoch)
		return time.Unix(sec, int64((epoch-float64(sec))*1e9)).UTC()
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, strings.TrimSpace(s)); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func (f fields) object(keys ...string) (fields, bool) {
	raw, ok := f.first(keys...)
	if !ok {
		return nil, false
	}
	return decodeFields(raw)
}

// decodeConsentRecord validates the purpose at the boundary. An absent purpose
// is left empty for the caller to fill; an unsupported one is an error.
func decodeConsentRecord(f fields) (consentModels.ConsentRecord, error) {
	rec := consentModels.ConsentRecord{
		ID:        f.str(consentIDKeys...),
		SubjectID: f.str(subjectIDKeys...),
		GrantedAt: f.time(grantedAtKeys...),
		Active:    f.boolean(activeKeys...),
	}
	if raw := f.str(purposeKeys...); raw != "" {
		purpose, err := domain.ParseConsentPurpose(raw)
		if err != nil {
			return rec, fmt.Errorf("consent %q purpose %q: %w", rec.ID, raw, err)
		}
		rec.Purpose = purpose
	}
	return rec, nil
}

// decodeConsentList accepts {"consents": [...]}, {"data": [...]} or a bare array.
// Items that are not objects or carry an unsupported purpose are skipped and
// returned as errors for the caller to log.
func decodeConsentList(body []byte) ([]consentModels.ConsentRecord, []error, bool) {
	items, ok := decodeArray(body, "consents", "data", "items")
	if !ok {
		return nil, nil, false
	}
	records := make([]consentModels.ConsentRecord, 0, len(items))
	var skipped []error
	for i, item := range items {
		f, ok := decodeFields(item)
		if !ok {
			skipped = append(skipped, fmt.Errorf("item %d is not an object", i))
			continue
		}
		rec, err := decodeConsentRecord(f)
		if err != nil {
			skipped = append(skipped, err)
			continue
		}
		records = append(records, rec)
	}
	return records, skipped, true
}

// decodeConsent accepts {"consent": {...}} or the record itself.
func decodeConsent(body []byte) (consentModels.ConsentRecord, error) {
	f, ok := decodeFields(body)
	if !ok {
		return consentModels.ConsentRecord{}, errors.New("consent response is not an object")
	}
	if inner, ok := f.object("consent", "data"); ok {
		f = inner
	}
	rec, err := decodeConsentRecord(f)
	if err != nil {
		return rec, err
	}
	if rec.ID == "" {
		return rec, errors.New("consent response carried no record id")
	}
	return rec, nil
}

// decodeAuditHandle accepts {"auditId": ...}, {"audit_id": ...}, {"id": ...}
// and the same keys nested under "audit".
func decodeAuditHandle(body []byte) (auditModels.AuditHandle, bool) {
	f, ok := decodeFields(body)
	if !ok {
		return auditModels.AuditHandle{}, false
	}
	if id := f.str("auditId", "audit_id"); id != "" {
		return auditModels.AuditHandle{AuditID: id}, true
	}
	if inner, ok := f.object("audit", "data"); ok {
		if id := inner.str(auditIDKeys...); id != "" {
			return auditModels.AuditHandle{AuditID: id}, true
		}
	}
	id := f.str("id")
	return auditModels.AuditHandle{AuditID: id}, id != ""
}

// decodeAuditList accepts {"audits": [...]}, {"data": [...]} or a bare array.
// Items without an id are skipped.
func decodeAuditList(body []byte) ([]auditModels.AuditRecord, bool) {
	items, ok := decodeArray(body, "audits", "data", "items")
	if !ok {
		return nil, false
	}
	records := make([]auditModels.AuditRecord, 0, len(items))
	for _, item := range items {
		f, ok := decodeFields(item)
		if !ok {
			continue
		}
		rec := auditModels.AuditRecord{
			ID:        f.str(auditIDKeys...),
			Target:    f.str(targetKeys...),
			Status:    f.str(statusKeys...),
			CreatedAt: f.time("createdAt", "created_at", "date"),
		}
		if rec.ID == "" {
			continue
		}
		if score, ok := f.number(scoreKeys...); ok {
			rec.Score = &score
		}
		records = append(records, rec)
	}
	return records, true
}

func decodeRunStatus(body []byte) auditModels.RunStatus {
	f, ok := decodeFields(body)
	if !ok {
		return auditModels.RunStatus{}
	}
	return auditModels.RunStatus{Status: f.str(statusKeys...)}
}

// decodeRawSummary maps aliases only; score and the two lists keep their raw
// JSON for the normalizer. A payload wrapped in "summary" is unwrapped when
// that key holds an object.
func decodeRawSummary(body []byte) (auditModels.RawSummary, bool) {
	f, ok := decodeFields(body)
	if !ok {
		return auditModels.RawSummary{}, false
	}
	if inner, ok := f.object("summary", "data"); ok {
		f = inner
	}
	raw := auditModels.RawSummary{
		AuditID:     f.str(auditIDKeys...),
		Target:      f.str(targetKeys...),
		SummaryText: f.str(summaryTextKeys...),
	}
	raw.Score, _ = f.first(scoreKeys...)
	raw.Violations, _ = f.first(violationKeys...)
	raw.Recommendations, _ = f.first(recommendationKeys...)
	return raw, true
}

func decodeLogin(body []byte) (sessionModels.LoginResult, bool) {
	f, ok := decodeFields(body)
	if !ok {
		return sessionModels.LoginResult{}, false
	}
	res := sessionModels.LoginResult{AccessToken: f.str(accessTokenKeys...)}
	if user, ok := f.object("user", "userprofile", "profile"); ok {
		res.Identity = decodeIdentity(user)
	}
	return res, res.AccessToken != ""
}

func decodeIdentity(f fields) sessionModels.Identity {
	return sessionModels.Identity{
		ID:          f.str("id", "userid", "user_id", "userId"),
		DisplayName: f.str(displayNameKeys...),
		Email:       f.str(emailKeys...),
	}
}

func decodeProfile(body []byte) (sessionModels.Identity, bool) {
	f, ok := decodeFields(body)
	if !ok {
		return sessionModels.Identity{}, false
	}
	if inner, ok := f.object("user", "userprofile", "profile"); ok {
		f = inner
	}
	return decodeIdentity(f), true
}

// decodeArray returns the elements of a bare array or of the first wrapper key
// holding one.
func decodeArray(body []byte, wrappers ...string) ([]json.RawMessage, bool) {
	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err == nil {
		return items, true
	}
	f, ok := decodeFields(body)
	if !ok {
		return nil, false
	}
	raw, ok := f.first(wrappers...)
	if !ok {
		return []json.RawMessage{}, true
	}
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, false
	}
	return items, true
}

// extractMessage finds the human-readable message in an error payload.
func extractMessage(body []byte) string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		return strings.TrimSpace(s)
	}
	f, ok := decodeFields(trimmed)
	if !ok {
		return ""
	}
	if msg := f.str(messageKeys...); msg != "" {
		return msg
	}
	if inner, ok := f.object("error"); ok {
		return inner.str(messageKeys...)
	}
	return ""
}
