// Package summary turns untrusted audit summary payloads into the canonical
// display shape. Normalization is total: malformed sub-fields degrade to empty
// collections and are reported as anomalies instead of errors.
package summary

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"complyscan/internal/audit/models"
)

// Score cut points. Comparisons are inclusive on the lower bound.
const (
	CompliantThreshold          = 70.0
	PartiallyCompliantThreshold = 40.0
)

const (
	FieldScore           = "score"
	FieldViolations      = "violations"
	FieldRecommendations = "recommendations"
)

// Anomaly is a non-fatal inconsistency found while normalizing one field.
type Anomaly struct {
	Field  string
	Reason string
	Err    error
}

func (a Anomaly) String() string {
	if a.Err != nil {
		return fmt.Sprintf("%s: %s: %v", a.Field, a.Reason, a.Err)
	}
	return a.Field + ": " + a.Reason
}

// Classify maps a score onto a compliance status.
func Classify(score float64) models.ComplianceStatus {
	switch {
	case score >= CompliantThreshold:
		return models.StatusCompliant
	case score >= PartiallyCompliantThreshold:
		return models.StatusPartiallyCompliant
	default:
		return models.StatusNonCompliant
	}
}

// Normalize resolves every field of raw into its canonical form.
func Normalize(raw models.RawSummary) (models.Summary, []Anomaly) {
	var anomalies []Anomaly

	score, scoreAnomaly := decodeScore(raw.Score)
	if scoreAnomaly != nil {
		anomalies = append(anomalies, *scoreAnomaly)
	}

	violationItems, listAnomalies := decodeList(FieldViolations, raw.Violations)
	anomalies = append(anomalies, listAnomalies...)
	violations := make([]models.Violation, 0, len(violationItems))
	for i, item := range violationItems {
		f, err := decodeItem(item)
		if err != nil {
			anomalies = append(anomalies, Anomaly{Field: FieldViolations, Reason: fmt.Sprintf("item %d dropped", i), Err: err})
			continue
		}
		violations = append(violations, models.Violation{
			Article:     f.text(&anomalies, FieldViolations, i, "article"),
			Severity:    ParseSeverity(f.text(&anomalies, FieldViolations, i, "severity")),
			Description: f.text(&anomalies, FieldViolations, i, "description"),
		})
	}

	recommendationItems, listAnomalies := decodeList(FieldRecommendations, raw.Recommendations)
	anomalies = append(anomalies, listAnomalies...)
	recommendations := make([]models.Recommendation, 0, len(recommendationItems))
	for i, item := range recommendationItems {
		f, err := decodeItem(item)
		if err != nil {
			anomalies = append(anomalies, Anomaly{Field: FieldRecommendations, Reason: fmt.Sprintf("item %d dropped", i), Err: err})
			continue
		}
		recommendations = append(recommendations, models.Recommendation{
			Title:       f.text(&anomalies, FieldRecommendations, i, "title"),
			Priority:    ParsePriority(f.text(&anomalies, FieldRecommendations, i, "priority")),
			Description: f.text(&anomalies, FieldRecommendations, i, "description"),
		})
	}

	return models.Summary{
		AuditID:         raw.AuditID,
		Target:          raw.Target,
		Score:           score,
		Status:          Classify(score),
		Violations:      violations,
		Recommendations: recommendations,
		SummaryText:     raw.SummaryText,
	}, anomalies
}

// listKind is the variant a list field arrived as.
type listKind int

const (
	listEmpty listKind = iota
	listArray
	listEncoded
	listInvalid
)

func classifyList(raw json.RawMessage) listKind {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return listEmpty
	}
	switch trimmed[0] {
	case '[':
		return listArray
	case '"':
		return listEncoded
	default:
		return listInvalid
	}
}

func decodeList(field string, raw json.RawMessage) ([]json.RawMessage, []Anomaly) {
	switch classifyList(raw) {
	case listEmpty:
		return nil, nil
	case listArray:
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, []Anomaly{{Field: field, Reason: "malformed array", Err: err}}
		}
		return items, nil
	case listEncoded:
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return nil, []Anomaly{{Field: field, Reason: "malformed string", Err: err}}
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return nil, nil
		}
		if classifyList(json.RawMessage(text)) != listArray {
			if !json.Valid([]byte(text)) {
				return nil, []Anomaly{{Field: field, Reason: "encoded value is not valid JSON"}}
			}
			return nil, []Anomaly{{Field: field, Reason: "encoded value is not an array"}}
		}
		var items []json.RawMessage
		if err := json.Unmarshal([]byte(text), &items); err != nil {
			return nil, []Anomaly{{Field: field, Reason: "encoded value is not valid JSON", Err: err}}
		}
		return items, nil
	default:
		return nil, []Anomaly{{Field: field, Reason: "unexpected JSON type"}}
	}
}

func decodeScore(raw json.RawMessage) (float64, *Anomaly) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return 0, nil
	}

	var score float64
	switch trimmed[0] {
	case '"':
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return 0, &Anomaly{Field: FieldScore, Reason: "malformed string", Err: err}
		}
		parsed, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil {
			return 0, &Anomaly{Field: FieldScore, Reason: "not numeric", Err: err}
		}
		score = parsed
	default:
		if err := json.Unmarshal(trimmed, &score); err != nil {
			return 0, &Anomaly{Field: FieldScore, Reason: "not numeric", Err: err}
		}
	}

	if math.IsNaN(score) || math.IsInf(score, 0) {
		return 0, &Anomaly{Field: FieldScore, Reason: "not finite"}
	}
	return score, nil
}

// itemFields holds one list item's members undecoded so each is coerced on
// its own and one mistyped member never costs the whole item.
type itemFields map[string]json.RawMessage

func decodeItem(raw json.RawMessage) (itemFields, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("expected object")
	}
	var f itemFields
	if err := json.Unmarshal(trimmed, &f); err != nil {
		return nil, err
	}
	return f, nil
}

// text returns key as a string. Strings are kept as sent, numbers become
// their JSON text, and null or absent members are empty. Any other type is
// empty and recorded as an anomaly.
func (f itemFields) text(anomalies *[]Anomaly, field string, index int, key string) string {
	raw := bytes.TrimSpace(f[key])
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var n json.Number
		if err := json.Unmarshal(raw, &n); err == nil {
			return n.String()
		}
	}
	*anomalies = append(*anomalies, Anomaly{
		Field:  field,
		Reason: fmt.Sprintf("item %d %s: unexpected JSON type", index, key),
	})
	return ""
}

// ParseSeverity lower-cases s; unknown or empty values collapse to medium.
func ParseSeverity(s string) models.Severity {
	switch sev := models.Severity(strings.ToLower(strings.TrimSpace(s))); sev {
	case models.SeverityCritical, models.SeverityHigh, models.SeverityMedium, models.SeverityLow:
		return sev
	default:
		return models.SeverityMedium
	}
}

// ParsePriority lower-cases s; unknown or empty values collapse to medium.
func ParsePriority(s string) models.Priority {
	switch p := models.Priority(strings.ToLower(strings.TrimSpace(s))); p {
	case models.PriorityCritical, models.PriorityHigh, models.PriorityMedium, models.PriorityLow:
		return p
	default:
		return models.PriorityMedium
	}
}
