package summary

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"complyscan/internal/audit/models"
)

type NormalizerSuite struct {
	suite.Suite
}

func TestNormalizerSuite(t *testing.T) {
	suite.Run(t, new(NormalizerSuite))
}

func raw(score, violations, recommendations string) models.RawSummary {
	r := models.RawSummary{}
	if score != "" {
		r.Score = json.RawMessage(score)
	}
	if violations != "" {
		r.Violations = json.RawMessage(violations)
	}
	if recommendations != "" {
		r.Recommendations = json.RawMessage(recommendations)
	}
	return r
}

func (s *NormalizerSuite) TestEncodedViolationsDecode() {
	encoded, err := json.Marshal(`[{"article":"Art.6","severity":"high","description":"x"}]`)
	s.Require().NoError(err)

	got, anomalies := Normalize(raw("80", string(encoded), ""))

	s.Empty(anomalies)
	s.Equal([]models.Violation{{Article: "Art.6", Severity: models.SeverityHigh, Description: "x"}}, got.Violations)
}

func (s *NormalizerSuite) TestListFieldVariants() {
	cases := []struct {
		name          string
		field         string
		wantCount     int
		wantAnomalies int
	}{
		{name: "absent", field: "", wantCount: 0},
		{name: "null", field: "null", wantCount: 0},
		{name: "empty string", field: `""`, wantCount: 0},
		{name: "whitespace string", field: `"   "`, wantCount: 0},
		{name: "encoded empty array", field: `"[]"`, wantCount: 0},
		{name: "structured array", field: `[{"article":"Art.13","severity":"critical","description":"no policy"}]`, wantCount: 1},
		{name: "not json text", field: `"not json"`, wantCount: 0, wantAnomalies: 1},
		{name: "encoded object", field: `"{\"article\":\"Art.5\"}"`, wantCount: 0, wantAnomalies: 1},
		{name: "truncated encoded array", field: `"[{\"article\":"`, wantCount: 0, wantAnomalies: 1},
		{name: "number", field: `42`, wantCount: 0, wantAnomalies: 1},
		{name: "object", field: `{"article":"Art.5"}`, wantCount: 0, wantAnomalies: 1},
		{name: "non-object item dropped", field: `[{"article":"Art.7"}, "stray", 3]`, wantCount: 1, wantAnomalies: 2},
		{name: "mistyped member keeps item", field: `[{"article":6,"severity":"high","description":["x"]}]`, wantCount: 1, wantAnomalies: 1},
	}

	for _, tc := range cases {
		s.Run(tc.name, func() {
			got, anomalies := Normalize(raw("50", tc.field, tc.field))

			s.NotNil(got.Violations)
			s.NotNil(got.Recommendations)
			s.Len(got.Violations, tc.wantCount)
			s.Len(got.Recommendations, tc.wantCount)
			s.Len(anomalies, tc.wantAnomalies*2)
		})
	}
}

func (s *NormalizerSuite) TestItemMembersCoercedIndividually() {
	got, anomalies := Normalize(raw("30",
		`[{"article":6,"severity":"high","description":"lawful basis missing"},{"article":"Art.9","severity":true,"description":{"en":"x"}}]`,
		`[{"title":12.5,"priority":"HIGH","description":"  keep spacing  "}]`,
	))

	s.Require().Len(got.Violations, 2)
	s.Equal("6", got.Violations[0].Article)
	s.Equal(models.SeverityHigh, got.Violations[0].Severity)
	s.Equal("lawful basis missing", got.Violations[0].Description)
	s.Equal("Art.9", got.Violations[1].Article)
	s.Equal(models.SeverityMedium, got.Violations[1].Severity)
	s.Empty(got.Violations[1].Description)

	s.Require().Len(got.Recommendations, 1)
	s.Equal("12.5", got.Recommendations[0].Title)
	s.Equal(models.PriorityHigh, got.Recommendations[0].Priority)
	s.Equal("  keep spacing  ", got.Recommendations[0].Description)

	s.Require().Len(anomalies, 2)
	s.Equal(FieldViolations, anomalies[0].Field)
	s.Contains(anomalies[0].Reason, "item 1 severity")
	s.Contains(anomalies[1].Reason, "item 1 description")
}

func (s *NormalizerSuite) TestSeverityAndPriorityCollapseToMedium() {
	got, anomalies := Normalize(raw("10",
		`[{"article":"A","severity":"HIGH"},{"article":"B","severity":"urgent"},{"article":"C"}]`,
		`[{"title":"T","priority":"Low"},{"title":"U","priority":""}]`,
	))

	s.Empty(anomalies)
	s.Equal(models.SeverityHigh, got.Violations[0].Severity)
	s.Equal(models.SeverityMedium, got.Violations[1].Severity)
	s.Equal(models.SeverityMedium, got.Violations[2].Severity)
	s.Equal(models.PriorityLow, got.Recommendations[0].Priority)
	s.Equal(models.PriorityMedium, got.Recommendations[1].Priority)
}

func (s *NormalizerSuite) TestScoreCoercion() {
	cases := []struct {
		name        string
		score       string
		want        float64
		wantAnomaly bool
		wantStatus  models.ComplianceStatus
	}{
		{name: "missing", score: "", want: 0, wantStatus: models.StatusNonCompliant},
		{name: "null", score: "null", want: 0, wantStatus: models.StatusNonCompliant},
		{name: "number", score: "55", want: 55, wantStatus: models.StatusPartiallyCompliant},
		{name: "numeric string", score: `" 72.5 "`, want: 72.5, wantStatus: models.StatusCompliant},
		{name: "text", score: `"high"`, want: 0, wantAnomaly: true, wantStatus: models.StatusNonCompliant},
		{name: "boolean", score: "true", want: 0, wantAnomaly: true, wantStatus: models.StatusNonCompliant},
		{name: "nan string", score: `"NaN"`, want: 0, wantAnomaly: true, wantStatus: models.StatusNonCompliant},
	}

	for _, tc := range cases {
		s.Run(tc.name, func() {
			got, anomalies := Normalize(raw(tc.score, "", ""))
			s.Equal(tc.want, got.Score)
			s.Equal(tc.wantStatus, got.Status)
			if tc.wantAnomaly {
				s.Require().Len(anomalies, 1)
				s.Equal(FieldScore, anomalies[0].Field)
			} else {
				s.Empty(anomalies)
			}
		})
	}
}

func (s *NormalizerSuite) TestIdempotence() {
	first, _ := Normalize(models.RawSummary{
		AuditID:         "a1",
		Target:          "https://example.com",
		SummaryText:     "two findings",
		Score:           json.RawMessage(`"64"`),
		Violations:      json.RawMessage(`"[{\"article\":\"Art.6\",\"severity\":\"bogus\",\"description\":\"x\"}]"`),
		Recommendations: json.RawMessage(`[{"title":"Add banner","priority":"HIGH","description":"y"}]`),
	})

	again, anomalies := Normalize(reencode(s.T(), first))

	s.Empty(anomalies)
	s.Equal(first, again)
}

func reencode(t *testing.T, sum models.Summary) models.RawSummary {
	t.Helper()
	score, err := json.Marshal(sum.Score)
	require.NoError(t, err)
	violations, err := json.Marshal(sum.Violations)
	require.NoError(t, err)
	recommendations, err := json.Marshal(sum.Recommendations)
	require.NoError(t, err)
	return models.RawSummary{
		AuditID:         sum.AuditID,
		Target:          sum.Target,
		SummaryText:     sum.SummaryText,
		Score:           score,
		Violations:      violations,
		Recommendations: recommendations,
	}
}

func TestClassifyBoundaries(t *testing.T) {
	cases := []struct {
		score float64
		want  models.ComplianceStatus
	}{
		{100, models.StatusCompliant},
		{70, models.StatusCompliant},
		{69.999, models.StatusPartiallyCompliant},
		{40, models.StatusPartiallyCompliant},
		{39.999, models.StatusNonCompliant},
		{39, models.StatusNonCompliant},
		{0, models.StatusNonCompliant},
		{-5, models.StatusNonCompliant},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Classify(tc.score), "score %v", tc.score)
	}
}

func TestAnomalyString(t *testing.T) {
	a := Anomaly{Field: FieldViolations, Reason: "encoded value is not valid JSON"}
	assert.Equal(t, "violations: encoded value is not valid JSON", a.String())
}
