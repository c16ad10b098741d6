package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"complyscan/internal/audit/models"
	"complyscan/internal/audit/workflow"
)

func fakeRemote(t *testing.T) *httptest.Server {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u1"}).SignedString([]byte("k"))
	require.NoError(t, err)

	write := func(w http.ResponseWriter, status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		write(w, http.StatusOK, map[string]string{"access_token": token})
	})
	mux.HandleFunc("GET /api/users/u1", func(w http.ResponseWriter, r *http.Request) {
		write(w, http.StatusOK, map[string]any{"id": "u1", "username": "ada", "email": "ada@example.com"})
	})
	mux.HandleFunc("GET /api/consents/u1", func(w http.ResponseWriter, r *http.Request) {
		write(w, http.StatusOK, []any{})
	})
	mux.HandleFunc("POST /api/consents", func(w http.ResponseWriter, r *http.Request) {
		write(w, http.StatusCreated, map[string]any{
			"id": "c1", "userid": "u1", "consenttype": "audit", "is_active": true,
			"created_at": "2025-05-01T09:00:00Z",
		})
	})
	mux.HandleFunc("POST /api/audits", func(w http.ResponseWriter, r *http.Request) {
		write(w, http.StatusCreated, map[string]any{"audit_id": 7})
	})
	mux.HandleFunc("POST /api/audits/7/run", func(w http.ResponseWriter, r *http.Request) {
		write(w, http.StatusOK, map[string]string{"status": "completed"})
	})
	mux.HandleFunc("GET /api/audits/7/summary", func(w http.ResponseWriter, r *http.Request) {
		write(w, http.StatusOK, map[string]any{
			"score":           55,
			"violations":      `[{"article":"Art. 13","severity":"high","description":"No privacy notice"}]`,
			"recommendations": []any{},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCommand(strings.NewReader(stdin), &out)
	cmd.SetArgs(args)
	cmd.SetErr(&bytes.Buffer{})
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestAuditctlGrantsConsentAndPrintsSummary(t *testing.T) {
	srv := fakeRemote(t)

	out, err := execute(t, "y\n",
		"--remote", srv.URL+"/api",
		"--email", "ada@example.com",
		"--password", "pw",
		"https://example.com",
	)
	require.NoError(t, err)

	assert.Contains(t, out, "signed in as ada")
	assert.Contains(t, out, "[consent-required]")
	assert.Contains(t, out, "[ready] audit 7")
	assert.Contains(t, out, "score 55 (partially compliant)")
	assert.Contains(t, out, "violation [high] Art. 13: No privacy notice")
	assert.Less(t, strings.Index(out, "[creating]"), strings.Index(out, "[running]"))
}

func TestAuditctlDeclinedConsent(t *testing.T) {
	srv := fakeRemote(t)

	out, err := execute(t, "n\n",
		"--remote", srv.URL+"/api",
		"--email", "ada@example.com",
		"--password", "pw",
		"https://example.com",
	)
	require.NoError(t, err)
	assert.Contains(t, out, "consent not granted")
	assert.NotContains(t, out, "[creating]")
}

func TestAuditctlInvalidURL(t *testing.T) {
	srv := fakeRemote(t)

	out, err := execute(t, "",
		"--remote", srv.URL+"/api",
		"--email", "ada@example.com",
		"--password", "pw",
		"not a url",
	)
	assert.ErrorIs(t, err, errRunFailed)
	assert.Contains(t, out, "[failed] InvalidInput")
}

func TestRenderState(t *testing.T) {
	var out bytes.Buffer
	renderState(&out, workflow.State{
		Phase:   workflow.PhaseReady,
		AuditID: "a1",
		Summary: &models.Summary{
			Score:           90,
			Status:          models.StatusCompliant,
			Violations:      []models.Violation{},
			Recommendations: []models.Recommendation{{Title: "Add cookie banner", Priority: models.PriorityLow}},
		},
	})
	assert.Equal(t, "[ready] audit a1\n  score 90 (compliant)\n  recommendation [low] Add cookie banner\n", out.String())
}

func TestRenderStateKeepsScorePrecision(t *testing.T) {
	var out bytes.Buffer
	renderState(&out, workflow.State{
		Phase:   workflow.PhaseReady,
		AuditID: "a2",
		Summary: &models.Summary{
			Score:           69.999,
			Status:          models.StatusPartiallyCompliant,
			Violations:      []models.Violation{},
			Recommendations: []models.Recommendation{},
		},
	})
	assert.Contains(t, out.String(), "score 69.999 (partially compliant)")
}
