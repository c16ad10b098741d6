package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	auditModels "complyscan/internal/audit/models"
	"complyscan/internal/audit/service"
	"complyscan/internal/audit/workflow"
	"complyscan/internal/events"
	"complyscan/internal/platform/httpserver"
	"complyscan/internal/platform/metrics"
	"complyscan/internal/platform/middleware"
	sessionModels "complyscan/internal/session/models"
	dErrors "complyscan/pkg/domain-errors"
	"complyscan/pkg/platform/httputil"
	"complyscan/pkg/requestcontext"
)

// SessionService signs subjects in and out.
type SessionService interface {
	SignIn(ctx context.Context, email, password string) (*sessionModels.Session, string, error)
	SignOut(ctx context.Context, sessionID string) error
	Register(ctx context.Context, reg sessionModels.Registration) (*sessionModels.Identity, error)
}

// AuditService is the per-session consent and workflow surface.
type AuditService interface {
	Submit(ctx context.Context, sessionID, targetURL string) (workflow.State, error)
	State(ctx context.Context, sessionID string) (workflow.State, error)
	ConsentStatus(ctx context.Context, sessionID string) (service.ConsentView, error)
	GrantConsent(ctx context.Context, sessionID string) (service.ConsentView, error)
	Events(ctx context.Context, sessionID string) ([]events.Event, error)
	History(ctx context.Context, sessionID string) ([]auditModels.AuditRecord, error)
	Forget(sessionID string)
}

// HealthCheck reports one dependency's health for GET /health.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Handler is the thin HTTP layer. It delegates to the session and audit
// services and only translates between JSON and domain calls.
type Handler struct {
	sessions  SessionService
	audits    AuditService
	validator middleware.JWTValidator
	checks    []HealthCheck
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func NewHandler(
	sessions SessionService,
	audits AuditService,
	validator middleware.JWTValidator,
	m *metrics.Metrics,
	logger *slog.Logger,
	checks ...HealthCheck,
) *Handler {
	return &Handler{
		sessions:  sessions,
		audits:    audits,
		validator: validator,
		checks:    checks,
		metrics:   m,
		logger:    logger,
	}
}

// NewRouter wires every public endpoint.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(h.logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Logger(h.logger))
	r.Use(chimw.Timeout(httpserver.HandlerTimeout))
	if h.metrics != nil {
		r.Use(middleware.LatencyMiddleware(h.metrics))
	}

	r.Get("/health", h.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	r.Post("/auth/login", h.handleLogin)
	r.Post("/auth/register", h.handleRegister)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.validator, h.logger))
		r.Post("/auth/logout", h.handleLogout)
		r.Get("/consent", h.handleGetConsent)
		r.Post("/consent", h.handleGrantConsent)
		r.Post("/audits", h.handleSubmitAudit)
		r.Get("/audits", h.handleAuditHistory)
		r.Get("/audits/state", h.handleAuditState)
		r.Get("/audits/events", h.handleAuditEvents)
	})
	return r
}

// sessionID reads what RequireAuth resolved; an empty id means the route was
// mounted without the middleware.
func (h *Handler) sessionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	ctx := r.Context()
	sessionID := requestcontext.SessionID(ctx)
	if sessionID == "" || middleware.GetSubjectID(ctx) == "" {
		h.logger.ErrorContext(ctx, "session missing from context despite auth middleware",
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return "", false
	}
	return sessionID, true
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	body := map[string]string{"status": "ok"}
	for _, c := range h.checks {
		if err := c.Check(r.Context()); err != nil {
			h.logger.WarnContext(r.Context(), "health check failed",
				"check", c.Name,
				"error", err,
			)
			body[c.Name] = err.Error()
			body["status"] = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		body[c.Name] = "ok"
	}
	httputil.WriteJSON(w, status, body)
}
