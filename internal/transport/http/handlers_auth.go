package httptransport

import (
	"encoding/json"
	"net/http"
	"time"

	sessionModels "complyscan/internal/session/models"
	dErrors "complyscan/pkg/domain-errors"
	"complyscan/pkg/platform/httputil"
	"complyscan/pkg/requestcontext"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse never carries the remote credential.
type LoginResponse struct {
	SessionToken string                 `json:"session_token"`
	ExpiresAt    time.Time              `json:"expires_at"`
	Identity     sessionModels.Identity `json:"identity"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid login request",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	sess, token, err := h.sessions.SignIn(ctx, req.Email, req.Password)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	identity := sess.Identity
	identity.Credential = ""
	httputil.WriteJSON(w, http.StatusOK, LoginResponse{
		SessionToken: token,
		ExpiresAt:    sess.ExpiresAt.UTC(),
		Identity:     identity,
	})
}

type registerResponse struct {
	Identity sessionModels.Identity `json:"identity"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req sessionModels.Registration
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid register request",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	identity, err := h.sessions.Register(ctx, req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := *identity
	out.Credential = ""
	httputil.WriteJSON(w, http.StatusCreated, registerResponse{Identity: out})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	if err := h.sessions.SignOut(r.Context(), sessionID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.audits.Forget(sessionID)
	w.WriteHeader(http.StatusNoContent)
}
