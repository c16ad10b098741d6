package httptransport

import (
	"encoding/json"
	"net/http"

	auditModels "complyscan/internal/audit/models"
	"complyscan/internal/events"
	dErrors "complyscan/pkg/domain-errors"
	"complyscan/pkg/platform/httputil"
	"complyscan/pkg/requestcontext"
)

type submitAuditRequest struct {
	URL string `json:"url"`
}

// handleSubmitAudit accepts any URL string; validation happens inside the run
// so a bad URL is observed as failed(InvalidInput), not as a 400.
func (h *Handler) handleSubmitAudit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	var req submitAuditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid submit request",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	state, err := h.audits.Submit(ctx, sessionID, req.URL)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, state)
}

func (h *Handler) handleAuditState(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	state, err := h.audits.State(r.Context(), sessionID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, state)
}

type eventsResponse struct {
	Events []events.Event `json:"events"`
}

func (h *Handler) handleAuditEvents(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	list, err := h.audits.Events(r.Context(), sessionID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if list == nil {
		list = []events.Event{}
	}
	httputil.WriteJSON(w, http.StatusOK, eventsResponse{Events: list})
}

type historyResponse struct {
	Audits []auditModels.AuditRecord `json:"audits"`
}

func (h *Handler) handleAuditHistory(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	list, err := h.audits.History(r.Context(), sessionID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if list == nil {
		list = []auditModels.AuditRecord{}
	}
	httputil.WriteJSON(w, http.StatusOK, historyResponse{Audits: list})
}
