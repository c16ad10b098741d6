package httptransport

import (
	"net/http"

	"complyscan/pkg/platform/httputil"
)

func (h *Handler) handleGetConsent(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	view, err := h.audits.ConsentStatus(r.Context(), sessionID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

// handleGrantConsent answers 202 when a paused run was resumed and 200 when
// the consent was recorded on its own.
func (h *Handler) handleGrantConsent(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	view, err := h.audits.GrantConsent(r.Context(), sessionID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	status := http.StatusOK
	if view.State != nil {
		status = http.StatusAccepted
	}
	httputil.WriteJSON(w, status, view)
}
