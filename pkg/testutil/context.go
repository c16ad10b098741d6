package testutil

import (
	"net/http"

	"complyscan/internal/platform/middleware"
)

// WithAuth puts what RequireAuth would have resolved onto the request.
func WithAuth(req *http.Request, subjectID, sessionID string) *http.Request {
	return req.WithContext(middleware.WithSubject(req.Context(), subjectID, sessionID))
}
