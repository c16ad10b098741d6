package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	dErrors "complyscan/pkg/domain-errors"
	"complyscan/pkg/platform/httputil"
	"complyscan/pkg/requestcontext"
)

// JWTValidator defines the interface for validating session tokens
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// JWTClaims represents the claims we expect from the JWT validator
type JWTClaims struct {
	SubjectID string
	SessionID string
}

type contextKeySubjectID struct{}

// ContextKeySubjectID is exported for use in handler tests
var ContextKeySubjectID = contextKeySubjectID{}

// GetSubjectID retrieves the authenticated subject ID from the context
func GetSubjectID(ctx context.Context) string {
	subjectID, ok := ctx.Value(ContextKeySubjectID).(string)
	if !ok {
		return ""
	}
	return subjectID
}

// WithSubject injects the authenticated subject and session into a context.
func WithSubject(ctx context.Context, subjectID, sessionID string) context.Context {
	ctx = context.WithValue(ctx, ContextKeySubjectID, subjectID)
	return requestcontext.WithSessionID(ctx, sessionID)
}

func RequireAuth(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := requestcontext.RequestID(ctx)

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestID,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Missing or invalid Authorization header"))
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestID,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Invalid or expired token"))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSubject(ctx, claims.SubjectID, claims.SessionID)))
		})
	}
}
