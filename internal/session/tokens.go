package session

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"complyscan/internal/platform/middleware"
	"complyscan/internal/session/models"
	dErrors "complyscan/pkg/domain-errors"
)

// Claims are carried by BFF session tokens.
type Claims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// TokenSigner issues and validates BFF session tokens. It implements
// middleware.JWTValidator.
type TokenSigner struct {
	signingKey []byte
	issuer     string
}

func NewTokenSigner(signingKey, issuer string) *TokenSigner {
	return &TokenSigner{signingKey: []byte(signingKey), issuer: issuer}
}

// Issue signs a token that expires with the session.
func (s *TokenSigner) Issue(sess *models.Session) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		SessionID: sess.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sess.Identity.ID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(sess.CreatedAt),
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
			ID:        uuid.NewString(),
		},
	})
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

func (s *TokenSigner) ValidateToken(tokenString string) (*middleware.JWTClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		return s.signingKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(s.issuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.SessionID == "" || claims.Subject == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	return &middleware.JWTClaims{SubjectID: claims.Subject, SessionID: claims.SessionID}, nil
}

// SubjectFromAccessToken reads the user id from the remote service's access
// token. The token is not verified here: the remote service verifies it on
// every call it receives.
func SubjectFromAccessToken(accessToken string) (string, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return "", fmt.Errorf("parse access token: %w", err)
	}
	for _, key := range []string{"sub", "identity", "user_id"} {
		switch v := claims[key].(type) {
		case string:
			if v != "" {
				return v, nil
			}
		case float64:
			return fmt.Sprintf("%.0f", v), nil
		}
	}
	return "", errors.New("access token carries no subject")
}
