package remote

import (
	"context"
	"net/http"

	"complyscan/internal/session/models"
)

const (
	opLogin    = "auth.login"
	opProfile  = "users.get"
	opRegister = "users.register"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login exchanges credentials for the service's access token. The identity in
// the result is filled only when the service returned a user object.
func (c *Client) Login(ctx context.Context, email, password string) (*models.LoginResult, error) {
	body, err := c.call(ctx, opLogin, http.MethodPost, "auth/login", "", loginRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	res, ok := decodeLogin(body)
	if !ok {
		return nil, badData(opLogin, "login response carried no access token")
	}
	return &res, nil
}

// Profile fetches the display name and email of a user.
func (c *Client) Profile(ctx context.Context, credential, userID string) (*models.Identity, error) {
	body, err := c.call(ctx, opProfile, http.MethodGet, "users/"+escape(userID), credential, nil)
	if err != nil {
		return nil, err
	}
	identity, ok := decodeProfile(body)
	if !ok {
		return nil, badData(opProfile, "malformed profile response")
	}
	if identity.ID == "" {
		identity.ID = userID
	}
	return &identity, nil
}

// Register creates an account. The service answers with the stored user,
// optionally wrapped in "user".
func (c *Client) Register(ctx context.Context, reg models.Registration) (*models.Identity, error) {
	body, err := c.call(ctx, opRegister, http.MethodPost, "users/register", "", reg)
	if err != nil {
		return nil, err
	}
	identity, ok := decodeProfile(body)
	if !ok || identity.ID == "" {
		return nil, badData(opRegister, "registration response carried no user id")
	}
	return &identity, nil
}
