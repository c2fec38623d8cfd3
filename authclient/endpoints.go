package authclient

import (
	"context"
	"net/http"

	"github.com/pkg/errors"

	"github.com/jrsteele09/go-session-manager/users"
)

const (
	loginPath    = "/api/v1/auth/login"
	refreshPath  = "/api/v1/auth/refresh"
	logoutPath   = "/api/v1/auth/logout"
	registerPath = "/api/v1/auth/register"
	profilePath  = "/api/v1/user/profile"
)

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token,omitempty"`
}

// Login exchanges credentials for tokens. The returned payload may instead
// signal a pending second factor; the caller decides what that means for
// session state.
func (c *Client) Login(ctx context.Context, creds Credentials) (*AuthPayload, error) {
	var payload AuthPayload
	if err := c.do(ctx, http.MethodPost, loginPath, creds, &payload, ""); err != nil {
		return nil, errors.Wrap(err, "[Login]")
	}
	return &payload, nil
}

// Register creates a new account. Deployments that log the user in on
// registration return tokens in the payload; others return a bare message.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*AuthPayload, error) {
	var payload AuthPayload
	if err := c.do(ctx, http.MethodPost, registerPath, req, &payload, ""); err != nil {
		return nil, errors.Wrap(err, "[Register]")
	}
	return &payload, nil
}

// Refresh exchanges a refresh token for a new access token. A payload without
// an access token is a hard failure, not a partial success.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*AuthPayload, error) {
	var payload AuthPayload
	if err := c.do(ctx, http.MethodPost, refreshPath, refreshRequest{RefreshToken: refreshToken}, &payload, ""); err != nil {
		return nil, errors.Wrap(err, "[Refresh]")
	}
	if payload.AccessToken == "" {
		return nil, errors.Wrap(ErrMissingAccessToken, "[Refresh]")
	}
	return &payload, nil
}

// Logout notifies the service that the refresh token should be revoked. The
// body is omitted when no token is held. Callers treat failures as advisory.
func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	var body interface{}
	if refreshToken != "" {
		body = logoutRequest{RefreshToken: refreshToken}
	}
	if err := c.do(ctx, http.MethodPost, logoutPath, body, nil, ""); err != nil {
		return errors.Wrap(err, "[Logout]")
	}
	return nil
}

// Profile fetches and normalizes the authenticated user's profile. When
// accessToken is non-empty it is used for this request instead of the token
// store's current value.
func (c *Client) Profile(ctx context.Context, accessToken string) (*users.User, error) {
	var payload users.Payload
	if err := c.do(ctx, http.MethodGet, profilePath, nil, &payload, accessToken); err != nil {
		return nil, errors.Wrap(err, "[Profile]")
	}

	user, err := users.Normalize(&payload)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidUserPayload, "[Profile]")
	}
	return user, nil
}
