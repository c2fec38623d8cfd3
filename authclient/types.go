package authclient

import (
	"strings"

	"github.com/jrsteele09/go-session-manager/users"
)

// Credentials are the login request body.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// CredentialsFromEmail builds login credentials from an email address, using
// the local part as the username the way the auth service expects.
func CredentialsFromEmail(email, password string) Credentials {
	username := email
	if at := strings.Index(email, "@"); at > 0 {
		username = email[:at]
	}
	return Credentials{Username: username, Password: password}
}

// RegisterRequest is the account registration request body.
type RegisterRequest struct {
	Username string `json:"username,omitempty"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthPayload is the token payload returned by the login, register, and
// refresh endpoints. A pending second factor is signalled with TwoFAPending
// and a TempToken instead of an access token.
type AuthPayload struct {
	AccessToken  string         `json:"access_token,omitempty"`
	RefreshToken string         `json:"refresh_token,omitempty"`
	TokenType    string         `json:"token_type,omitempty"`
	ExpiresIn    int            `json:"expires_in,omitempty"`
	User         *users.Payload `json:"user,omitempty"`
	TwoFAPending bool           `json:"twoFAPending,omitempty"`
	TempToken    string         `json:"tempToken,omitempty"`
}
