package session

import (
	"context"
	"time"

	"golang.org/x/oauth2"

	"github.com/jrsteele09/go-session-manager/tokenstore"
)

// refreshLeeway is how close to expiry an access token may get before the
// token source refreshes proactively.
const refreshLeeway = 30 * time.Second

// TokenSource exposes the managed access token as an oauth2.TokenSource so
// general API clients can attach it to their outbound requests. When the
// current token is absent or about to expire (readable only for JWT access
// tokens), a refresh is attempted before handing the token out.
func (m *Manager) TokenSource(ctx context.Context) oauth2.TokenSource {
	return &managerTokenSource{manager: m, ctx: ctx}
}

type managerTokenSource struct {
	manager *Manager
	ctx     context.Context
}

func (ts *managerTokenSource) Token() (*oauth2.Token, error) {
	if ts.manager.isClosed() {
		return nil, ErrManagerClosed
	}

	current := ts.manager.Session()
	if current.IsInitializing {
		return nil, ErrInitializing
	}

	if current.AccessToken != "" && !tokenstore.ExpiresWithin(current.AccessToken, refreshLeeway) {
		return bearerToken(current.AccessToken), nil
	}

	ts.manager.RefreshSession(ts.ctx, "")

	// On a failed refresh the manager clears the session; when no refresh
	// token was stored at all, the prior token survives and the server stays
	// the authority on whether it is still usable.
	refreshed := ts.manager.Session()
	if refreshed.AccessToken != "" {
		return bearerToken(refreshed.AccessToken), nil
	}
	return nil, ErrNotAuthenticated
}

func bearerToken(accessToken string) *oauth2.Token {
	return &oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}
}
