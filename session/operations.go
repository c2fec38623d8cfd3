package session

import (
	"context"
	"net/url"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-session-manager/authclient"
	"github.com/jrsteele09/go-session-manager/users"
)

// ResetOptions controls the optional parts of a session reset.
type ResetOptions struct {
	Redirect   string // navigate here after the reset commit; empty navigates nowhere
	ClearError bool   // also clear the stored error message
}

// Bootstrap restores a session from the persisted refresh token. It runs once
// at startup, before any other transition: with no stored token it lands in
// the unauthenticated state without a network call; with one it drives a
// refresh and, on failure, clears credentials and redirects to the login
// surface. IsInitializing becomes false when the attempt completes, success
// or not.
func (m *Manager) Bootstrap(ctx context.Context) {
	defer m.finishInitializing()

	if m.bypassBootstrap {
		return
	}

	gen := m.currentGeneration()
	stored := m.store.RefreshToken()
	if stored == "" {
		return
	}

	if ok, _ := m.refreshSession(ctx, gen, stored); !ok {
		m.resetAuthState(gen, ResetOptions{Redirect: m.loginRoute, ClearError: true})
	}
}

// Login authenticates with the given credentials. A payload signalling a
// pending second factor navigates to the two-factor surface with the temp
// token and leaves the session unauthenticated. A usable access token commits
// the authenticated state and redirects to the post-login destination. Any
// failure records a normalized error and fully resets the session.
func (m *Manager) Login(ctx context.Context, creds authclient.Credentials) {
	gen := m.currentGeneration()
	m.clearError(gen)

	payload, err := m.api.Login(ctx, creds)
	if err == nil && payload.TwoFAPending && payload.TempToken != "" {
		m.redirects.Navigate(m.twoFARoute + "?tempToken=" + url.QueryEscape(payload.TempToken))
		return
	}
	if err == nil && payload.AccessToken == "" {
		err = errors.Wrap(authclient.ErrMissingAccessToken, "[Login]")
	}

	var user *users.User
	if err == nil {
		user, err = m.resolveUser(ctx, payload)
	}
	if err != nil {
		m.setError(gen, normalizeError(err))
		m.resetAuthState(gen, ResetOptions{})
		return
	}

	m.commitAuthenticated(gen, payload, user, m.loginRedirect)
}

// Register creates an account. Deployments that log the user in on
// registration return tokens, in which case the session is committed exactly
// as for a login; otherwise session state is left untouched. Failures record
// an error without resetting an existing session.
func (m *Manager) Register(ctx context.Context, req authclient.RegisterRequest) {
	gen := m.currentGeneration()
	m.clearError(gen)

	payload, err := m.api.Register(ctx, req)
	if err != nil {
		m.setError(gen, normalizeError(err))
		return
	}
	if payload.AccessToken == "" {
		return
	}

	user, err := m.resolveUser(ctx, payload)
	if err != nil {
		m.setError(gen, normalizeError(err))
		return
	}

	m.commitAuthenticated(gen, payload, user, m.loginRedirect)
}

// commitAuthenticated applies a successful login/register/refresh payload.
func (m *Manager) commitAuthenticated(gen uuid.UUID, payload *authclient.AuthPayload, user *users.User, redirect string) {
	c := commit{
		setToken:      true,
		token:         payload.AccessToken,
		setAuth:       true,
		authenticated: true,
		setUser:       true,
		user:          user,
		redirect:      redirect,
	}
	if payload.RefreshToken != "" {
		c.refresh = refreshSet
		c.refreshToken = payload.RefreshToken
	}
	if !m.finalize(gen, c) {
		return
	}
	m.clearError(gen)
}

// Logout ends the session. The server is notified best-effort with the
// persisted refresh token; local state is reset regardless of whether that
// call succeeds. The generation is bumped first, so a racing refresh that
// completes afterwards cannot resurrect the session. An optional
// redirectTarget overrides the default login-surface redirect.
func (m *Manager) Logout(ctx context.Context, redirectTarget string) {
	if m.isInitializing() {
		log.Warn().Msg("Logout requested during initialization, ignoring")
		return
	}

	gen := m.bumpGeneration()

	if redirectTarget != "" {
		m.redirects.SetOverride(redirectTarget)
	}

	if stored := m.store.RefreshToken(); stored != "" {
		if err := m.api.Logout(ctx, stored); err != nil {
			log.Warn().Err(err).Msg("Logout request failed")
		}
	}

	m.resetAuthState(gen, ResetOptions{Redirect: m.loginRoute, ClearError: true})
}

// RefreshSession exchanges the provided refresh token (or the persisted one
// when empty) for a new access token and reports success. An explicit refresh
// failure is surfaced through the session error, unlike Bootstrap's silent
// internal refresh. Rejected during the bootstrap phase.
func (m *Manager) RefreshSession(ctx context.Context, refreshToken string) bool {
	if m.isInitializing() {
		return false
	}

	gen := m.currentGeneration()
	ok, err := m.refreshSession(ctx, gen, refreshToken)
	if err != nil {
		m.setError(gen, normalizeError(err))
	}
	return ok
}

func (m *Manager) refreshSession(ctx context.Context, gen uuid.UUID, refreshToken string) (bool, error) {
	active := refreshToken
	if active == "" {
		active = m.store.RefreshToken()
	}
	if active == "" {
		return false, nil
	}

	payload, err := m.api.Refresh(ctx, active)

	var user *users.User
	if err == nil {
		user, err = m.resolveUser(ctx, payload)
	}
	if err != nil {
		log.Warn().Err(err).Msg("Failed to refresh session")
		m.finalize(gen, commit{
			setToken: true,
			setAuth:  true,
			setUser:  true,
			refresh:  refreshClear,
		})
		return false, err
	}

	next := payload.RefreshToken
	if next == "" {
		next = active
	}
	applied := m.finalize(gen, commit{
		setToken:      true,
		token:         payload.AccessToken,
		setAuth:       true,
		authenticated: true,
		setUser:       true,
		user:          user,
		refresh:       refreshSet,
		refreshToken:  next,
	})
	if !applied {
		return false, nil
	}

	m.clearError(gen)
	return true, nil
}

// LoadUser re-fetches the profile for the current access token and updates the
// user in place. A missing token is a no-op; a fetch failure records an error
// but does not deauthenticate.
func (m *Manager) LoadUser(ctx context.Context) (*users.User, error) {
	gen := m.currentGeneration()

	token := m.store.AccessToken()
	if token == "" {
		return nil, nil
	}

	user, err := m.api.Profile(ctx, token)
	if err != nil {
		m.setError(gen, normalizeError(err))
		return nil, err
	}

	m.finalize(gen, commit{setUser: true, user: user})
	return user, nil
}

// ResetAuthState clears the session back to unauthenticated: token, user, and
// authentication flag through the commit, persisted refresh token removed,
// cached data invalidated, and the default request preset reset. Bumps the
// generation so in-flight transitions are discarded.
func (m *Manager) ResetAuthState(opts ResetOptions) {
	if m.isInitializing() {
		return
	}
	m.resetAuthState(m.bumpGeneration(), opts)
}

func (m *Manager) resetAuthState(gen uuid.UUID, opts ResetOptions) {
	applied := m.finalize(gen, commit{
		setToken: true,
		setAuth:  true,
		setUser:  true,
		refresh:  refreshClear,
		redirect: opts.Redirect,
	})
	if !applied {
		return
	}

	m.effects.InvalidateCache()
	m.effects.ResetDefaults()

	if opts.ClearError {
		m.clearError(gen)
	}
}
