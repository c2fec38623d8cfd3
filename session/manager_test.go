package session_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-session-manager/authclient"
	"github.com/jrsteele09/go-session-manager/redirects"
	"github.com/jrsteele09/go-session-manager/session"
	"github.com/jrsteele09/go-session-manager/tokenstore"
	"github.com/jrsteele09/go-session-manager/tokenstore/repofake"
	"github.com/jrsteele09/go-session-manager/users"
)

// fakeAuthService scripts the auth service's responses per test and records
// every call in order.
type fakeAuthService struct {
	mu    sync.Mutex
	calls []string

	loginFn    func(creds authclient.Credentials) (*authclient.AuthPayload, error)
	registerFn func(req authclient.RegisterRequest) (*authclient.AuthPayload, error)
	refreshFn  func(refreshToken string) (*authclient.AuthPayload, error)
	logoutFn   func(refreshToken string) error
	profileFn  func(accessToken string) (*users.User, error)
}

var _ session.AuthService = (*fakeAuthService)(nil)

func (f *fakeAuthService) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
}

func (f *fakeAuthService) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeAuthService) Login(_ context.Context, creds authclient.Credentials) (*authclient.AuthPayload, error) {
	f.record("Login")
	if f.loginFn == nil {
		return nil, errors.New("unexpected call to Login")
	}
	return f.loginFn(creds)
}

func (f *fakeAuthService) Register(_ context.Context, req authclient.RegisterRequest) (*authclient.AuthPayload, error) {
	f.record("Register")
	if f.registerFn == nil {
		return nil, errors.New("unexpected call to Register")
	}
	return f.registerFn(req)
}

func (f *fakeAuthService) Refresh(_ context.Context, refreshToken string) (*authclient.AuthPayload, error) {
	f.record("Refresh")
	if f.refreshFn == nil {
		return nil, errors.New("unexpected call to Refresh")
	}
	return f.refreshFn(refreshToken)
}

func (f *fakeAuthService) Logout(_ context.Context, refreshToken string) error {
	f.record("Logout")
	if f.logoutFn == nil {
		return nil
	}
	return f.logoutFn(refreshToken)
}

func (f *fakeAuthService) Profile(_ context.Context, accessToken string) (*users.User, error) {
	f.record("Profile")
	if f.profileFn == nil {
		return nil, errors.New("unexpected call to Profile")
	}
	return f.profileFn(accessToken)
}

type recordingNavigator struct {
	mu     sync.Mutex
	routes []string
	urls   []string
}

func (n *recordingNavigator) ReplaceRoute(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.routes = append(n.routes, path)
}

func (n *recordingNavigator) OpenURL(url string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.urls = append(n.urls, url)
}

func (n *recordingNavigator) recordedRoutes() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.routes...)
}

type recordingEffects struct {
	mu            sync.Mutex
	invalidations int
	resets        int
}

func (e *recordingEffects) InvalidateCache() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.invalidations++
}

func (e *recordingEffects) ResetDefaults() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resets++
}

func (e *recordingEffects) counts() (int, int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.invalidations, e.resets
}

// testFixture holds all manager dependencies.
type testFixture struct {
	repo    *repofake.FakeTokenRepo
	store   *tokenstore.Store
	api     *fakeAuthService
	nav     *recordingNavigator
	effects *recordingEffects
	manager *session.Manager
}

func setupTestFixture(t *testing.T, options ...session.Option) *testFixture {
	t.Helper()

	repo := repofake.NewFakeTokenRepo()
	store := tokenstore.New(repo)
	api := &fakeAuthService{}
	nav := &recordingNavigator{}
	effects := &recordingEffects{}

	options = append([]session.Option{session.WithEffects(effects)}, options...)
	manager, err := session.NewManager(api, store, redirects.NewCoordinator(nav), options...)
	require.NoError(t, err)
	t.Cleanup(manager.Close)

	return &testFixture{
		repo:    repo,
		store:   store,
		api:     api,
		nav:     nav,
		effects: effects,
		manager: manager,
	}
}

// bootstrapEmpty completes the one-time bootstrap with no stored refresh token.
func (f *testFixture) bootstrapEmpty(t *testing.T) {
	t.Helper()
	f.manager.Bootstrap(context.Background())
	require.False(t, f.manager.Session().IsInitializing)
}

// loginAuthenticated drives the manager into an authenticated state.
func (f *testFixture) loginAuthenticated(t *testing.T) {
	t.Helper()

	f.api.loginFn = func(authclient.Credentials) (*authclient.AuthPayload, error) {
		return &authclient.AuthPayload{
			AccessToken:  "at-1",
			RefreshToken: "rt-1",
			User:         &users.Payload{ID: "u1", Username: "alice", Email: "a@x.com"},
		}, nil
	}
	f.manager.Login(context.Background(), authclient.Credentials{Username: "alice", Password: "p"})
	require.True(t, f.manager.Session().IsAuthenticated)
}

// assertAuthInvariant checks that IsAuthenticated tracks access token presence.
func assertAuthInvariant(t *testing.T, s session.Session) {
	t.Helper()
	assert.Equal(t, s.AccessToken != "", s.IsAuthenticated)
}

func TestNewManagerValidation(t *testing.T) {
	store := tokenstore.New(tokenstore.NewInMemoryRepo())
	coordinator := redirects.NewCoordinator(nil)

	_, err := session.NewManager(nil, store, coordinator)
	require.Error(t, err)

	_, err = session.NewManager(&fakeAuthService{}, nil, coordinator)
	require.Error(t, err)

	_, err = session.NewManager(&fakeAuthService{}, store, nil)
	require.Error(t, err)
}

func TestBootstrapNoStoredToken(t *testing.T) {
	f := setupTestFixture(t)

	f.manager.Bootstrap(context.Background())

	s := f.manager.Session()
	assert.False(t, s.IsInitializing)
	assert.False(t, s.IsAuthenticated)
	assert.Empty(t, f.api.recorded(), "no network call expected")
	assert.Empty(t, f.nav.recordedRoutes())
	assertAuthInvariant(t, s)
}

func TestBootstrapBypassSkipsNetwork(t *testing.T) {
	f := setupTestFixture(t, session.WithBypassBootstrap(true))
	require.NoError(t, f.repo.Set("rt-1"))

	f.manager.Bootstrap(context.Background())

	s := f.manager.Session()
	assert.False(t, s.IsInitializing)
	assert.False(t, s.IsAuthenticated)
	assert.Empty(t, f.api.recorded())

	// The stored token is left alone.
	token, present := f.repo.Stored()
	assert.True(t, present)
	assert.Equal(t, "rt-1", token)
}

func TestBootstrapValidStoredToken(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.repo.Set("rt-1"))

	f.api.refreshFn = func(refreshToken string) (*authclient.AuthPayload, error) {
		assert.Equal(t, "rt-1", refreshToken)
		return &authclient.AuthPayload{
			AccessToken:  "at-1",
			RefreshToken: "rt-2",
			User:         &users.Payload{ID: "u1", Username: "alice", Email: "a@x.com"},
		}, nil
	}

	f.manager.Bootstrap(context.Background())

	s := f.manager.Session()
	assert.False(t, s.IsInitializing)
	assert.True(t, s.IsAuthenticated)
	assert.Equal(t, "at-1", s.AccessToken)
	require.NotNil(t, s.User)
	assert.Equal(t, "u1", s.User.ID)
	assert.Empty(t, s.Error)
	assertAuthInvariant(t, s)

	// The rotated refresh token replaced the stored one.
	token, present := f.repo.Stored()
	require.True(t, present)
	assert.Equal(t, "rt-2", token)

	// The access token propagated to the store for header injection.
	assert.Equal(t, "at-1", f.store.AccessToken())

	assert.Equal(t, []string{"Refresh"}, f.api.recorded())
}

func TestBootstrapStoredTokenRejected(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.repo.Set("rt-1"))

	f.api.refreshFn = func(string) (*authclient.AuthPayload, error) {
		return nil, &authclient.ServiceError{StatusCode: http.StatusUnauthorized, Message: "refresh token revoked"}
	}

	f.manager.Bootstrap(context.Background())

	s := f.manager.Session()
	assert.False(t, s.IsInitializing)
	assert.False(t, s.IsAuthenticated)
	assert.Empty(t, s.AccessToken)
	assert.Empty(t, s.Error, "silent bootstrap failure is not surfaced")
	assertAuthInvariant(t, s)

	_, present := f.repo.Stored()
	assert.False(t, present, "persisted refresh token cleared")

	assert.Contains(t, f.nav.recordedRoutes(), "/login")
}

func TestLoginSuccessWithProfileFetch(t *testing.T) {
	f := setupTestFixture(t)
	f.bootstrapEmpty(t)

	f.api.loginFn = func(creds authclient.Credentials) (*authclient.AuthPayload, error) {
		assert.Equal(t, "a@x.com", creds.Username)
		return &authclient.AuthPayload{AccessToken: "at-9"}, nil
	}
	f.api.profileFn = func(accessToken string) (*users.User, error) {
		assert.Equal(t, "at-9", accessToken)
		return &users.User{ID: "u9", Username: "bob", Email: "a@x.com"}, nil
	}

	f.manager.Login(context.Background(), authclient.Credentials{Username: "a@x.com", Password: "p"})

	s := f.manager.Session()
	assert.True(t, s.IsAuthenticated)
	require.NotNil(t, s.User)
	assert.Equal(t, "bob", s.User.Username)
	assert.Empty(t, s.Error)
	assertAuthInvariant(t, s)

	assert.Equal(t, []string{"Login", "Profile"}, f.api.recorded())
	assert.Contains(t, f.nav.recordedRoutes(), "/c/new")
}

func TestLoginSuccessWithPayloadUser(t *testing.T) {
	f := setupTestFixture(t)
	f.bootstrapEmpty(t)
	f.loginAuthenticated(t)

	// The payload carried the user, so no profile fetch happened.
	assert.Equal(t, []string{"Login"}, f.api.recorded())

	token, present := f.repo.Stored()
	require.True(t, present)
	assert.Equal(t, "rt-1", token)
}

func TestLoginCustomRedirect(t *testing.T) {
	f := setupTestFixture(t, session.WithLoginRedirect("/home"))
	f.bootstrapEmpty(t)
	f.loginAuthenticated(t)

	assert.Contains(t, f.nav.recordedRoutes(), "/home")
}

func TestLoginTwoFAPending(t *testing.T) {
	f := setupTestFixture(t)
	f.bootstrapEmpty(t)

	f.api.loginFn = func(authclient.Credentials) (*authclient.AuthPayload, error) {
		return &authclient.AuthPayload{TwoFAPending: true, TempToken: "tmp-1"}, nil
	}

	f.manager.Login(context.Background(), authclient.Credentials{Username: "alice", Password: "p"})

	s := f.manager.Session()
	assert.False(t, s.IsAuthenticated)
	assert.Empty(t, s.AccessToken)
	assert.Empty(t, f.store.AccessToken())
	assertAuthInvariant(t, s)

	_, present := f.repo.Stored()
	assert.False(t, present, "no token stored during the 2FA hand-off")

	assert.Contains(t, f.nav.recordedRoutes(), "/login/2fa?tempToken=tmp-1")
}

func TestLoginFailureRecordsErrorAndResets(t *testing.T) {
	f := setupTestFixture(t)
	f.bootstrapEmpty(t)
	f.loginAuthenticated(t)

	f.api.loginFn = func(authclient.Credentials) (*authclient.AuthPayload, error) {
		return nil, &authclient.ServiceError{StatusCode: http.StatusUnauthorized, Message: "invalid credentials"}
	}

	f.manager.Login(context.Background(), authclient.Credentials{Username: "alice", Password: "wrong"})

	s := f.manager.Session()
	assert.False(t, s.IsAuthenticated)
	assert.Empty(t, s.AccessToken)
	assert.Nil(t, s.User)
	assert.Equal(t, "invalid credentials", s.Error)
	assertAuthInvariant(t, s)

	_, present := f.repo.Stored()
	assert.False(t, present)

	invalidations, resets := f.effects.counts()
	assert.Positive(t, invalidations)
	assert.Positive(t, resets)
}

func TestLoginMissingAccessTokenIsFailure(t *testing.T) {
	f := setupTestFixture(t)
	f.bootstrapEmpty(t)

	f.api.loginFn = func(authclient.Credentials) (*authclient.AuthPayload, error) {
		return &authclient.AuthPayload{}, nil
	}

	f.manager.Login(context.Background(), authclient.Credentials{Username: "alice", Password: "p"})

	s := f.manager.Session()
	assert.False(t, s.IsAuthenticated)
	assert.NotEmpty(t, s.Error)
}

func TestLogoutClearsStateAndRedirects(t *testing.T) {
	f := setupTestFixture(t)
	f.bootstrapEmpty(t)
	f.loginAuthenticated(t)

	f.manager.Logout(context.Background(), "")

	s := f.manager.Session()
	assert.False(t, s.IsAuthenticated)
	assert.Empty(t, s.AccessToken)
	assert.Nil(t, s.User)
	assert.Empty(t, s.Error)
	assertAuthInvariant(t, s)

	_, present := f.repo.Stored()
	assert.False(t, present)

	assert.Contains(t, f.api.recorded(), "Logout")
	assert.Contains(t, f.nav.recordedRoutes(), "/login")
}

func TestLogoutSurvivesDeadServer(t *testing.T) {
	f := setupTestFixture(t)
	f.bootstrapEmpty(t)
	f.loginAuthenticated(t)

	f.api.logoutFn = func(string) error {
		return errors.New("connection refused")
	}

	f.manager.Logout(context.Background(), "")

	s := f.manager.Session()
	assert.False(t, s.IsAuthenticated, "logout must never be blocked by a dead server")
	_, present := f.repo.Stored()
	assert.False(t, present)
}

func TestLogoutIsIdempotent(t *testing.T) {
	f := setupTestFixture(t)
	f.bootstrapEmpty(t)
	f.loginAuthenticated(t)

	f.manager.Logout(context.Background(), "")
	first := f.manager.Session()

	f.manager.Logout(context.Background(), "")
	second := f.manager.Session()

	assert.Equal(t, first, second)

	// The second logout had no refresh token to revoke, so the server was
	// notified exactly once.
	logoutCalls := 0
	for _, call := range f.api.recorded() {
		if call == "Logout" {
			logoutCalls++
		}
	}
	assert.Equal(t, 1, logoutCalls)
}

func TestLogoutRedirectOverride(t *testing.T) {
	f := setupTestFixture(t)
	f.bootstrapEmpty(t)
	f.loginAuthenticated(t)

	f.manager.Logout(context.Background(), "https://sso.example.com/goodbye")

	assert.Contains(t, f.nav.urls, "https://sso.example.com/goodbye")
	assert.NotContains(t, f.nav.recordedRoutes(), "/login")
}

func TestLogoutRejectedDuringInitialization(t *testing.T) {
	f := setupTestFixture(t)

	f.manager.Logout(context.Background(), "")

	assert.True(t, f.manager.Session().IsInitializing)
	assert.Empty(t, f.api.recorded())
}

func TestRefreshSessionWithoutAnyToken(t *testing.T) {
	f := setupTestFixture(t)
	f.bootstrapEmpty(t)

	assert.False(t, f.manager.RefreshSession(context.Background(), ""))
	assert.Empty(t, f.api.recorded(), "no network call without a refresh token")
}

func TestRefreshSessionRejectedDuringInitialization(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.repo.Set("rt-1"))

	assert.False(t, f.manager.RefreshSession(context.Background(), ""))
	assert.Empty(t, f.api.recorded())
}

func TestRefreshSessionFailureClearsTokens(t *testing.T) {
	f := setupTestFixture(t)
	f.bootstrapEmpty(t)
	f.loginAuthenticated(t)

	f.api.refreshFn = func(string) (*authclient.AuthPayload, error) {
		return nil, errors.New("service unavailable")
	}

	assert.False(t, f.manager.RefreshSession(context.Background(), ""))

	s := f.manager.Session()
	assert.False(t, s.IsAuthenticated)
	assert.Empty(t, s.AccessToken)
	assert.Equal(t, "service unavailable", s.Error, "explicit refresh failures are surfaced")
	assertAuthInvariant(t, s)

	_, present := f.repo.Stored()
	assert.False(t, present)
}

func TestLogoutWinsOverInFlightRefresh(t *testing.T) {
	f := setupTestFixture(t)
	f.bootstrapEmpty(t)
	require.NoError(t, f.repo.Set("rt-1"))

	refreshStarted := make(chan struct{})
	releaseRefresh := make(chan struct{})
	f.api.refreshFn = func(string) (*authclient.AuthPayload, error) {
		close(refreshStarted)
		<-releaseRefresh
		return &authclient.AuthPayload{
			AccessToken:  "at-stale",
			RefreshToken: "rt-stale",
			User:         &users.Payload{ID: "u1", Username: "alice"},
		}, nil
	}

	refreshResult := make(chan bool)
	go func() {
		refreshResult <- f.manager.RefreshSession(context.Background(), "rt-1")
	}()

	<-refreshStarted
	f.manager.Logout(context.Background(), "")
	close(releaseRefresh)

	assert.False(t, <-refreshResult, "superseded refresh must report failure")

	s := f.manager.Session()
	assert.False(t, s.IsAuthenticated, "a stale refresh must not resurrect the session")
	assert.Empty(t, s.AccessToken)
	assert.Empty(t, f.store.AccessToken())

	_, present := f.repo.Stored()
	assert.False(t, present)
}

func TestLoadUserWithoutToken(t *testing.T) {
	f := setupTestFixture(t)
	f.bootstrapEmpty(t)

	user, err := f.manager.LoadUser(context.Background())
	require.NoError(t, err)
	assert.Nil(t, user)
	assert.Empty(t, f.api.recorded())
}

func TestLoadUserUpdatesUserInPlace(t *testing.T) {
	f := setupTestFixture(t)
	f.bootstrapEmpty(t)
	f.loginAuthenticated(t)

	f.api.profileFn = func(accessToken string) (*users.User, error) {
		assert.Equal(t, "at-1", accessToken)
		return &users.User{ID: "u1", Username: "alice", Name: "Alice Smith"}, nil
	}

	user, err := f.manager.LoadUser(context.Background())
	require.NoError(t, err)
	require.NotNil(t, user)

	s := f.manager.Session()
	assert.True(t, s.IsAuthenticated)
	assert.Equal(t, "at-1", s.AccessToken)
	require.NotNil(t, s.User)
	assert.Equal(t, "Alice Smith", s.User.Name)
}

func TestLoadUserFailureDoesNotDeauthenticate(t *testing.T) {
	f := setupTestFixture(t)
	f.bootstrapEmpty(t)
	f.loginAuthenticated(t)

	f.api.profileFn = func(string) (*users.User, error) {
		return nil, &authclient.ServiceError{StatusCode: http.StatusInternalServerError, Message: "profile unavailable"}
	}

	_, err := f.manager.LoadUser(context.Background())
	require.Error(t, err)

	s := f.manager.Session()
	assert.True(t, s.IsAuthenticated, "profile fetch failure is not session loss")
	assert.Equal(t, "profile unavailable", s.Error)
	require.NotNil(t, s.User)
	assert.Equal(t, "alice", s.User.Username)
}

func TestResetAuthStateClearsBothTokens(t *testing.T) {
	f := setupTestFixture(t)
	f.bootstrapEmpty(t)
	f.loginAuthenticated(t)

	f.manager.ResetAuthState(session.ResetOptions{ClearError: true})

	s := f.manager.Session()
	assert.False(t, s.IsAuthenticated)
	assert.Empty(t, s.AccessToken)
	assert.Empty(t, f.store.AccessToken())
	assertAuthInvariant(t, s)

	_, present := f.repo.Stored()
	assert.False(t, present)

	invalidations, resets := f.effects.counts()
	assert.Positive(t, invalidations)
	assert.Positive(t, resets)
}

func TestRegisterWithTokensLogsIn(t *testing.T) {
	f := setupTestFixture(t)
	f.bootstrapEmpty(t)

	f.api.registerFn = func(req authclient.RegisterRequest) (*authclient.AuthPayload, error) {
		assert.Equal(t, "a@x.com", req.Email)
		return &authclient.AuthPayload{
			AccessToken:  "at-1",
			RefreshToken: "rt-1",
			User:         &users.Payload{ID: "u1", Username: "alice", Email: "a@x.com"},
		}, nil
	}

	f.manager.Register(context.Background(), authclient.RegisterRequest{Email: "a@x.com", Password: "p"})

	s := f.manager.Session()
	assert.True(t, s.IsAuthenticated)
	require.NotNil(t, s.User)
	assert.Equal(t, "u1", s.User.ID)
}

func TestRegisterWithoutTokensLeavesStateAlone(t *testing.T) {
	f := setupTestFixture(t)
	f.bootstrapEmpty(t)

	f.api.registerFn = func(authclient.RegisterRequest) (*authclient.AuthPayload, error) {
		return &authclient.AuthPayload{}, nil
	}

	f.manager.Register(context.Background(), authclient.RegisterRequest{Email: "a@x.com", Password: "p"})

	s := f.manager.Session()
	assert.False(t, s.IsAuthenticated)
	assert.Empty(t, s.Error)
}

func TestTokenUpdateBridgePartialCommit(t *testing.T) {
	f := setupTestFixture(t)
	f.bootstrapEmpty(t)
	f.loginAuthenticated(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bridge := session.NewBridge()
	go f.manager.ConsumeTokenUpdates(ctx, bridge)

	bridge.Publish("at-rotated")
	require.Eventually(t, func() bool {
		return f.manager.Session().AccessToken == "at-rotated"
	}, time.Second, 10*time.Millisecond)

	s := f.manager.Session()
	assert.True(t, s.IsAuthenticated)
	require.NotNil(t, s.User, "partial commit leaves the user untouched")

	token, present := f.repo.Stored()
	require.True(t, present, "partial commit leaves the refresh token untouched")
	assert.Equal(t, "rt-1", token)

	bridge.Publish("")
	require.Eventually(t, func() bool {
		return !f.manager.Session().IsAuthenticated
	}, time.Second, 10*time.Millisecond)

	s = f.manager.Session()
	assert.Empty(t, s.AccessToken)
	assert.Empty(t, f.store.AccessToken())
}

func TestSessionSnapshotIsImmutable(t *testing.T) {
	f := setupTestFixture(t)
	f.bootstrapEmpty(t)
	f.loginAuthenticated(t)

	snapshot := f.manager.Session()
	snapshot.User.Username = "mallory"

	assert.Equal(t, "alice", f.manager.Session().User.Username)
}

func TestCloseDiscardsInFlightCommit(t *testing.T) {
	f := setupTestFixture(t)
	f.bootstrapEmpty(t)
	f.loginAuthenticated(t)

	refreshStarted := make(chan struct{})
	releaseRefresh := make(chan struct{})
	f.api.refreshFn = func(string) (*authclient.AuthPayload, error) {
		close(refreshStarted)
		<-releaseRefresh
		return &authclient.AuthPayload{
			AccessToken: "at-2",
			User:        &users.Payload{ID: "u1", Username: "alice"},
		}, nil
	}

	refreshResult := make(chan bool)
	go func() {
		refreshResult <- f.manager.RefreshSession(context.Background(), "rt-1")
	}()

	<-refreshStarted
	f.manager.Close()
	close(releaseRefresh)

	assert.False(t, <-refreshResult)
	assert.Equal(t, "at-1", f.manager.Session().AccessToken, "commit after Close is discarded")
}
