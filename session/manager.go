package session

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-session-manager/authclient"
	"github.com/jrsteele09/go-session-manager/redirects"
	"github.com/jrsteele09/go-session-manager/tokenstore"
	"github.com/jrsteele09/go-session-manager/users"
)

const (
	defaultLoginRoute    = "/login"
	defaultTwoFARoute    = "/login/2fa"
	defaultLoginRedirect = "/c/new"
)

// AuthService is the slice of the auth service client the manager depends on.
// *authclient.Client satisfies it.
type AuthService interface {
	Login(ctx context.Context, creds authclient.Credentials) (*authclient.AuthPayload, error)
	Register(ctx context.Context, req authclient.RegisterRequest) (*authclient.AuthPayload, error)
	Refresh(ctx context.Context, refreshToken string) (*authclient.AuthPayload, error)
	Logout(ctx context.Context, refreshToken string) error
	Profile(ctx context.Context, accessToken string) (*users.User, error)
}

// Effects receives the side effects of a session reset. The host wires its
// cached-data layer and default request preset here; each method fires exactly
// once per reset, after the state commit.
type Effects interface {
	InvalidateCache()
	ResetDefaults()
}

// NopEffects discards all side effects.
type NopEffects struct{}

func (NopEffects) InvalidateCache() {}
func (NopEffects) ResetDefaults()   {}

// Manager is the session state machine. It is the only component permitted to
// mutate the observable session state; every transition goes through finalize,
// which serializes commits and applies field updates in a fixed order.
type Manager struct {
	api        AuthService
	store      *tokenstore.Store
	redirects  *redirects.Coordinator
	effects    Effects
	loginRoute string
	twoFARoute string
	// loginRedirect is the post-login destination.
	loginRedirect   string
	bypassBootstrap bool

	mu         sync.Mutex
	session    Session
	generation uuid.UUID
	closed     bool
}

// Option defines a function type to modify the Manager instance.
type Option func(*Manager)

// WithEffects wires the host's reset side effects.
func WithEffects(effects Effects) Option {
	return func(m *Manager) {
		if effects != nil {
			m.effects = effects
		}
	}
}

// WithLoginRedirect overrides the default post-login destination.
func WithLoginRedirect(target string) Option {
	return func(m *Manager) {
		if target != "" {
			m.loginRedirect = target
		}
	}
}

// WithBypassBootstrap makes Bootstrap skip the network entirely and mark
// initialization complete immediately, leaving session state as-is.
// Intended for test harnesses.
func WithBypassBootstrap(bypass bool) Option {
	return func(m *Manager) {
		m.bypassBootstrap = bypass
	}
}

// NewManager initializes the session state machine with required dependencies.
// The session starts empty with IsInitializing=true; callers run Bootstrap
// exactly once before any other transition.
func NewManager(api AuthService, store *tokenstore.Store, coordinator *redirects.Coordinator, options ...Option) (*Manager, error) {
	if api == nil {
		return nil, errors.New("[NewManager] auth service is required")
	}
	if store == nil {
		return nil, errors.New("[NewManager] token store is required")
	}
	if coordinator == nil {
		return nil, errors.New("[NewManager] redirect coordinator is required")
	}

	manager := &Manager{
		api:           api,
		store:         store,
		redirects:     coordinator,
		effects:       NopEffects{},
		loginRoute:    defaultLoginRoute,
		twoFARoute:    defaultTwoFARoute,
		loginRedirect: defaultLoginRedirect,
		session:       Session{IsInitializing: true},
		generation:    uuid.New(),
	}

	for _, opt := range options {
		opt(manager)
	}

	return manager, nil
}

// Session returns an immutable snapshot of the current session state.
func (m *Manager) Session() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session.clone()
}

// Close tears the manager down. In-flight transitions observe the closed flag
// at commit time and discard their results.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
}

// currentGeneration captures the generation token an asynchronous operation
// must present at commit time. Logout and reset bump the generation, so a
// commit from before the bump is discarded.
func (m *Manager) currentGeneration() uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generation
}

func (m *Manager) bumpGeneration() uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.generation = uuid.New()
	return m.generation
}

func (m *Manager) isInitializing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session.IsInitializing
}

func (m *Manager) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// refreshAction selects what finalize does with the persisted refresh token.
type refreshAction int

const (
	refreshKeep refreshAction = iota // leave the durable record untouched
	refreshSet                       // persist (overwrite) the token
	refreshClear                     // remove the durable record
)

// commit describes one transition's field updates. The set* flags carry the
// distinction between "leave untouched" and "set to the zero value".
type commit struct {
	setToken      bool
	token         string
	setAuth       bool
	authenticated bool
	setUser       bool
	user          *users.User
	refresh       refreshAction
	refreshToken  string
	redirect      string // transition's default redirect; override wins
}

// finalize atomically applies a commit, in fixed order: (1) access token and
// its propagation to the token store, (2) authentication flag, (3) user,
// (4) refresh token persistence, (5) exactly one redirect resolution. Returns
// false, applying nothing, when the manager is closed or the generation no
// longer matches.
func (m *Manager) finalize(gen uuid.UUID, c commit) bool {
	m.mu.Lock()
	if m.closed || gen != m.generation {
		m.mu.Unlock()
		return false
	}

	if c.setToken {
		m.session.AccessToken = c.token
		if c.token != "" {
			m.store.SetAccessToken(c.token)
		} else {
			m.store.ClearAccessToken()
		}
	}

	if c.setAuth {
		m.session.IsAuthenticated = c.authenticated
	}

	if c.setUser {
		m.session.User = c.user
	}

	switch c.refresh {
	case refreshSet:
		if err := m.store.SetRefreshToken(c.refreshToken); err != nil {
			log.Warn().Err(err).Msg("Unable to persist refresh token in storage")
		}
	case refreshClear:
		if err := m.store.ClearRefreshToken(); err != nil {
			log.Warn().Err(err).Msg("Unable to clear refresh token from storage")
		}
	}
	m.mu.Unlock()

	// Outside the lock: navigators may call back into the manager.
	m.redirects.Resolve(c.redirect)
	return true
}

func (m *Manager) setError(gen uuid.UUID, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || gen != m.generation {
		return
	}
	m.session.Error = message
}

func (m *Manager) clearError(gen uuid.UUID) {
	m.setError(gen, "")
}

// finishInitializing flips IsInitializing false. It transitions exactly once.
func (m *Manager) finishInitializing() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.session.IsInitializing = false
}

// resolveUser prefers the payload-embedded user and falls back to a profile
// fetch with the new access token when the payload has none (or an invalid one).
func (m *Manager) resolveUser(ctx context.Context, payload *authclient.AuthPayload) (*users.User, error) {
	if payload.User != nil {
		if user, err := users.Normalize(payload.User); err == nil {
			return user, nil
		}
	}
	return m.api.Profile(ctx, payload.AccessToken)
}

// normalizeError reduces any failure to a single human-readable string; raw
// error objects never reach session state.
func normalizeError(err error) string {
	if err == nil {
		return "unknown authentication error"
	}
	var svcErr *authclient.ServiceError
	if errors.As(err, &svcErr) {
		return svcErr.Message
	}
	return err.Error()
}
