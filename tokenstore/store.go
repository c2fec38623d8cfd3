package tokenstore

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Store holds the current access token in memory and delegates refresh-token
// durability to a Repo. The session manager is the only writer; the auth service
// client reads AccessToken for outbound header injection.
type Store struct {
	mu          sync.RWMutex
	accessToken string
	repo        Repo
}

// New creates a Store backed by the given refresh-token repository.
func New(repo Repo) *Store {
	return &Store{repo: repo}
}

// AccessToken returns the current in-memory access token, or the empty string
// when the session holds none.
func (s *Store) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// SetAccessToken replaces the in-memory access token.
func (s *Store) SetAccessToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = token
}

// ClearAccessToken drops the in-memory access token.
func (s *Store) ClearAccessToken() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = ""
}

// RefreshToken returns the persisted refresh token, or the empty string when
// none is stored. Storage read failures are logged and treated as absence.
func (s *Store) RefreshToken() string {
	token, err := s.repo.Get()
	if err != nil {
		if err != ErrNotFound {
			log.Warn().Err(err).Msg("Unable to read refresh token from storage")
		}
		return ""
	}
	return token
}

// SetRefreshToken persists the refresh token, overwriting any previous one.
func (s *Store) SetRefreshToken(token string) error {
	return s.repo.Set(token)
}

// ClearRefreshToken removes the persisted refresh token record.
func (s *Store) ClearRefreshToken() error {
	return s.repo.Clear()
}
