package tokenstore

import "sync"

// InMemoryRepo is a process-local Repo implementation. Suitable for tests and
// for hosts that manage durability themselves.
type InMemoryRepo struct {
	mu      sync.RWMutex
	token   string
	present bool
}

// NewInMemoryRepo creates a new in-memory refresh token repository.
func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{}
}

func (r *InMemoryRepo) Get() (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.present {
		return "", ErrNotFound
	}
	return r.token, nil
}

func (r *InMemoryRepo) Set(token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.token = token
	r.present = true
	return nil
}

func (r *InMemoryRepo) Clear() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.token = ""
	r.present = false
	return nil
}
