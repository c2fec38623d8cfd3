package repofake

import (
	"sync"

	"github.com/jrsteele09/go-session-manager/tokenstore"
)

var _ tokenstore.Repo = (*FakeTokenRepo)(nil)

// FakeTokenRepo is an in-memory Repo that records calls and can be forced to
// fail, for exercising storage error paths.
type FakeTokenRepo struct {
	lock    sync.Mutex
	token   string
	present bool

	GetErr   error
	SetErr   error
	ClearErr error

	SetCalls   int
	ClearCalls int
}

func NewFakeTokenRepo() *FakeTokenRepo {
	return &FakeTokenRepo{}
}

func (r *FakeTokenRepo) Get() (string, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.GetErr != nil {
		return "", r.GetErr
	}
	if !r.present {
		return "", tokenstore.ErrNotFound
	}
	return r.token, nil
}

func (r *FakeTokenRepo) Set(token string) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.SetCalls++
	if r.SetErr != nil {
		return r.SetErr
	}
	r.token = token
	r.present = true
	return nil
}

func (r *FakeTokenRepo) Clear() error {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.ClearCalls++
	if r.ClearErr != nil {
		return r.ClearErr
	}
	r.token = ""
	r.present = false
	return nil
}

// Stored returns the currently stored token and whether one is present.
func (r *FakeTokenRepo) Stored() (string, bool) {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.token, r.present
}
