package session

import "errors"

var (
	ErrNotAuthenticated = errors.New("no authenticated session")
	ErrInitializing     = errors.New("session manager is still initializing")
	ErrManagerClosed    = errors.New("session manager closed")
)
