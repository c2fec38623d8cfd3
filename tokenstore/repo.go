package tokenstore

import "errors"

// ErrNotFound is returned by Repo implementations when no refresh token is stored.
var ErrNotFound = errors.New("refresh token not found")

// Repo is the durable single-slot storage for the refresh token. Setting a token
// overwrites the previous one; Clear removes the record entirely rather than
// writing an empty sentinel. Concurrent writers from separate processes are
// last-write-wins.
type Repo interface {
	Get() (string, error)
	Set(token string) error
	Clear() error
}
