package tokenstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

// FileRepo stores the refresh token in a small JSON file, one durable key per
// process. The file is created with owner-only permissions.
type FileRepo struct {
	mu   sync.Mutex
	path string
}

type fileRecord struct {
	RefreshToken string `json:"refreshToken"`
}

// NewFileRepo creates a file-backed refresh token repository at path.
func NewFileRepo(path string) (*FileRepo, error) {
	if path == "" {
		return nil, errors.New("[NewFileRepo] path is required")
	}
	return &FileRepo{path: path}, nil
}

func (r *FileRepo) Get() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", errors.Wrap(err, "[FileRepo.Get] read")
	}

	var record fileRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return "", errors.Wrap(err, "[FileRepo.Get] unmarshal")
	}
	if record.RefreshToken == "" {
		return "", ErrNotFound
	}
	return record.RefreshToken, nil
}

func (r *FileRepo) Set(token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(r.path), 0o700); err != nil {
		return errors.Wrap(err, "[FileRepo.Set] mkdir")
	}
	data, err := json.Marshal(fileRecord{RefreshToken: token})
	if err != nil {
		return errors.Wrap(err, "[FileRepo.Set] marshal")
	}
	if err := os.WriteFile(r.path, data, 0o600); err != nil {
		return errors.Wrap(err, "[FileRepo.Set] write")
	}
	return nil
}

func (r *FileRepo) Clear() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.Remove(r.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "[FileRepo.Clear] remove")
	}
	return nil
}
