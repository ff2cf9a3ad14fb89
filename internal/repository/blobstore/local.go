package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// LocalStore maps remote paths onto a directory of the local filesystem.
type LocalStore struct {
	root string
}

func NewLocalStore(root string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create local store root: %w", err)
	}
	return &LocalStore{root: root}, nil
}

func (s *LocalStore) EnsureFolder(_ context.Context, folder string) error {
	return os.MkdirAll(s.resolve(folder), 0o755)
}

func (s *LocalStore) Download(_ context.Context, filePath string) ([]byte, error) {
	data, err := os.ReadFile(s.resolve(filePath))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, filePath)
	}
	return data, err
}

func (s *LocalStore) Upload(_ context.Context, filePath string, data []byte) error {
	target := s.resolve(filePath)
	if _, err := os.Stat(filepath.Dir(target)); err != nil {
		return fmt.Errorf("upload %s: parent folder: %w", filePath, err)
	}

	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, target)
}

func (s *LocalStore) resolve(p string) string {
	return filepath.Join(s.root, filepath.FromSlash(Clean(p)))
}
