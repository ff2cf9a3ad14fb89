package blobstore

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore is an in-process Store used for development and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	files   map[string][]byte
	folders map[string]bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		files:   make(map[string][]byte),
		folders: map[string]bool{"/": true},
	}
}

func (s *MemoryStore) EnsureFolder(_ context.Context, folder string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for f := Clean(folder); !s.folders[f]; f = Dir(f) {
		s.folders[f] = true
	}
	return nil
}

func (s *MemoryStore) Download(_ context.Context, filePath string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.files[Clean(filePath)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, filePath)
	}
	return append([]byte(nil), data...), nil
}

func (s *MemoryStore) Upload(_ context.Context, filePath string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := Clean(filePath)
	if !s.folders[Dir(p)] {
		return fmt.Errorf("upload %s: parent folder %s does not exist", filePath, Dir(p))
	}
	s.files[p] = append([]byte(nil), data...)
	return nil
}

// Paths lists every stored file path.
func (s *MemoryStore) Paths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.files))
	for p := range s.files {
		out = append(out, p)
	}
	return out
}
