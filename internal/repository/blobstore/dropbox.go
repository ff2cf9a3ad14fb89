package blobstore

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mamadbah2/medpos/pkg/clients/dropbox"
)

// DropboxStore adapts the Dropbox API client to Store.
type DropboxStore struct {
	client dropbox.Client
	logger *zap.Logger
}

// NewDropboxStore wraps a Dropbox client.
func NewDropboxStore(client dropbox.Client, logger *zap.Logger) *DropboxStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DropboxStore{client: client, logger: logger}
}

func (s *DropboxStore) EnsureFolder(ctx context.Context, folder string) error {
	folder = Clean(folder)
	if folder == "/" {
		return nil
	}

	err := s.client.CreateFolder(ctx, folder)
	switch {
	case err == nil:
		s.logger.Debug("folder created", zap.String("folder", folder))
		return nil
	case errors.Is(err, dropbox.ErrPathConflict):
		return nil
	default:
		return fmt.Errorf("ensure folder %s: %w", folder, err)
	}
}

func (s *DropboxStore) Download(ctx context.Context, filePath string) ([]byte, error) {
	data, err := s.client.Download(ctx, Clean(filePath))
	if errors.Is(err, dropbox.ErrPathNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, filePath)
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (s *DropboxStore) Upload(ctx context.Context, filePath string, data []byte) error {
	if err := s.client.Upload(ctx, Clean(filePath), data); err != nil {
		return err
	}
	s.logger.Debug("file uploaded", zap.String("path", filePath), zap.Int("bytes", len(data)))
	return nil
}
