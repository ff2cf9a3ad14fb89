package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	storageapi "google.golang.org/api/storage/v1"
)

// GCSStore keeps files as objects of a Google Cloud Storage bucket. Object names are
// the remote paths without their leading slash; folders are implicit.
type GCSStore struct {
	service *storageapi.Service
	bucket  string
	logger  *zap.Logger
}

// NewGCSStore builds a bucket backed store. An empty credentials path uses application default credentials.
func NewGCSStore(ctx context.Context, bucket, credentialsPath string, logger *zap.Logger) (*GCSStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := []option.ClientOption{option.WithScopes(storageapi.DevstorageReadWriteScope)}
	if credentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsPath))
	}

	service, err := storageapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage client: %w", err)
	}

	return &GCSStore{service: service, bucket: bucket, logger: logger}, nil
}

// EnsureFolder is a no-op: object names carry the full path.
func (s *GCSStore) EnsureFolder(_ context.Context, _ string) error {
	return nil
}

func (s *GCSStore) Download(ctx context.Context, filePath string) ([]byte, error) {
	resp, err := s.service.Objects.Get(s.bucket, objectName(filePath)).Context(ctx).Download()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, filePath)
		}
		return nil, fmt.Errorf("download object %s: %w", filePath, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", filePath, err)
	}
	return data, nil
}

func (s *GCSStore) Upload(ctx context.Context, filePath string, data []byte) error {
	obj := &storageapi.Object{Name: objectName(filePath)}
	if _, err := s.service.Objects.Insert(s.bucket, obj).Media(bytes.NewReader(data)).Context(ctx).Do(); err != nil {
		return fmt.Errorf("upload object %s: %w", filePath, err)
	}

	s.logger.Debug("object uploaded", zap.String("bucket", s.bucket), zap.String("object", obj.Name), zap.Int("bytes", len(data)))
	return nil
}

func objectName(filePath string) string {
	return strings.TrimPrefix(Clean(filePath), "/")
}
