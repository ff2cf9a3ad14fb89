package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/medpos/internal/domain/models"
	"github.com/mamadbah2/medpos/internal/repository/blobstore"
)

// Source tells where a loaded catalog came from.
type Source string

const (
	SourceRemote  Source = "remote"
	SourceDefault Source = "default"
)

// LoadResult carries a catalog and whether it fell back to the built-in defaults.
type LoadResult struct {
	Catalog models.Catalog
	Source  Source
	// Warning is set when the remote file existed but could not be decoded.
	Warning error
}

// Fallback reports whether the built-in defaults were used.
func (r LoadResult) Fallback() bool {
	return r.Source == SourceDefault
}

// Service loads, merges and persists price catalogs.
type Service struct {
	store  blobstore.Store
	logger *zap.Logger
}

// NewService wires a catalog service.
func NewService(store blobstore.Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger}
}

// Load reads the catalog stored at path and overlays it on the default seed entries.
// A missing or malformed file yields the defaults; only remote failures are returned as errors.
func (s *Service) Load(ctx context.Context, path string) (LoadResult, error) {
	data, err := s.store.Download(ctx, path)
	if errors.Is(err, blobstore.ErrNotFound) {
		s.logger.Info("catalog not found, using defaults", zap.String("path", path))
		return LoadResult{Catalog: models.DefaultCatalog(), Source: SourceDefault}, nil
	}
	if err != nil {
		return LoadResult{}, fmt.Errorf("load catalog %s: %w", path, err)
	}

	saved, err := Decode(data)
	if err != nil {
		s.logger.Warn("saved catalog is invalid, using defaults", zap.String("path", path), zap.Error(err))
		return LoadResult{Catalog: models.DefaultCatalog(), Source: SourceDefault, Warning: err}, nil
	}

	return LoadResult{Catalog: Merge(models.DefaultCatalog(), saved), Source: SourceRemote}, nil
}

// Save overwrites the catalog stored at path.
func (s *Service) Save(ctx context.Context, c models.Catalog, path string) error {
	data, err := Encode(c)
	if err != nil {
		return err
	}
	if err := blobstore.Put(ctx, s.store, path, data); err != nil {
		return fmt.Errorf("save catalog %s: %w", path, err)
	}

	s.logger.Info("catalog saved", zap.String("path", path), zap.Int("entries", len(c)))
	return nil
}

// Import decodes an uploaded key->price mapping, merges it over base and saves the result.
func (s *Service) Import(ctx context.Context, base models.Catalog, data []byte, path string) (models.Catalog, error) {
	overlay, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrValidation, err)
	}

	merged := Merge(base, overlay)
	if err := s.Save(ctx, merged, path); err != nil {
		return nil, err
	}
	return merged, nil
}

// Merge returns base overlaid with overlay. Neither input is modified.
func Merge(base, overlay models.Catalog) models.Catalog {
	out := base.Clone()
	for k, v := range overlay {
		out[k] = v
	}
	return out
}

// Decode parses a JSON object of identifier to non-negative price.
func Decode(data []byte) (models.Catalog, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: catalog must be a JSON object: %v", models.ErrMalformedData, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: catalog must be a JSON object", models.ErrMalformedData)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: unexpected data after the catalog object", models.ErrMalformedData)
	}

	out := make(models.Catalog, len(raw))
	for name, v := range raw {
		num, ok := v.(json.Number)
		if !ok {
			return nil, fmt.Errorf("%w: price of %q is not a number", models.ErrMalformedData, name)
		}
		price, err := decimal.NewFromString(num.String())
		if err != nil {
			return nil, fmt.Errorf("%w: price of %q: %v", models.ErrMalformedData, name, err)
		}
		if price.IsNegative() {
			return nil, fmt.Errorf("%w: price of %q is negative", models.ErrMalformedData, name)
		}
		out[name] = price
	}
	return out, nil
}

// Encode renders the catalog as indented JSON with sorted keys.
func Encode(c models.Catalog) ([]byte, error) {
	raw := make(map[string]json.Number, len(c))
	for name, price := range c {
		raw[name] = json.Number(price.String())
	}

	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode catalog: %w", err)
	}
	return append(data, '\n'), nil
}
