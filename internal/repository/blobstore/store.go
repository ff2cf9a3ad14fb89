package blobstore

import (
	"context"
	"errors"
	"path"
	"strings"
)

// ErrNotFound is returned by Download when nothing is stored at the path.
var ErrNotFound = errors.New("remote file not found")

// Store is a path-addressed blob store. Paths are slash separated and absolute.
type Store interface {
	// EnsureFolder creates the folder if absent; an existing folder is not an error.
	EnsureFolder(ctx context.Context, folder string) error
	// Download returns ErrNotFound when the path does not exist.
	Download(ctx context.Context, filePath string) ([]byte, error)
	// Upload overwrites the file at the path. The parent folder must already exist.
	Upload(ctx context.Context, filePath string, data []byte) error
}

// Put ensures the parent folder of filePath exists and uploads data to it.
func Put(ctx context.Context, store Store, filePath string, data []byte) error {
	if folder := Dir(filePath); folder != "/" {
		if err := store.EnsureFolder(ctx, folder); err != nil {
			return err
		}
	}
	return store.Upload(ctx, filePath, data)
}

// Dir returns the parent folder of filePath, "/" for top level files.
func Dir(filePath string) string {
	dir := path.Dir(Clean(filePath))
	if dir == "." {
		return "/"
	}
	return dir
}

// Clean normalizes a remote path to its absolute, slash separated form.
func Clean(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}
