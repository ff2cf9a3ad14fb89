package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/mamadbah2/medpos/pkg/clients/dropbox"
)

func TestDirAndClean(t *testing.T) {
	cases := map[string]string{
		"/mmm/sales/main_sales.csv": "/mmm/sales",
		"main_sales.csv":            "/",
		"/top.json":                 "/",
		"mmm\\invoice\\a.pdf":       "/mmm/invoice",
	}
	for in, want := range cases {
		if got := Dir(in); got != want {
			t.Fatalf("Dir(%q): expected %q, got %q", in, want, got)
		}
	}
}

func TestMemoryStoreSemantics(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if _, err := s.Download(ctx, "/a/b.csv"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.Upload(ctx, "/a/b.csv", []byte("x")); err == nil {
		t.Fatalf("expected upload without parent folder to fail")
	}
	if err := Put(ctx, s, "/a/b.csv", []byte("one")); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	if err := s.EnsureFolder(ctx, "/a"); err != nil {
		t.Fatalf("ensure existing folder must succeed: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := s.Upload(ctx, "/a/b.csv", []byte("same")); err != nil {
			t.Fatalf("upload %d failed: %v", i, err)
		}
	}
	data, err := s.Download(ctx, "/a/b.csv")
	if err != nil || string(data) != "same" {
		t.Fatalf("expected overwritten content, got %q (%v)", data, err)
	}
}

func TestLocalStoreSemantics(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("new local store: %v", err)
	}

	if _, err := s.Download(ctx, "/mmm/data/price_list.json"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := Put(ctx, s, "/mmm/data/price_list.json", []byte(`{}`)); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	if err := s.EnsureFolder(ctx, "/mmm/data"); err != nil {
		t.Fatalf("ensure existing folder must succeed: %v", err)
	}
	data, err := s.Download(ctx, "/mmm/data/price_list.json")
	if err != nil || !bytes.Equal(data, []byte(`{}`)) {
		t.Fatalf("unexpected content %q (%v)", data, err)
	}
}

type stubDropbox struct {
	createErr   error
	downloadErr error
	created     []string
}

func (s *stubDropbox) CreateFolder(_ context.Context, path string) error {
	s.created = append(s.created, path)
	return s.createErr
}

func (s *stubDropbox) Download(_ context.Context, _ string) ([]byte, error) {
	return nil, s.downloadErr
}

func (s *stubDropbox) Upload(_ context.Context, _ string, _ []byte) error {
	return nil
}

func TestDropboxStoreMapsErrors(t *testing.T) {
	ctx := context.Background()

	conflict := &stubDropbox{createErr: fmt.Errorf("%w: path/conflict/folder", dropbox.ErrPathConflict)}
	if err := NewDropboxStore(conflict, nil).EnsureFolder(ctx, "/mmm/sales"); err != nil {
		t.Fatalf("conflict must be treated as success, got %v", err)
	}

	failing := &stubDropbox{createErr: errors.New("insufficient_space")}
	if err := NewDropboxStore(failing, nil).EnsureFolder(ctx, "/mmm/sales"); err == nil {
		t.Fatalf("expected non-conflict error to propagate")
	}

	root := &stubDropbox{}
	if err := NewDropboxStore(root, nil).EnsureFolder(ctx, "/"); err != nil || len(root.created) != 0 {
		t.Fatalf("root folder must not be created, calls=%v err=%v", root.created, err)
	}

	missing := &stubDropbox{downloadErr: fmt.Errorf("%w: path/not_found", dropbox.ErrPathNotFound)}
	if _, err := NewDropboxStore(missing, nil).Download(ctx, "/x.csv"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
