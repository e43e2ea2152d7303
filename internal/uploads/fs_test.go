package uploads

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"checkmark/api/internal/store"
)

func newTestFSStore(t *testing.T) *FSStore {
	t.Helper()
	files := store.New(t.TempDir())
	if err := files.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	return NewFSStore(files)
}

func TestFSStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestFSStore(t)

	payload := []byte("\x89PNG fake")
	if err := s.Put(ctx, "icon-32.png", bytes.NewReader(payload), int64(len(payload)), "image/png"); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	rc, err := s.Get(ctx, "icon-32.png")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	defer rc.Close()
	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("unexpected content %q", got)
	}

	if err := s.Delete(ctx, "icon-32.png"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := s.Get(ctx, "icon-32.png"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get() after delete error = %v, want ErrNotFound", err)
	}
}

func TestFSStoreRejectsBadNames(t *testing.T) {
	ctx := context.Background()
	s := newTestFSStore(t)

	cases := map[string]error{
		"../escape.png": ErrInvalidName,
		".hidden.png":   ErrInvalidName,
		"":              ErrInvalidName,
		"script.js":     ErrUnsupported,
		"icon":          ErrUnsupported,
	}
	for name, want := range cases {
		err := s.Put(ctx, name, strings.NewReader("x"), 1, "")
		if !errors.Is(err, want) {
			t.Fatalf("Put(%q) error = %v, want %v", name, err, want)
		}
	}
}

func TestFSStoreRejectsLargeUploads(t *testing.T) {
	s := newTestFSStore(t)
	big := bytes.NewReader(make([]byte, MaxSize+1))
	if err := s.Put(context.Background(), "big.png", big, MaxSize+1, "image/png"); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("Put() error = %v, want ErrTooLarge", err)
	}
}

func TestContentType(t *testing.T) {
	cases := map[string]string{
		"a.PNG":  "image/png",
		"a.jpeg": "image/jpeg",
		"a.svg":  "image/svg+xml",
		"a.ico":  "image/x-icon",
		"a.webp": "image/webp",
	}
	for name, want := range cases {
		got, ok := ContentType(name)
		if !ok || got != want {
			t.Fatalf("ContentType(%q) = %q, %v; want %q", name, got, ok, want)
		}
	}
	if _, ok := ContentType("a.exe"); ok {
		t.Fatal("expected .exe to be rejected")
	}
}
