package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"checkmark/api/internal/store"
)

func TestFileStoreContract(t *testing.T) {
	files := store.New(t.TempDir())
	if err := files.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	runStoreContract(t, NewFileStore(files))
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	first := NewFileStore(store.New(dir))
	if err := first.Create(ctx, "sid", "alice"); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	second := NewFileStore(store.New(dir))
	username, err := second.Lookup(ctx, "sid")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if username != "alice" {
		t.Fatalf("expected alice, got %q", username)
	}
}

func TestFileStoreConcurrentCreatesKeepEverySession(t *testing.T) {
	files := store.New(t.TempDir())
	if err := files.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	s := NewFileStore(files)
	ctx := context.Background()

	const writers = 32
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- s.Create(ctx, fmt.Sprintf("sid-%d", i), fmt.Sprintf("user%d", i))
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	for i := 0; i < writers; i++ {
		username, err := s.Lookup(ctx, fmt.Sprintf("sid-%d", i))
		if err != nil {
			t.Fatalf("Lookup(sid-%d) error = %v", i, err)
		}
		if username != fmt.Sprintf("user%d", i) {
			t.Fatalf("sid-%d resolved to %q", i, username)
		}
	}
}

// runStoreContract exercises behaviour every backend shares.
func runStoreContract(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	if _, err := s.Lookup(ctx, "missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("Lookup(missing) error = %v, want ErrSessionNotFound", err)
	}
	if _, err := s.Lookup(ctx, ""); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("Lookup(empty) error = %v, want ErrSessionNotFound", err)
	}

	for id, username := range map[string]string{"s1": "alice", "s2": "alice", "s3": "bob"} {
		if err := s.Create(ctx, id, username); err != nil {
			t.Fatalf("Create(%s) error = %v", id, err)
		}
	}
	username, err := s.Lookup(ctx, "s3")
	if err != nil || username != "bob" {
		t.Fatalf("Lookup(s3) = %q, %v; want bob", username, err)
	}

	if err := s.Delete(ctx, "s3"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := s.Delete(ctx, "s3"); err != nil {
		t.Fatalf("second Delete() error = %v", err)
	}
	if _, err := s.Lookup(ctx, "s3"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("Lookup(s3) after delete error = %v", err)
	}

	if err := s.DeleteForUser(ctx, "alice"); err != nil {
		t.Fatalf("DeleteForUser() error = %v", err)
	}
	for _, id := range []string{"s1", "s2"} {
		if _, err := s.Lookup(ctx, id); !errors.Is(err, ErrSessionNotFound) {
			t.Fatalf("Lookup(%s) after DeleteForUser error = %v", id, err)
		}
	}

	if err := s.Create(ctx, "s4", "carol"); err != nil {
		t.Fatalf("Create(s4) error = %v", err)
	}
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if _, err := s.Lookup(ctx, "s4"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("Lookup(s4) after Clear error = %v", err)
	}
}
