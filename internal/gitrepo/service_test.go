package gitrepo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func TestNoteHistoryLifecycle(t *testing.T) {
	tempDir := t.TempDir()
	svc := New(tempDir)

	first, err := svc.Record("alice", "note-1", "# Plan\n\nv1\n", "alice", "Create note")
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if first.Hash == "" || len(first.ShortHash) != 7 {
		t.Fatalf("unexpected commit %+v", first)
	}
	if _, err := os.Stat(filepath.Join(tempDir, "alice", ".git")); err != nil {
		t.Fatalf("repo directory missing: %v", err)
	}

	second, err := svc.Record("alice", "note-1", "# Plan\n\nv2\n", "bob", "Update note")
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if _, err := svc.Record("alice", "note-2", "other", "alice", "Create other"); err != nil {
		t.Fatalf("Record(note-2) error = %v", err)
	}

	history, err := svc.History("alice", "note-1", 10)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(history))
	}
	if history[0].Hash != second.Hash || history[0].Author != "bob" || history[0].Message != "Update note" {
		t.Fatalf("unexpected newest entry %+v", history[0])
	}

	old, err := svc.ContentAt("alice", "note-1", first.Hash)
	if err != nil {
		t.Fatalf("ContentAt() error = %v", err)
	}
	if old != "# Plan\n\nv1\n" {
		t.Fatalf("unexpected old content %q", old)
	}

	limited, err := svc.History("alice", "note-1", 1)
	if err != nil {
		t.Fatalf("History(limit) error = %v", err)
	}
	if len(limited) != 1 {
		t.Fatalf("expected 1 entry with limit, got %d", len(limited))
	}
}

func TestRecordSkipsUnchangedContent(t *testing.T) {
	svc := New(t.TempDir())

	if _, err := svc.Record("alice", "n", "same", "alice", "first"); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if _, err := svc.Record("alice", "n", "same", "alice", "again"); !errors.Is(err, ErrNoChanges) {
		t.Fatalf("Record(unchanged) error = %v, want ErrNoChanges", err)
	}
}

func TestHistoryWithoutRepo(t *testing.T) {
	svc := New(t.TempDir())

	history, err := svc.History("nobody", "n", 10)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("expected empty history, got %d", len(history))
	}
	if err := svc.Remove("nobody", "n", "nobody"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if _, err := svc.ContentAt("nobody", "n", "abc1234"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("ContentAt() error = %v, want ErrNotFound", err)
	}
}

func TestRemoveAndPurge(t *testing.T) {
	tempDir := t.TempDir()
	svc := New(tempDir)

	commit, err := svc.Record("alice", "n", "body", "alice", "create")
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if err := svc.Remove("alice", "n", "alice"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if err := svc.Remove("alice", "n", "alice"); err != nil {
		t.Fatalf("second Remove() error = %v", err)
	}
	body, err := svc.ContentAt("alice", "n", commit.Hash)
	if err != nil || body != "body" {
		t.Fatalf("ContentAt() after remove = %q, %v", body, err)
	}

	if err := svc.Purge("alice"); err != nil {
		t.Fatalf("Purge() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(tempDir, "alice")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected repo to be removed, stat err = %v", err)
	}
}

func TestRejectsUnsafeNoteIDs(t *testing.T) {
	svc := New(t.TempDir())
	for _, id := range []string{"", "../escape", "a/b", ".git"} {
		if _, err := svc.Record("alice", id, "x", "alice", "bad"); err == nil {
			t.Fatalf("Record(%q) expected error", id)
		}
	}
}

func TestConcurrentRecordSameUser(t *testing.T) {
	svc := New(t.TempDir())

	const writers = 12
	var wg sync.WaitGroup
	errCh := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			noteID := fmt.Sprintf("note-%02d", idx)
			if _, err := svc.Record("alice", noteID, "body "+noteID, "alice", "save "+noteID); err != nil {
				errCh <- err
			}
		}(i)
	}
	wg.Wait()
	close(errCh)

	for err := range errCh {
		if err != nil {
			t.Fatalf("Record() concurrent error = %v", err)
		}
	}
	for i := 0; i < writers; i++ {
		history, err := svc.History("alice", fmt.Sprintf("note-%02d", i), 0)
		if err != nil {
			t.Fatalf("History() error = %v", err)
		}
		if len(history) != 1 {
			t.Fatalf("expected one commit for note-%02d, got %d", i, len(history))
		}
	}
}
