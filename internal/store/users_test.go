package store

import (
	"context"
	"errors"
	"testing"
)

func TestCreateInitialUserOnlyOnce(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	has, err := s.HasUsers(ctx)
	if err != nil || has {
		t.Fatalf("HasUsers() = %v, %v; want false", has, err)
	}
	if err := s.CreateInitialUser(ctx, User{Username: "admin", PasswordHash: "x", IsAdmin: true}); err != nil {
		t.Fatalf("CreateInitialUser() error = %v", err)
	}
	if err := s.CreateInitialUser(ctx, User{Username: "other", PasswordHash: "x"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("second CreateInitialUser() error = %v, want ErrConflict", err)
	}
	if err := s.CreateUser(ctx, User{Username: "admin"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("duplicate CreateUser() error = %v, want ErrConflict", err)
	}
	if err := s.CreateUser(ctx, User{Username: "bad/name"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("CreateUser(bad/name) error = %v, want ErrValidation", err)
	}

	user, err := s.GetUser(ctx, "admin")
	if err != nil {
		t.Fatalf("GetUser() error = %v", err)
	}
	if !user.IsAdmin || user.CreatedAt.IsZero() {
		t.Fatalf("unexpected user %+v", user)
	}
	if _, err := s.GetUser(ctx, "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetUser(ghost) error = %v, want ErrNotFound", err)
	}
}

func TestFindUserByAPIKey(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := s.CreateUser(ctx, User{Username: "alice", APIKey: "ck_alice"}); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	if err := s.CreateUser(ctx, User{Username: "bob"}); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	user, err := s.FindUserByAPIKey(ctx, "ck_alice")
	if err != nil {
		t.Fatalf("FindUserByAPIKey() error = %v", err)
	}
	if user == nil || user.Username != "alice" {
		t.Fatalf("expected alice, got %+v", user)
	}
	for _, key := range []string{"", "ck_nobody"} {
		user, err := s.FindUserByAPIKey(ctx, key)
		if err != nil || user != nil {
			t.Fatalf("FindUserByAPIKey(%q) = %+v, %v; want nil", key, user, err)
		}
	}
}

func TestDeleteUserRemovesContent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := s.CreateUser(ctx, User{Username: "bob"}); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	if _, err := s.CreateChecklist(ctx, "bob", Checklist{Title: "Tasks"}); err != nil {
		t.Fatalf("CreateChecklist() error = %v", err)
	}
	if _, err := s.CreateNote(ctx, "bob", Note{Title: "Diary"}); err != nil {
		t.Fatalf("CreateNote() error = %v", err)
	}

	if err := s.DeleteUser(ctx, "bob"); err != nil {
		t.Fatalf("DeleteUser() error = %v", err)
	}
	if _, err := s.GetUser(ctx, "bob"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetUser() error = %v, want ErrNotFound", err)
	}
	if exists, _ := s.Exists("checklists/bob"); exists {
		t.Fatal("checklist tree still present")
	}
	if exists, _ := s.Exists("notes/bob"); exists {
		t.Fatal("note tree still present")
	}
	if err := s.DeleteUser(ctx, "bob"); err != nil {
		t.Fatalf("second DeleteUser() error = %v", err)
	}
}

func TestUpdateUserKeepsUsername(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := s.CreateUser(ctx, User{Username: "alice"}); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	updated, err := s.UpdateUser(ctx, "alice", func(u *User) error {
		u.Username = "mallory"
		u.IsAdmin = true
		return nil
	})
	if err != nil {
		t.Fatalf("UpdateUser() error = %v", err)
	}
	if updated.Username != "alice" || !updated.IsAdmin {
		t.Fatalf("unexpected user %+v", updated)
	}
	if _, err := s.UpdateUser(ctx, "ghost", func(*User) error { return nil }); !errors.Is(err, ErrNotFound) {
		t.Fatalf("UpdateUser(ghost) error = %v, want ErrNotFound", err)
	}
}
