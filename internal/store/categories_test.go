package store

import (
	"context"
	"errors"
	"testing"
)

func TestDeleteCategoryRemovesItemsAndGrants(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	a, err := s.CreateChecklist(ctx, "alice", Checklist{Title: "A", Category: "Work"})
	if err != nil {
		t.Fatalf("CreateChecklist(A) error = %v", err)
	}
	b, err := s.CreateChecklist(ctx, "alice", Checklist{Title: "B", Category: "Work"})
	if err != nil {
		t.Fatalf("CreateChecklist(B) error = %v", err)
	}
	keep, err := s.CreateChecklist(ctx, "alice", Checklist{Title: "Keep", Category: "Home"})
	if err != nil {
		t.Fatalf("CreateChecklist(Keep) error = %v", err)
	}
	if _, err := s.UpdateGrant(ctx, ItemChecklist, a.ID, "alice", func(g *Grant) error {
		g.SharedWith = []string{"bob"}
		return nil
	}); err != nil {
		t.Fatalf("UpdateGrant() error = %v", err)
	}

	ids, err := s.DeleteCategory(ctx, ItemChecklist, "alice", "Work")
	if err != nil {
		t.Fatalf("DeleteCategory() error = %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 removed ids, got %v", ids)
	}

	for _, rel := range []string{a.Path(), b.Path()} {
		if exists, _ := s.Exists(rel); exists {
			t.Fatalf("%s still exists", rel)
		}
	}
	lists, err := s.ListChecklists(ctx, "alice")
	if err != nil {
		t.Fatalf("ListChecklists() error = %v", err)
	}
	if len(lists) != 1 || lists[0].ID != keep.ID {
		t.Fatalf("expected only Keep to remain, got %+v", lists)
	}
	grant, err := s.GetGrant(ctx, ItemChecklist, a.ID)
	if err != nil {
		t.Fatalf("GetGrant() error = %v", err)
	}
	if grant != nil {
		t.Fatalf("expected grant to be removed, got %+v", grant)
	}

	categories, err := s.ListCategories(ctx, ItemChecklist, "alice")
	if err != nil {
		t.Fatalf("ListCategories() error = %v", err)
	}
	if len(categories) != 1 || categories[0].Name != "Home" || categories[0].Count != 1 {
		t.Fatalf("unexpected categories %+v", categories)
	}
}

func TestCreateAndRenameCategory(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	created, err := s.CreateCategory(ctx, ItemNote, "alice", " Ideas ")
	if err != nil {
		t.Fatalf("CreateCategory() error = %v", err)
	}
	if created.Name != "Ideas" || created.Count != 0 {
		t.Fatalf("unexpected category %+v", created)
	}
	note, err := s.CreateNote(ctx, "alice", Note{Title: "Spark", Category: "Ideas"})
	if err != nil {
		t.Fatalf("CreateNote() error = %v", err)
	}

	renamed, err := s.RenameCategory(ctx, ItemNote, "alice", "Ideas", "Someday")
	if err != nil {
		t.Fatalf("RenameCategory() error = %v", err)
	}
	if renamed.Name != "Someday" || renamed.Count != 1 {
		t.Fatalf("unexpected renamed category %+v", renamed)
	}
	moved, err := s.GetNote(ctx, "alice", note.ID)
	if err != nil {
		t.Fatalf("GetNote() error = %v", err)
	}
	if moved.Category != "Someday" {
		t.Fatalf("expected note in Someday, got %q", moved.Category)
	}

	if _, err := s.CreateCategory(ctx, ItemNote, "alice", "Home"); err != nil {
		t.Fatalf("CreateCategory(Home) error = %v", err)
	}
	if _, err := s.RenameCategory(ctx, ItemNote, "alice", "Someday", "Home"); !errors.Is(err, ErrConflict) {
		t.Fatalf("RenameCategory onto existing error = %v, want ErrConflict", err)
	}
}
