package store

import (
	"context"
	"testing"
)

func TestUpdateGrantNormalizesRecipients(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	grant, err := s.UpdateGrant(ctx, ItemNote, "n1", "alice", func(g *Grant) error {
		g.SharedWith = []string{"carol", "bob", "alice", "bob", ""}
		return nil
	})
	if err != nil {
		t.Fatalf("UpdateGrant() error = %v", err)
	}
	if grant == nil {
		t.Fatal("expected grant")
	}
	if len(grant.SharedWith) != 2 || grant.SharedWith[0] != "bob" || grant.SharedWith[1] != "carol" {
		t.Fatalf("unexpected recipients %v", grant.SharedWith)
	}
	if grant.Owner != "alice" || grant.ItemType != ItemNote {
		t.Fatalf("unexpected grant %+v", grant)
	}

	shared, err := s.GrantsSharedWith(ctx, "bob")
	if err != nil {
		t.Fatalf("GrantsSharedWith() error = %v", err)
	}
	if len(shared) != 1 || shared[0].ItemID != "n1" {
		t.Fatalf("unexpected grants for bob %+v", shared)
	}
}

func TestUpdateGrantRemovesEmptyGrant(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if _, err := s.UpdateGrant(ctx, ItemChecklist, "c1", "alice", func(g *Grant) error {
		g.IsPubliclyShared = true
		return nil
	}); err != nil {
		t.Fatalf("UpdateGrant() error = %v", err)
	}
	grant, err := s.UpdateGrant(ctx, ItemChecklist, "c1", "alice", func(g *Grant) error {
		g.IsPubliclyShared = false
		return nil
	})
	if err != nil {
		t.Fatalf("UpdateGrant() error = %v", err)
	}
	if grant != nil {
		t.Fatalf("expected nil grant, got %+v", grant)
	}
	stored, err := s.GetGrant(ctx, ItemChecklist, "c1")
	if err != nil {
		t.Fatalf("GetGrant() error = %v", err)
	}
	if stored != nil {
		t.Fatalf("expected grant to be gone, got %+v", stored)
	}
}

func TestDeleteGrantsForUser(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	share := func(kind ItemType, id, owner string, public bool, with ...string) {
		t.Helper()
		if _, err := s.UpdateGrant(ctx, kind, id, owner, func(g *Grant) error {
			g.IsPubliclyShared = public
			g.SharedWith = with
			return nil
		}); err != nil {
			t.Fatalf("UpdateGrant(%s) error = %v", id, err)
		}
	}
	share(ItemNote, "owned-by-bob", "bob", true)
	share(ItemNote, "only-bob", "alice", false, "bob")
	share(ItemChecklist, "bob-and-carol", "alice", false, "bob", "carol")

	if err := s.DeleteGrantsForUser(ctx, "bob"); err != nil {
		t.Fatalf("DeleteGrantsForUser() error = %v", err)
	}

	for _, id := range []string{"owned-by-bob", "only-bob"} {
		grant, err := s.GetGrant(ctx, ItemNote, id)
		if err != nil {
			t.Fatalf("GetGrant(%s) error = %v", id, err)
		}
		if grant != nil {
			t.Fatalf("expected grant %s removed, got %+v", id, grant)
		}
	}
	grant, err := s.GetGrant(ctx, ItemChecklist, "bob-and-carol")
	if err != nil {
		t.Fatalf("GetGrant() error = %v", err)
	}
	if grant == nil || len(grant.SharedWith) != 1 || grant.SharedWith[0] != "carol" {
		t.Fatalf("expected only carol to remain, got %+v", grant)
	}
}
