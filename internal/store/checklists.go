package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"path"
	"sort"
	"strings"
	"time"

	"checkmark/api/internal/util"
)

func checklistDir(owner, category string) string {
	return path.Join(checklistsDir, owner, category)
}

func (s *Store) readChecklist(ref fileRef, owner string) (Checklist, bool, error) {
	data, err := s.ReadFile(ref.rel)
	if err != nil {
		return Checklist{}, false, err
	}
	if len(data) == 0 {
		return Checklist{}, false, nil
	}
	var checklist Checklist
	if err := json.Unmarshal(data, &checklist); err != nil {
		return Checklist{}, false, fmt.Errorf("decode %s: %w", ref.rel, err)
	}
	checklist.Owner = owner
	checklist.Category = ref.category
	checklist.path = ref.rel
	if checklist.ID == "" {
		checklist.ID = slugOf(ref.rel, ".json")
	}
	if checklist.Type == "" {
		checklist.Type = ChecklistSimple
	}
	normalizeItems(&checklist)
	return checklist, true, nil
}

func encodeChecklist(checklist Checklist) ([]byte, error) {
	payload, err := json.MarshalIndent(checklist, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode checklist: %w", err)
	}
	return append(payload, '\n'), nil
}

// ListChecklists returns the owner's checklists, most recently updated first.
// Unreadable files are logged and skipped.
func (s *Store) ListChecklists(ctx context.Context, owner string) ([]Checklist, error) {
	if err := ValidateUsername(owner); err != nil {
		return nil, err
	}
	refs, err := s.listItemFiles(checklistsDir, owner, ".json")
	if err != nil {
		return nil, err
	}
	checklists := make([]Checklist, 0, len(refs))
	for _, ref := range refs {
		checklist, ok, err := s.readChecklist(ref, owner)
		if err != nil {
			log.Printf("store: skip checklist %s: %v", ref.rel, err)
			continue
		}
		if ok {
			checklists = append(checklists, checklist)
		}
	}
	sort.SliceStable(checklists, func(i, j int) bool {
		if !checklists[i].UpdatedAt.Equal(checklists[j].UpdatedAt) {
			return checklists[i].UpdatedAt.After(checklists[j].UpdatedAt)
		}
		return checklists[i].Title < checklists[j].Title
	})
	return checklists, nil
}

// ListAllChecklists aggregates checklists across every user directory.
func (s *Store) ListAllChecklists(ctx context.Context) ([]Checklist, error) {
	owners, err := s.listOwners(checklistsDir)
	if err != nil {
		return nil, err
	}
	all := make([]Checklist, 0)
	for _, owner := range owners {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if ValidateUsername(owner) != nil {
			continue
		}
		checklists, err := s.ListChecklists(ctx, owner)
		if err != nil {
			return nil, err
		}
		all = append(all, checklists...)
	}
	return all, nil
}

func (s *Store) GetChecklist(ctx context.Context, owner, id string) (Checklist, error) {
	checklists, err := s.ListChecklists(ctx, owner)
	if err != nil {
		return Checklist{}, err
	}
	for _, checklist := range checklists {
		if checklist.ID == id {
			return checklist, nil
		}
	}
	return Checklist{}, ErrNotFound
}

// FindChecklist looks the id up in every user's tree.
func (s *Store) FindChecklist(ctx context.Context, id string) (Checklist, error) {
	all, err := s.ListAllChecklists(ctx)
	if err != nil {
		return Checklist{}, err
	}
	for _, checklist := range all {
		if checklist.ID == id {
			return checklist, nil
		}
	}
	return Checklist{}, ErrNotFound
}

// CreateChecklist stores a new checklist under the owner's category folder.
func (s *Store) CreateChecklist(ctx context.Context, owner string, checklist Checklist) (Checklist, error) {
	if err := ValidateUsername(owner); err != nil {
		return Checklist{}, err
	}
	checklist.Title = strings.TrimSpace(checklist.Title)
	if checklist.Title == "" {
		return Checklist{}, validationError("title is required")
	}
	category, err := NormalizeCategory(checklist.Category)
	if err != nil {
		return Checklist{}, err
	}
	if checklist.Type == "" {
		checklist.Type = ChecklistSimple
	}
	if checklist.Type != ChecklistSimple && checklist.Type != ChecklistTask {
		return Checklist{}, validationError("unknown checklist type %q", checklist.Type)
	}

	now := time.Now().UTC()
	checklist.ID = util.NewID("")
	checklist.Owner = owner
	checklist.Category = category
	checklist.CreatedAt = now
	checklist.UpdatedAt = now
	for i := range checklist.Items {
		if checklist.Items[i].ID == "" {
			checklist.Items[i].ID = util.NewID("")
		}
	}
	normalizeItems(&checklist)

	payload, err := encodeChecklist(checklist)
	if err != nil {
		return Checklist{}, err
	}
	rel, err := s.AllocateFile(checklistDir(owner, category), checklist.Title, ".json", payload)
	if err != nil {
		return Checklist{}, err
	}
	checklist.path = rel
	return checklist, nil
}

// UpdateChecklist re-reads the checklist under its file lock, applies fn and
// writes the whole document back. Changing the category moves the file.
func (s *Store) UpdateChecklist(ctx context.Context, owner, id string, fn func(*Checklist) error) (Checklist, error) {
	current, err := s.GetChecklist(ctx, owner, id)
	if err != nil {
		return Checklist{}, err
	}

	var updated Checklist
	err = s.Locked(current.path, func() error {
		fresh, ok, err := s.readChecklist(fileRef{category: current.Category, rel: current.path}, owner)
		if err != nil {
			return err
		}
		if !ok || fresh.ID != id {
			return ErrNotFound
		}
		if err := fn(&fresh); err != nil {
			return err
		}

		fresh.ID = id
		fresh.Owner = owner
		fresh.Title = strings.TrimSpace(fresh.Title)
		if fresh.Title == "" {
			return validationError("title is required")
		}
		if fresh.Type != ChecklistSimple && fresh.Type != ChecklistTask {
			return validationError("unknown checklist type %q", fresh.Type)
		}
		category, err := NormalizeCategory(fresh.Category)
		if err != nil {
			return err
		}
		fresh.Category = category
		fresh.UpdatedAt = time.Now().UTC()
		normalizeItems(&fresh)

		payload, err := encodeChecklist(fresh)
		if err != nil {
			return err
		}
		if category == current.Category {
			if err := s.WriteFile(current.path, payload); err != nil {
				return err
			}
			fresh.path = current.path
			updated = fresh
			return nil
		}

		rel, err := s.AllocateFile(checklistDir(owner, category), fresh.Title, ".json", payload)
		if err != nil {
			return err
		}
		if err := s.DeleteFile(current.path); err != nil {
			return err
		}
		fresh.path = rel
		updated = fresh
		return nil
	})
	return updated, err
}

// DeleteChecklist removes the checklist file and its sharing grant. Deleting
// a checklist that no longer exists is not an error.
func (s *Store) DeleteChecklist(ctx context.Context, owner, id string) error {
	current, err := s.GetChecklist(ctx, owner, id)
	if errors.Is(err, ErrNotFound) {
		return s.DeleteGrant(ctx, ItemChecklist, id)
	}
	if err != nil {
		return err
	}
	err = s.Locked(current.path, func() error {
		return s.DeleteFile(current.path)
	})
	if err != nil {
		return err
	}
	return s.DeleteGrant(ctx, ItemChecklist, id)
}

// normalizeItems sorts items by order, renumbers them densely and keeps the
// completed flag of task items in step with their status.
func normalizeItems(checklist *Checklist) {
	if checklist.Items == nil {
		checklist.Items = []Item{}
	}
	sort.SliceStable(checklist.Items, func(i, j int) bool {
		return checklist.Items[i].Order < checklist.Items[j].Order
	})
	for i := range checklist.Items {
		item := &checklist.Items[i]
		item.Order = i
		if checklist.Type != ChecklistTask {
			continue
		}
		if item.Status == "" {
			if item.Completed {
				item.Status = StatusCompleted
			} else {
				item.Status = StatusTodo
			}
		}
		item.Completed = item.Status == StatusCompleted
	}
}
