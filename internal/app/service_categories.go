package app

import (
	"context"
	"log"

	"checkmark/api/internal/store"
)

func (s *Service) ListCategories(ctx context.Context, actor store.User, kind store.ItemType) ([]store.Category, error) {
	return s.files.ListCategories(ctx, kind, actor.Username)
}

func (s *Service) CreateCategory(ctx context.Context, actor store.User, kind store.ItemType, name string) (store.Category, error) {
	return s.files.CreateCategory(ctx, kind, actor.Username, name)
}

// RenameCategory moves the folder. Ids are unchanged, so only the search
// records need refreshing.
func (s *Service) RenameCategory(ctx context.Context, actor store.User, kind store.ItemType, from, to string) (store.Category, error) {
	category, err := s.files.RenameCategory(ctx, kind, actor.Username, from, to)
	if err != nil {
		return store.Category{}, err
	}
	for _, id := range s.idsInCategory(ctx, kind, actor.Username, category.Name) {
		s.reindex(ctx, kind, id, actor.Username)
	}
	return category, nil
}

// DeleteCategory removes the category with every item in it and returns the
// ids of the removed items.
func (s *Service) DeleteCategory(ctx context.Context, actor store.User, kind store.ItemType, name string) ([]string, error) {
	ids, err := s.files.DeleteCategory(ctx, kind, actor.Username, name)
	if err != nil {
		return nil, err
	}
	if kind == store.ItemNote && s.history != nil {
		for _, id := range ids {
			if err := s.history.Remove(actor.Username, id, actor.Username); err != nil {
				log.Printf("history: remove %s/%s: %v", actor.Username, id, err)
			}
		}
	}
	s.unindex(kind, ids...)
	return ids, nil
}

func (s *Service) idsInCategory(ctx context.Context, kind store.ItemType, owner, category string) []string {
	normalized, err := store.NormalizeCategory(category)
	if err != nil {
		return nil
	}
	var ids []string
	switch kind {
	case store.ItemChecklist:
		lists, err := s.files.ListChecklists(ctx, owner)
		if err != nil {
			return nil
		}
		for _, list := range lists {
			if list.Category == normalized {
				ids = append(ids, list.ID)
			}
		}
	case store.ItemNote:
		notes, err := s.files.ListNotes(ctx, owner)
		if err != nil {
			return nil
		}
		for _, note := range notes {
			if note.Category == normalized {
				ids = append(ids, note.ID)
			}
		}
	}
	return ids
}
