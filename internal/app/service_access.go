package app

import (
	"context"
	"errors"

	"checkmark/api/internal/rbac"
	"checkmark/api/internal/search"
	"checkmark/api/internal/store"
)

// itemOwner finds whose tree holds an item: the actor's own tree first, then
// the owner named by a grant that includes the actor, then any tree when the
// actor is an admin.
func (s *Service) itemOwner(ctx context.Context, actor store.User, kind store.ItemType, id string) (string, *store.Grant, error) {
	grant, err := s.files.GetGrant(ctx, kind, id)
	if err != nil {
		return "", nil, err
	}
	owned, err := s.hasItem(ctx, kind, actor.Username, id)
	if err != nil {
		return "", nil, err
	}
	if owned {
		return actor.Username, grant, nil
	}
	if grant != nil && grant.SharedWithUser(actor.Username) {
		return grant.Owner, grant, nil
	}
	if actor.IsAdmin {
		owner, err := s.findOwner(ctx, kind, id)
		if err != nil {
			return "", nil, err
		}
		return owner, grant, nil
	}
	return "", nil, errNotFound(itemLabel(kind))
}

// authorize locates the item and checks that actor may perform action on it.
func (s *Service) authorize(ctx context.Context, actor store.User, kind store.ItemType, id string, action rbac.Action) (string, *store.Grant, error) {
	owner, grant, err := s.itemOwner(ctx, actor, kind, id)
	if err != nil {
		return "", nil, err
	}
	var sharedWith []string
	if grant != nil {
		sharedWith = grant.SharedWith
	}
	if !rbac.CanAccessItem(actor.Username, actor.IsAdmin, owner, sharedWith, action) {
		return "", nil, errForbidden()
	}
	return owner, grant, nil
}

func (s *Service) hasItem(ctx context.Context, kind store.ItemType, owner, id string) (bool, error) {
	var err error
	switch kind {
	case store.ItemChecklist:
		_, err = s.files.GetChecklist(ctx, owner, id)
	case store.ItemNote:
		_, err = s.files.GetNote(ctx, owner, id)
	default:
		return false, errValidation("unknown item type")
	}
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (s *Service) findOwner(ctx context.Context, kind store.ItemType, id string) (string, error) {
	switch kind {
	case store.ItemChecklist:
		list, err := s.files.FindChecklist(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return "", errNotFound("Checklist")
		}
		return list.Owner, err
	case store.ItemNote:
		note, err := s.files.FindNote(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return "", errNotFound("Note")
		}
		return note.Owner, err
	}
	return "", errValidation("unknown item type")
}

func itemLabel(kind store.ItemType) string {
	if kind == store.ItemNote {
		return "Note"
	}
	return "Checklist"
}

func parseItemType(raw string) (store.ItemType, error) {
	kind, ok := store.ParseItemType(raw)
	if !ok {
		return "", errValidation("type must be checklist or note")
	}
	return kind, nil
}

func readers(owner string, grant *store.Grant) []string {
	result := []string{owner}
	if grant != nil {
		result = append(result, grant.SharedWith...)
	}
	return result
}

// reindex refreshes the search record of an item after a write. Failures are
// logged by the search service.
func (s *Service) reindex(ctx context.Context, kind store.ItemType, id, owner string) {
	grant, err := s.files.GetGrant(ctx, kind, id)
	if err != nil {
		return
	}
	switch kind {
	case store.ItemChecklist:
		list, err := s.files.GetChecklist(ctx, owner, id)
		if err != nil {
			return
		}
		s.search.Index(checklistRecord(list, grant))
	case store.ItemNote:
		note, err := s.files.GetNote(ctx, owner, id)
		if err != nil {
			return
		}
		s.search.Index(noteRecord(note, grant))
	}
}

func (s *Service) unindex(kind store.ItemType, ids ...string) {
	for _, id := range ids {
		s.search.Delete(search.ResultType(kind), id)
	}
}
