package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"checkmark/api/internal/rbac"
	"checkmark/api/internal/store"
)

// UpdateSharingInput replaces the fields that are present.
type UpdateSharingInput struct {
	IsPubliclyShared *bool     `json:"isPubliclyShared"`
	SharedWith       *[]string `json:"sharedWith"`
}

// SharedItem summarises an item another user has shared with the caller.
type SharedItem struct {
	Type             store.ItemType `json:"type"`
	ID               string         `json:"id"`
	Title            string         `json:"title"`
	Category         string         `json:"category"`
	Owner            string         `json:"owner"`
	IsPubliclyShared bool           `json:"isPubliclyShared"`
	SharedAt         time.Time      `json:"sharedAt"`
}

// GetItemSharingMetadata returns the grant of an item the actor can read, or
// nil when the item is not shared.
func (s *Service) GetItemSharingMetadata(ctx context.Context, actor store.User, kind store.ItemType, id string) (*store.Grant, error) {
	_, grant, err := s.authorize(ctx, actor, kind, id, rbac.ActionRead)
	if err != nil {
		return nil, err
	}
	return grant, nil
}

func (s *Service) ShareWithUser(ctx context.Context, actor store.User, kind store.ItemType, id, username string) (*store.Grant, error) {
	username = strings.TrimSpace(username)
	return s.updateGrant(ctx, actor, kind, id, func(owner string, grant *store.Grant) error {
		if err := s.checkRecipient(ctx, owner, username); err != nil {
			return err
		}
		if !grant.SharedWithUser(username) {
			grant.SharedWith = append(grant.SharedWith, username)
		}
		return nil
	})
}

func (s *Service) UnshareWithUser(ctx context.Context, actor store.User, kind store.ItemType, id, username string) (*store.Grant, error) {
	return s.updateGrant(ctx, actor, kind, id, func(_ string, grant *store.Grant) error {
		kept := grant.SharedWith[:0]
		for _, name := range grant.SharedWith {
			if name != username {
				kept = append(kept, name)
			}
		}
		grant.SharedWith = kept
		return nil
	})
}

func (s *Service) SetPublic(ctx context.Context, actor store.User, kind store.ItemType, id string, public bool) (*store.Grant, error) {
	return s.updateGrant(ctx, actor, kind, id, func(_ string, grant *store.Grant) error {
		grant.IsPubliclyShared = public
		return nil
	})
}

func (s *Service) UpdateSharing(ctx context.Context, actor store.User, kind store.ItemType, id string, input UpdateSharingInput) (*store.Grant, error) {
	return s.updateGrant(ctx, actor, kind, id, func(owner string, grant *store.Grant) error {
		if input.SharedWith != nil {
			names := make([]string, 0, len(*input.SharedWith))
			for _, name := range *input.SharedWith {
				name = strings.TrimSpace(name)
				if err := s.checkRecipient(ctx, owner, name); err != nil {
					return err
				}
				names = append(names, name)
			}
			grant.SharedWith = names
		}
		if input.IsPubliclyShared != nil {
			grant.IsPubliclyShared = *input.IsPubliclyShared
		}
		return nil
	})
}

// Revoke drops the grant entirely.
func (s *Service) Revoke(ctx context.Context, actor store.User, kind store.ItemType, id string) error {
	owner, _, err := s.authorize(ctx, actor, kind, id, rbac.ActionShare)
	if err != nil {
		return err
	}
	if err := s.files.DeleteGrant(ctx, kind, id); err != nil {
		return err
	}
	s.reindex(ctx, kind, id, owner)
	return nil
}

func (s *Service) updateGrant(ctx context.Context, actor store.User, kind store.ItemType, id string, fn func(owner string, grant *store.Grant) error) (*store.Grant, error) {
	owner, _, err := s.authorize(ctx, actor, kind, id, rbac.ActionShare)
	if err != nil {
		return nil, err
	}
	grant, err := s.files.UpdateGrant(ctx, kind, id, owner, func(g *store.Grant) error {
		return fn(owner, g)
	})
	if err != nil {
		return nil, err
	}
	s.reindex(ctx, kind, id, owner)
	return grant, nil
}

func (s *Service) checkRecipient(ctx context.Context, owner, username string) error {
	if username == "" {
		return errValidation("username is required")
	}
	if username == owner {
		return errValidation("cannot share an item with its owner")
	}
	_, err := s.files.GetUser(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		return errNotFound("User")
	}
	return err
}

// SharedWithMe lists items other users have shared with the actor. Grants
// whose item has disappeared are skipped.
func (s *Service) SharedWithMe(ctx context.Context, actor store.User) ([]SharedItem, error) {
	grants, err := s.files.GrantsSharedWith(ctx, actor.Username)
	if err != nil {
		return nil, err
	}
	items := make([]SharedItem, 0, len(grants))
	for _, grant := range grants {
		item := SharedItem{
			Type:             grant.ItemType,
			ID:               grant.ItemID,
			Owner:            grant.Owner,
			IsPubliclyShared: grant.IsPubliclyShared,
			SharedAt:         grant.UpdatedAt,
		}
		switch grant.ItemType {
		case store.ItemChecklist:
			list, err := s.files.GetChecklist(ctx, grant.Owner, grant.ItemID)
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}
			item.Title, item.Category = list.Title, list.Category
		case store.ItemNote:
			note, err := s.files.GetNote(ctx, grant.Owner, grant.ItemID)
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}
			item.Title, item.Category = note.Title, note.Category
		default:
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

// publicGrant returns the grant of a publicly shared item, or nil for any
// item that is missing, private or only shared with named users.
func (s *Service) publicGrant(ctx context.Context, kind store.ItemType, id string) (*store.Grant, error) {
	grant, err := s.files.GetGrant(ctx, kind, id)
	if err != nil || grant == nil || !grant.IsPubliclyShared {
		return nil, err
	}
	return grant, nil
}

// PublicChecklist loads a checklist for the unauthenticated public view. It
// returns nil when the checklist is not publicly shared.
func (s *Service) PublicChecklist(ctx context.Context, id string) (*store.Checklist, error) {
	grant, err := s.publicGrant(ctx, store.ItemChecklist, id)
	if err != nil || grant == nil {
		return nil, err
	}
	list, err := s.files.GetChecklist(ctx, grant.Owner, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &list, nil
}

func (s *Service) PublicNote(ctx context.Context, id string) (*store.Note, error) {
	grant, err := s.publicGrant(ctx, store.ItemNote, id)
	if err != nil || grant == nil {
		return nil, err
	}
	note, err := s.files.GetNote(ctx, grant.Owner, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &note, nil
}
