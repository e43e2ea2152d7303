package store

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"time"
)

var sharingFile = path.Join(sharingDir, "shared-items.json")

func grantKey(kind ItemType, id string) string {
	return string(kind) + ":" + id
}

func (s *Store) loadGrants() (map[string]Grant, error) {
	data, err := s.ReadFile(sharingFile)
	if err != nil {
		return nil, err
	}
	grants := make(map[string]Grant)
	if len(data) == 0 {
		return grants, nil
	}
	if err := json.Unmarshal(data, &grants); err != nil {
		return nil, fmt.Errorf("decode sharing metadata: %w", err)
	}
	return grants, nil
}

func (s *Store) saveGrants(grants map[string]Grant) error {
	payload, err := json.MarshalIndent(grants, "", "  ")
	if err != nil {
		return fmt.Errorf("encode sharing metadata: %w", err)
	}
	return s.WriteFile(sharingFile, append(payload, '\n'))
}

// GetGrant returns the sharing grant for an item, or nil when the item is not
// shared.
func (s *Store) GetGrant(ctx context.Context, kind ItemType, id string) (*Grant, error) {
	grants, err := s.loadGrants()
	if err != nil {
		return nil, err
	}
	grant, ok := grants[grantKey(kind, id)]
	if !ok {
		return nil, nil
	}
	return &grant, nil
}

// UpdateGrant creates or mutates the grant for an item. A grant that ends up
// neither public nor shared with anyone is removed, and nil is returned.
func (s *Store) UpdateGrant(ctx context.Context, kind ItemType, id, owner string, fn func(*Grant) error) (*Grant, error) {
	var result *Grant
	err := s.Locked(sharingFile, func() error {
		grants, err := s.loadGrants()
		if err != nil {
			return err
		}
		key := grantKey(kind, id)
		grant, ok := grants[key]
		if !ok {
			grant = Grant{ItemID: id, ItemType: kind, Owner: owner, SharedWith: []string{}}
		}
		if err := fn(&grant); err != nil {
			return err
		}
		grant.ItemID, grant.ItemType, grant.Owner = id, kind, owner
		grant.SharedWith = dedupe(grant.SharedWith, owner)
		grant.UpdatedAt = time.Now().UTC()

		if !grant.IsPubliclyShared && len(grant.SharedWith) == 0 {
			if !ok {
				return nil
			}
			delete(grants, key)
			return s.saveGrants(grants)
		}
		grants[key] = grant
		result = &grant
		return s.saveGrants(grants)
	})
	return result, err
}

func (s *Store) DeleteGrant(ctx context.Context, kind ItemType, id string) error {
	return s.DeleteGrants(ctx, kind, []string{id})
}

func (s *Store) DeleteGrants(ctx context.Context, kind ItemType, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return s.Locked(sharingFile, func() error {
		grants, err := s.loadGrants()
		if err != nil {
			return err
		}
		changed := false
		for _, id := range ids {
			key := grantKey(kind, id)
			if _, ok := grants[key]; ok {
				delete(grants, key)
				changed = true
			}
		}
		if !changed {
			return nil
		}
		return s.saveGrants(grants)
	})
}

// GrantsSharedWith lists grants naming username, grouped by item type with
// the most recently updated first.
func (s *Store) GrantsSharedWith(ctx context.Context, username string) ([]Grant, error) {
	grants, err := s.loadGrants()
	if err != nil {
		return nil, err
	}
	matched := make([]Grant, 0)
	for _, grant := range grants {
		if grant.SharedWithUser(username) {
			matched = append(matched, grant)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].ItemType != matched[j].ItemType {
			return matched[i].ItemType < matched[j].ItemType
		}
		return matched[i].UpdatedAt.After(matched[j].UpdatedAt)
	})
	return matched, nil
}

// DeleteGrantsForUser drops grants owned by username and removes username
// from every other grant.
func (s *Store) DeleteGrantsForUser(ctx context.Context, username string) error {
	return s.Locked(sharingFile, func() error {
		grants, err := s.loadGrants()
		if err != nil {
			return err
		}
		changed := false
		for key, grant := range grants {
			if grant.Owner == username {
				delete(grants, key)
				changed = true
				continue
			}
			if !grant.SharedWithUser(username) {
				continue
			}
			kept := make([]string, 0, len(grant.SharedWith))
			for _, name := range grant.SharedWith {
				if name != username {
					kept = append(kept, name)
				}
			}
			grant.SharedWith = kept
			changed = true
			if !grant.IsPubliclyShared && len(kept) == 0 {
				delete(grants, key)
				continue
			}
			grants[key] = grant
		}
		if !changed {
			return nil
		}
		return s.saveGrants(grants)
	})
}

func dedupe(names []string, owner string) []string {
	seen := make(map[string]struct{}, len(names))
	result := make([]string, 0, len(names))
	for _, name := range names {
		if name == "" || name == owner {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}
