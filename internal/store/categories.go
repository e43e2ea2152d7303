package store

import (
	"context"
	"path"
	"sort"
)

// ListCategories derives the owner's categories from the folders in their
// tree, with the number of items in each.
func (s *Store) ListCategories(ctx context.Context, kind ItemType, owner string) ([]Category, error) {
	if err := ValidateUsername(owner); err != nil {
		return nil, err
	}
	base, ext := baseDir(kind), fileExt(kind)
	entries, err := s.ListDir(path.Join(base, owner))
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, entry := range entries {
		name := entry.Name()
		if name == "" || name[0] == '.' {
			continue
		}
		if !entry.IsDir() {
			if path.Ext(name) == ext {
				counts[Uncategorized]++
			}
			continue
		}
		files, err := s.listCategoryFiles(base, owner, name, ext)
		if err != nil {
			return nil, err
		}
		counts[name] += len(files)
	}
	categories := make([]Category, 0, len(counts))
	for name, count := range counts {
		categories = append(categories, Category{Name: name, Count: count})
	}
	sort.Slice(categories, func(i, j int) bool {
		return categories[i].Name < categories[j].Name
	})
	return categories, nil
}

func (s *Store) CreateCategory(ctx context.Context, kind ItemType, owner, name string) (Category, error) {
	if err := ValidateUsername(owner); err != nil {
		return Category{}, err
	}
	normalized, err := NormalizeCategory(name)
	if err != nil {
		return Category{}, err
	}
	if err := s.MakeDir(path.Join(baseDir(kind), owner, normalized)); err != nil {
		return Category{}, err
	}
	files, err := s.listCategoryFiles(baseDir(kind), owner, normalized, fileExt(kind))
	if err != nil {
		return Category{}, err
	}
	return Category{Name: normalized, Count: len(files)}, nil
}

// RenameCategory moves the category folder. Item ids do not change, so
// sharing grants stay valid.
func (s *Store) RenameCategory(ctx context.Context, kind ItemType, owner, from, to string) (Category, error) {
	if err := ValidateUsername(owner); err != nil {
		return Category{}, err
	}
	src, err := NormalizeCategory(from)
	if err != nil {
		return Category{}, err
	}
	dst, err := NormalizeCategory(to)
	if err != nil {
		return Category{}, err
	}
	if src == dst {
		return s.CreateCategory(ctx, kind, owner, dst)
	}
	base := baseDir(kind)
	if err := s.Move(path.Join(base, owner, src), path.Join(base, owner, dst)); err != nil {
		return Category{}, err
	}
	files, err := s.listCategoryFiles(base, owner, dst, fileExt(kind))
	if err != nil {
		return Category{}, err
	}
	return Category{Name: dst, Count: len(files)}, nil
}

// DeleteCategory removes the folder and every item in it, then drops the
// grants of the removed items. It is not atomic: an interrupted delete leaves
// part of the category behind and can simply be repeated. The ids of the
// removed items are returned.
func (s *Store) DeleteCategory(ctx context.Context, kind ItemType, owner, name string) ([]string, error) {
	if err := ValidateUsername(owner); err != nil {
		return nil, err
	}
	category, err := NormalizeCategory(name)
	if err != nil {
		return nil, err
	}
	base, ext := baseDir(kind), fileExt(kind)
	refs, err := s.listCategoryFiles(base, owner, category, ext)
	if err != nil {
		return nil, err
	}
	if category == Uncategorized {
		all, err := s.listItemFiles(base, owner, ext)
		if err != nil {
			return nil, err
		}
		for _, ref := range all {
			if ref.category == Uncategorized && path.Dir(ref.rel) == path.Join(base, owner) {
				refs = append(refs, ref)
			}
		}
	}

	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		id, err := s.itemID(kind, ref, owner)
		if err != nil {
			return nil, err
		}
		if id != "" {
			ids = append(ids, id)
		}
		err = s.Locked(ref.rel, func() error {
			return s.DeleteFile(ref.rel)
		})
		if err != nil {
			return nil, err
		}
	}
	if err := s.DeleteDir(path.Join(base, owner, category), true); err != nil {
		return nil, err
	}
	if err := s.DeleteGrants(ctx, kind, ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *Store) itemID(kind ItemType, ref fileRef, owner string) (string, error) {
	if kind == ItemNote {
		note, ok, err := s.readNote(ref, owner)
		if err != nil || !ok {
			return slugOf(ref.rel, ".md"), nil
		}
		return note.ID, nil
	}
	checklist, ok, err := s.readChecklist(ref, owner)
	if err != nil || !ok {
		return slugOf(ref.rel, ".json"), nil
	}
	return checklist.ID, nil
}
