package store

import (
	"path"
	"sort"
	"strings"
)

// fileRef locates one item file inside an owner's tree.
type fileRef struct {
	category string
	rel      string
}

// listItemFiles returns every file with ext under base/owner. Files placed
// directly in the owner directory belong to Uncategorized.
func (s *Store) listItemFiles(base, owner, ext string) ([]fileRef, error) {
	ownerDir := path.Join(base, owner)
	entries, err := s.ListDir(ownerDir)
	if err != nil {
		return nil, err
	}
	refs := make([]fileRef, 0)
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		if !entry.IsDir() {
			if strings.HasSuffix(name, ext) {
				refs = append(refs, fileRef{category: Uncategorized, rel: path.Join(ownerDir, name)})
			}
			continue
		}
		categoryFiles, err := s.listCategoryFiles(base, owner, name, ext)
		if err != nil {
			return nil, err
		}
		refs = append(refs, categoryFiles...)
	}
	return refs, nil
}

func (s *Store) listCategoryFiles(base, owner, category, ext string) ([]fileRef, error) {
	dir := path.Join(base, owner, category)
	files, err := s.ListDir(dir)
	if err != nil {
		return nil, err
	}
	refs := make([]fileRef, 0, len(files))
	for _, file := range files {
		if file.IsDir() || strings.HasPrefix(file.Name(), ".") || !strings.HasSuffix(file.Name(), ext) {
			continue
		}
		refs = append(refs, fileRef{category: category, rel: path.Join(dir, file.Name())})
	}
	return refs, nil
}

// listOwners returns the user directories present under base.
func (s *Store) listOwners(base string) ([]string, error) {
	entries, err := s.ListDir(base)
	if err != nil {
		return nil, err
	}
	owners := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		owners = append(owners, entry.Name())
	}
	sort.Strings(owners)
	return owners, nil
}

func baseDir(kind ItemType) string {
	if kind == ItemNote {
		return notesDir
	}
	return checklistsDir
}

func fileExt(kind ItemType) string {
	if kind == ItemNote {
		return ".md"
	}
	return ".json"
}

func slugOf(rel, ext string) string {
	return strings.TrimSuffix(path.Base(rel), ext)
}
