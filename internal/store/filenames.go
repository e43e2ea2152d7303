package store

import (
	"errors"
	"fmt"
	"path"
	"strings"
	"unicode"
)

const (
	maxSlugLength       = 80
	maxCategoryLength   = 100
	maxFilenameAttempts = 1000
)

// Slugify turns a title into a lowercase filesystem-safe name.
func Slugify(title string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(title) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if b.Len() > 0 && !dash {
			b.WriteByte('-')
			dash = true
		}
	}
	slug := strings.TrimRight(b.String(), "-")
	if len(slug) > maxSlugLength {
		slug = strings.TrimRight(slug[:maxSlugLength], "-")
	}
	if slug == "" {
		return "untitled"
	}
	return slug
}

// AllocateFile creates dir/<slug><ext> with data, or the first free
// dir/<slug>-N<ext>. Every probe is an exclusive create, so two writers racing
// on the same title always end up with different files.
func (s *Store) AllocateFile(dir, title, ext string, data []byte) (string, error) {
	base := Slugify(title)
	for i := 0; i < maxFilenameAttempts; i++ {
		name := base + ext
		if i > 0 {
			name = fmt.Sprintf("%s-%d%s", base, i, ext)
		}
		rel := path.Join(dir, name)
		err := s.CreateExclusive(rel, data)
		if err == nil {
			return rel, nil
		}
		if !errors.Is(err, ErrConflict) {
			return "", err
		}
	}
	return "", fmt.Errorf("%w: no free filename for %q", ErrConflict, base)
}

// NormalizeCategory validates a category name for use as a directory. An
// empty name means Uncategorized.
func NormalizeCategory(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Uncategorized, nil
	}
	if len(name) > maxCategoryLength {
		return "", validationError("category name too long")
	}
	if name == "." || name == ".." || strings.HasPrefix(name, ".") {
		return "", validationError("invalid category name %q", name)
	}
	for _, r := range name {
		if r == '/' || r == '\\' || unicode.IsControl(r) {
			return "", validationError("invalid category name %q", name)
		}
	}
	return name, nil
}
