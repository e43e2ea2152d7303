// Package store maps users, checklists, notes, categories and sharing grants
// onto a directory-per-user file tree under a single data root.
package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const (
	usersDir      = "users"
	checklistsDir = "checklists"
	notesDir      = "notes"
	sharingDir    = "sharing"
	uploadsDir    = "uploads"
)

// Store is the file-backed data layer. All paths taken by its primitives are
// slash-separated and relative to the data root.
type Store struct {
	root  string
	locks *locker
}

func New(root string) *Store {
	return &Store{
		root:  root,
		locks: newLocker(),
	}
}

// Init creates the top-level directory layout.
func (s *Store) Init() error {
	for _, dir := range []string{usersDir, checklistsDir, notesDir, sharingDir, uploadsDir} {
		if err := os.MkdirAll(filepath.Join(s.root, dir), 0o755); err != nil {
			return fmt.Errorf("create %s dir: %w", dir, err)
		}
	}
	return nil
}

func (s *Store) Root() string {
	return s.root
}

// Locked runs fn while holding the in-process lock for key.
func (s *Store) Locked(key string, fn func() error) error {
	unlock := s.locks.lock(key)
	defer unlock()
	return fn()
}

func (s *Store) resolve(rel string) (string, error) {
	if rel == "" || filepath.IsAbs(rel) || strings.HasPrefix(rel, "/") {
		return "", validationError("invalid path %q", rel)
	}
	cleaned := filepath.Clean(filepath.FromSlash(rel))
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", validationError("path %q escapes data dir", rel)
	}
	return filepath.Join(s.root, cleaned), nil
}

// ReadFile returns the file content, or nil when the file does not exist.
func (s *Store) ReadFile(rel string) ([]byte, error) {
	path, err := s.resolve(rel)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rel, err)
	}
	return data, nil
}

// WriteFile replaces the file through a temp file and rename, creating parent
// directories as needed.
func (s *Store) WriteFile(rel string, data []byte) error {
	path, err := s.resolve(rel)
	if err != nil {
		return err
	}
	tmp, err := writeTemp(filepath.Dir(path), data)
	if err != nil {
		return fmt.Errorf("write %s: %w", rel, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename into %s: %w", rel, err)
	}
	return nil
}

// CreateExclusive writes a new file and fails with ErrConflict if one already
// exists at rel. The content is staged in a temp file and hard-linked into
// place, so the name never appears with partial content.
func (s *Store) CreateExclusive(rel string, data []byte) error {
	path, err := s.resolve(rel)
	if err != nil {
		return err
	}
	tmp, err := writeTemp(filepath.Dir(path), data)
	if err != nil {
		return fmt.Errorf("create %s: %w", rel, err)
	}
	defer os.Remove(tmp)
	if err := os.Link(tmp, path); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s exists", ErrConflict, rel)
		}
		return fmt.Errorf("link %s: %w", rel, err)
	}
	return nil
}

// DeleteFile removes the file. A missing file is not an error.
func (s *Store) DeleteFile(rel string) error {
	path, err := s.resolve(rel)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete %s: %w", rel, err)
	}
	return nil
}

// ListDir returns the directory entries, or none when it does not exist.
// Staging files left by interrupted writes are skipped.
func (s *Store) ListDir(rel string) ([]os.DirEntry, error) {
	path, err := s.resolve(rel)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", rel, err)
	}
	visible := entries[:0]
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".tmp-") {
			continue
		}
		visible = append(visible, entry)
	}
	return visible, nil
}

// MakeDir creates the directory and any missing parents.
func (s *Store) MakeDir(rel string) error {
	path, err := s.resolve(rel)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("create dir %s: %w", rel, err)
	}
	return nil
}

// DeleteDir removes the directory. A missing directory is not an error.
func (s *Store) DeleteDir(rel string, recursive bool) error {
	path, err := s.resolve(rel)
	if err != nil {
		return err
	}
	if path == filepath.Clean(s.root) {
		return validationError("refusing to delete data root")
	}
	if recursive {
		err = os.RemoveAll(path)
	} else {
		err = os.Remove(path)
	}
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete dir %s: %w", rel, err)
	}
	return nil
}

// Exists reports whether anything is present at rel.
func (s *Store) Exists(rel string) (bool, error) {
	path, err := s.resolve(rel)
	if err != nil {
		return false, err
	}
	if _, err := os.Lstat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat %s: %w", rel, err)
	}
	return true, nil
}

// Move renames from to to, failing with ErrConflict if to already exists.
func (s *Store) Move(from, to string) error {
	src, err := s.resolve(from)
	if err != nil {
		return err
	}
	dst, err := s.resolve(to)
	if err != nil {
		return err
	}
	if exists, err := s.Exists(to); err != nil {
		return err
	} else if exists {
		return fmt.Errorf("%w: %s exists", ErrConflict, to)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create dir for %s: %w", to, err)
	}
	if err := os.Rename(src, dst); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("move %s: %w", from, err)
	}
	return nil
}

func writeTemp(dir string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	file, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return "", err
	}
	name := file.Name()
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(name)
		return "", err
	}
	if err := file.Close(); err != nil {
		os.Remove(name)
		return "", err
	}
	if err := os.Chmod(name, 0o644); err != nil {
		os.Remove(name)
		return "", err
	}
	return name, nil
}
