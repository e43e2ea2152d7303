package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path"
	"sort"
	"strings"
	"time"

	"checkmark/api/internal/util"
)

func noteDir(owner, category string) string {
	return path.Join(notesDir, owner, category)
}

func (s *Store) readNote(ref fileRef, owner string) (Note, bool, error) {
	data, err := s.ReadFile(ref.rel)
	if err != nil {
		return Note{}, false, err
	}
	if data == nil {
		return Note{}, false, nil
	}
	note, err := decodeNote(data, slugOf(ref.rel, ".md"))
	if err != nil {
		return Note{}, false, fmt.Errorf("decode %s: %w", ref.rel, err)
	}
	note.Owner = owner
	note.Category = ref.category
	note.path = ref.rel
	return note, true, nil
}

func (s *Store) ListNotes(ctx context.Context, owner string) ([]Note, error) {
	if err := ValidateUsername(owner); err != nil {
		return nil, err
	}
	refs, err := s.listItemFiles(notesDir, owner, ".md")
	if err != nil {
		return nil, err
	}
	notes := make([]Note, 0, len(refs))
	for _, ref := range refs {
		note, ok, err := s.readNote(ref, owner)
		if err != nil {
			log.Printf("store: skip note %s: %v", ref.rel, err)
			continue
		}
		if ok {
			notes = append(notes, note)
		}
	}
	sort.SliceStable(notes, func(i, j int) bool {
		if !notes[i].UpdatedAt.Equal(notes[j].UpdatedAt) {
			return notes[i].UpdatedAt.After(notes[j].UpdatedAt)
		}
		return notes[i].Title < notes[j].Title
	})
	return notes, nil
}

func (s *Store) ListAllNotes(ctx context.Context) ([]Note, error) {
	owners, err := s.listOwners(notesDir)
	if err != nil {
		return nil, err
	}
	all := make([]Note, 0)
	for _, owner := range owners {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if ValidateUsername(owner) != nil {
			continue
		}
		notes, err := s.ListNotes(ctx, owner)
		if err != nil {
			return nil, err
		}
		all = append(all, notes...)
	}
	return all, nil
}

func (s *Store) GetNote(ctx context.Context, owner, id string) (Note, error) {
	notes, err := s.ListNotes(ctx, owner)
	if err != nil {
		return Note{}, err
	}
	for _, note := range notes {
		if note.ID == id {
			return note, nil
		}
	}
	return Note{}, ErrNotFound
}

func (s *Store) FindNote(ctx context.Context, id string) (Note, error) {
	all, err := s.ListAllNotes(ctx)
	if err != nil {
		return Note{}, err
	}
	for _, note := range all {
		if note.ID == id {
			return note, nil
		}
	}
	return Note{}, ErrNotFound
}

func (s *Store) CreateNote(ctx context.Context, owner string, note Note) (Note, error) {
	if err := ValidateUsername(owner); err != nil {
		return Note{}, err
	}
	note.Title = strings.TrimSpace(note.Title)
	if note.Title == "" {
		return Note{}, validationError("title is required")
	}
	category, err := NormalizeCategory(note.Category)
	if err != nil {
		return Note{}, err
	}

	now := time.Now().UTC()
	note.ID = util.NewID("")
	note.Owner = owner
	note.Category = category
	note.CreatedAt = now
	note.UpdatedAt = now

	payload, err := encodeNote(note)
	if err != nil {
		return Note{}, err
	}
	rel, err := s.AllocateFile(noteDir(owner, category), note.Title, ".md", payload)
	if err != nil {
		return Note{}, err
	}
	note.path = rel
	return note, nil
}

// UpdateNote applies fn under the file lock. Changing the category moves the
// file; changing the title keeps the existing filename.
func (s *Store) UpdateNote(ctx context.Context, owner, id string, fn func(*Note) error) (Note, error) {
	current, err := s.GetNote(ctx, owner, id)
	if err != nil {
		return Note{}, err
	}

	var updated Note
	err = s.Locked(current.path, func() error {
		fresh, ok, err := s.readNote(fileRef{category: current.Category, rel: current.path}, owner)
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
		category, err := NormalizeCategory(fresh.Category)
		if err != nil {
			return err
		}
		fresh.Category = category
		if fresh.CreatedAt.IsZero() {
			fresh.CreatedAt = time.Now().UTC()
		}
		fresh.UpdatedAt = time.Now().UTC()

		payload, err := encodeNote(fresh)
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

		rel, err := s.AllocateFile(noteDir(owner, category), fresh.Title, ".md", payload)
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

// DeleteNote removes the note file and its grant. Idempotent.
func (s *Store) DeleteNote(ctx context.Context, owner, id string) error {
	current, err := s.GetNote(ctx, owner, id)
	if errors.Is(err, ErrNotFound) {
		return s.DeleteGrant(ctx, ItemNote, id)
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
	return s.DeleteGrant(ctx, ItemNote, id)
}
