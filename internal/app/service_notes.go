package app

import (
	"context"
	"errors"
	"log"
	"strings"

	"checkmark/api/internal/gitrepo"
	"checkmark/api/internal/rbac"
	"checkmark/api/internal/store"
)

const defaultHistoryLimit = 50

type CreateNoteInput struct {
	Title    string `json:"title"`
	Category string `json:"category"`
	Content  string `json:"content"`
}

type UpdateNoteInput struct {
	Title    *string `json:"title"`
	Category *string `json:"category"`
	Content  *string `json:"content"`
}

func (s *Service) GetNotes(ctx context.Context, actor store.User, username string) ([]store.Note, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		username = actor.Username
	}
	if username != actor.Username && !actor.IsAdmin {
		return nil, errForbidden()
	}
	return s.files.ListNotes(ctx, username)
}

func (s *Service) GetAllNotes(ctx context.Context, actor store.User) ([]store.Note, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.files.ListAllNotes(ctx)
}

func (s *Service) CreateNote(ctx context.Context, actor store.User, input CreateNoteInput) (store.Note, error) {
	note, err := s.files.CreateNote(ctx, actor.Username, store.Note{
		Title:    input.Title,
		Category: input.Category,
		Content:  input.Content,
	})
	if err != nil {
		return store.Note{}, err
	}
	s.recordRevision(note, actor.Username, "Create "+note.Title)
	s.search.Index(noteRecord(note, nil))
	return note, nil
}

func (s *Service) GetNote(ctx context.Context, actor store.User, id string) (store.Note, error) {
	owner, _, err := s.authorize(ctx, actor, store.ItemNote, id, rbac.ActionRead)
	if err != nil {
		return store.Note{}, err
	}
	return s.note(ctx, owner, id)
}

func (s *Service) note(ctx context.Context, owner, id string) (store.Note, error) {
	note, err := s.files.GetNote(ctx, owner, id)
	if errors.Is(err, store.ErrNotFound) {
		return store.Note{}, errNotFound("Note")
	}
	return note, err
}

func (s *Service) UpdateNote(ctx context.Context, actor store.User, id string, input UpdateNoteInput) (store.Note, error) {
	owner, grant, err := s.authorize(ctx, actor, store.ItemNote, id, rbac.ActionWrite)
	if err != nil {
		return store.Note{}, err
	}
	note, err := s.files.UpdateNote(ctx, owner, id, func(n *store.Note) error {
		if input.Title != nil {
			n.Title = *input.Title
		}
		if input.Category != nil {
			n.Category = *input.Category
		}
		if input.Content != nil {
			n.Content = *input.Content
		}
		return nil
	})
	if errors.Is(err, store.ErrNotFound) {
		return store.Note{}, errNotFound("Note")
	}
	if err != nil {
		return store.Note{}, err
	}
	s.recordRevision(note, actor.Username, "Update "+note.Title)
	s.search.Index(noteRecord(note, grant))
	return note, nil
}

func (s *Service) DeleteNote(ctx context.Context, actor store.User, id string) error {
	owner, _, err := s.authorize(ctx, actor, store.ItemNote, id, rbac.ActionDelete)
	if isNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := s.files.DeleteNote(ctx, owner, id); err != nil {
		return err
	}
	if s.history != nil {
		if err := s.history.Remove(owner, id, actor.Username); err != nil {
			log.Printf("history: remove %s/%s: %v", owner, id, err)
		}
	}
	s.unindex(store.ItemNote, id)
	return nil
}

// NoteHistory lists the recorded revisions of a note, newest first.
func (s *Service) NoteHistory(ctx context.Context, actor store.User, id string, limit int) ([]gitrepo.Commit, error) {
	owner, _, err := s.authorize(ctx, actor, store.ItemNote, id, rbac.ActionRead)
	if err != nil {
		return nil, err
	}
	if s.history == nil {
		return []gitrepo.Commit{}, nil
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	commits, err := s.history.History(owner, id, limit)
	if err != nil {
		return nil, err
	}
	if commits == nil {
		commits = []gitrepo.Commit{}
	}
	return commits, nil
}

// NoteRevision returns the body of a note as of the given commit.
func (s *Service) NoteRevision(ctx context.Context, actor store.User, id, hash string) (string, error) {
	owner, _, err := s.authorize(ctx, actor, store.ItemNote, id, rbac.ActionRead)
	if err != nil {
		return "", err
	}
	if s.history == nil {
		return "", errNotFound("Revision")
	}
	return s.history.ContentAt(owner, id, hash)
}

// recordRevision commits the note body to the owner's history repo. The note
// write has already succeeded, so failures are only logged.
func (s *Service) recordRevision(note store.Note, author, message string) {
	if s.history == nil {
		return
	}
	_, err := s.history.Record(note.Owner, note.ID, note.Content, author, message)
	if err != nil && !errors.Is(err, gitrepo.ErrNoChanges) {
		log.Printf("history: record %s/%s: %v", note.Owner, note.ID, err)
	}
}
