// Package session keeps the mapping from session ids to usernames.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"

	"checkmark/api/internal/store"
)

// ErrSessionNotFound is returned by Lookup for unknown or expired sessions.
var ErrSessionNotFound = errors.New("session not found")

// Store is implemented by every session backend.
type Store interface {
	Create(ctx context.Context, id, username string) error
	Lookup(ctx context.Context, id string) (string, error)
	Delete(ctx context.Context, id string) error
	DeleteForUser(ctx context.Context, username string) error
	Clear(ctx context.Context) error
}

var sessionsFile = path.Join("users", "sessions.json")

// FileStore persists sessions as a flat id to username map in the data
// directory. Sessions stay valid until they are deleted.
type FileStore struct {
	files *store.Store
}

func NewFileStore(files *store.Store) *FileStore {
	return &FileStore{files: files}
}

func (s *FileStore) load() (map[string]string, error) {
	data, err := s.files.ReadFile(sessionsFile)
	if err != nil {
		return nil, err
	}
	sessions := make(map[string]string)
	if len(data) == 0 {
		return sessions, nil
	}
	if err := json.Unmarshal(data, &sessions); err != nil {
		return nil, fmt.Errorf("decode sessions: %w", err)
	}
	return sessions, nil
}

func (s *FileStore) save(sessions map[string]string) error {
	payload, err := json.MarshalIndent(sessions, "", "  ")
	if err != nil {
		return fmt.Errorf("encode sessions: %w", err)
	}
	return s.files.WriteFile(sessionsFile, append(payload, '\n'))
}

func (s *FileStore) mutate(fn func(map[string]string) bool) error {
	return s.files.Locked(sessionsFile, func() error {
		sessions, err := s.load()
		if err != nil {
			return err
		}
		if !fn(sessions) {
			return nil
		}
		return s.save(sessions)
	})
}

func (s *FileStore) Create(ctx context.Context, id, username string) error {
	if id == "" || username == "" {
		return fmt.Errorf("session id and username are required")
	}
	return s.mutate(func(sessions map[string]string) bool {
		sessions[id] = username
		return true
	})
}

func (s *FileStore) Lookup(ctx context.Context, id string) (string, error) {
	if id == "" {
		return "", ErrSessionNotFound
	}
	sessions, err := s.load()
	if err != nil {
		return "", err
	}
	username, ok := sessions[id]
	if !ok {
		return "", ErrSessionNotFound
	}
	return username, nil
}

func (s *FileStore) Delete(ctx context.Context, id string) error {
	return s.mutate(func(sessions map[string]string) bool {
		if _, ok := sessions[id]; !ok {
			return false
		}
		delete(sessions, id)
		return true
	})
}

func (s *FileStore) DeleteForUser(ctx context.Context, username string) error {
	return s.mutate(func(sessions map[string]string) bool {
		changed := false
		for id, owner := range sessions {
			if owner == username {
				delete(sessions, id)
				changed = true
			}
		}
		return changed
	})
}

func (s *FileStore) Clear(ctx context.Context) error {
	return s.mutate(func(sessions map[string]string) bool {
		if len(sessions) == 0 {
			return false
		}
		for id := range sessions {
			delete(sessions, id)
		}
		return true
	})
}
