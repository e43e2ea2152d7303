package store

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"path"
	"time"
)

var usersFile = path.Join(usersDir, "users.json")

const maxUsernameLength = 64

// ValidateUsername checks that a username can be used as a directory name.
func ValidateUsername(username string) error {
	if username == "" {
		return validationError("username is required")
	}
	if len(username) > maxUsernameLength {
		return validationError("username too long")
	}
	if username == "." || username == ".." {
		return validationError("invalid username %q", username)
	}
	for _, r := range username {
		valid := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') ||
			r == '_' || r == '.' || r == '-'
		if !valid {
			return validationError("username may only contain letters, digits, '.', '_' and '-'")
		}
	}
	return nil
}

func (s *Store) loadUsers() ([]User, error) {
	data, err := s.ReadFile(usersFile)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	var users []User
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	return users, nil
}

func (s *Store) saveUsers(users []User) error {
	if users == nil {
		users = []User{}
	}
	payload, err := json.MarshalIndent(users, "", "  ")
	if err != nil {
		return fmt.Errorf("encode users: %w", err)
	}
	return s.WriteFile(usersFile, append(payload, '\n'))
}

func (s *Store) ListUsers(ctx context.Context) ([]User, error) {
	return s.loadUsers()
}

func (s *Store) HasUsers(ctx context.Context) (bool, error) {
	users, err := s.loadUsers()
	if err != nil {
		return false, err
	}
	return len(users) > 0, nil
}

func (s *Store) GetUser(ctx context.Context, username string) (User, error) {
	users, err := s.loadUsers()
	if err != nil {
		return User{}, err
	}
	for _, user := range users {
		if user.Username == username {
			return user, nil
		}
	}
	return User{}, ErrNotFound
}

// FindUserByAPIKey scans the user list for a matching key. It returns nil
// when no user holds the key.
func (s *Store) FindUserByAPIKey(ctx context.Context, key string) (*User, error) {
	if key == "" {
		return nil, nil
	}
	users, err := s.loadUsers()
	if err != nil {
		return nil, err
	}
	for _, user := range users {
		if user.APIKey == "" {
			continue
		}
		if subtle.ConstantTimeCompare([]byte(user.APIKey), []byte(key)) == 1 {
			found := user
			return &found, nil
		}
	}
	return nil, nil
}

// CreateUser appends a user, failing with ErrConflict on a duplicate name.
func (s *Store) CreateUser(ctx context.Context, user User) error {
	return s.createUser(user, false)
}

// CreateInitialUser creates the first account. It fails with ErrConflict when
// any user already exists.
func (s *Store) CreateInitialUser(ctx context.Context, user User) error {
	return s.createUser(user, true)
}

func (s *Store) createUser(user User, onlyIfEmpty bool) error {
	if err := ValidateUsername(user.Username); err != nil {
		return err
	}
	return s.Locked(usersFile, func() error {
		users, err := s.loadUsers()
		if err != nil {
			return err
		}
		if onlyIfEmpty && len(users) > 0 {
			return fmt.Errorf("%w: users already exist", ErrConflict)
		}
		for _, existing := range users {
			if existing.Username == user.Username {
				return fmt.Errorf("%w: user %s already exists", ErrConflict, user.Username)
			}
		}
		if user.CreatedAt.IsZero() {
			user.CreatedAt = time.Now().UTC()
		}
		return s.saveUsers(append(users, user))
	})
}

// UpdateUser applies fn to the stored record and writes the list back.
func (s *Store) UpdateUser(ctx context.Context, username string, fn func(*User) error) (User, error) {
	var updated User
	err := s.Locked(usersFile, func() error {
		users, err := s.loadUsers()
		if err != nil {
			return err
		}
		for i := range users {
			if users[i].Username != username {
				continue
			}
			if err := fn(&users[i]); err != nil {
				return err
			}
			users[i].Username = username
			updated = users[i]
			return s.saveUsers(users)
		}
		return ErrNotFound
	})
	return updated, err
}

// DeleteUser removes the user record along with the user's checklist and note
// trees and every sharing grant that mentions them. Deleting an unknown user
// is not an error.
func (s *Store) DeleteUser(ctx context.Context, username string) error {
	if err := ValidateUsername(username); err != nil {
		return err
	}
	err := s.Locked(usersFile, func() error {
		users, err := s.loadUsers()
		if err != nil {
			return err
		}
		kept := make([]User, 0, len(users))
		for _, user := range users {
			if user.Username != username {
				kept = append(kept, user)
			}
		}
		if len(kept) == len(users) {
			return nil
		}
		return s.saveUsers(kept)
	})
	if err != nil {
		return err
	}
	if err := s.DeleteDir(path.Join(checklistsDir, username), true); err != nil {
		return err
	}
	if err := s.DeleteDir(path.Join(notesDir, username), true); err != nil {
		return err
	}
	return s.DeleteGrantsForUser(ctx, username)
}
