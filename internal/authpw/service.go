// Package authpw provides username/password accounts and API keys.
package authpw

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"checkmark/api/internal/auth"
	"checkmark/api/internal/store"
)

// MinPasswordLength is the shortest password accepted for new credentials.
const MinPasswordLength = 6

var (
	ErrAlreadySetup       = errors.New("initial user already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrWeakPassword       = fmt.Errorf("%w: password must be at least %d characters", store.ErrValidation, MinPasswordLength)
)

// Service provides username/password authentication
type Service struct {
	store UserStore
}

// UserStore defines the storage interface for auth
type UserStore interface {
	HasUsers(ctx context.Context) (bool, error)
	GetUser(ctx context.Context, username string) (store.User, error)
	CreateUser(ctx context.Context, user store.User) error
	CreateInitialUser(ctx context.Context, user store.User) error
	UpdateUser(ctx context.Context, username string, fn func(*store.User) error) (store.User, error)
	FindUserByAPIKey(ctx context.Context, key string) (*store.User, error)
}

// NewService creates a new auth service
func NewService(store UserStore) *Service {
	return &Service{store: store}
}

// Setup creates the first account, which is always an admin.
func (s *Service) Setup(ctx context.Context, username, password string) (store.User, error) {
	has, err := s.store.HasUsers(ctx)
	if err != nil {
		return store.User{}, err
	}
	if has {
		return store.User{}, ErrAlreadySetup
	}
	user, err := newUser(username, password, true)
	if err != nil {
		return store.User{}, err
	}
	if err := s.store.CreateInitialUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return store.User{}, ErrAlreadySetup
		}
		return store.User{}, fmt.Errorf("create initial user: %w", err)
	}
	return user, nil
}

// Register creates an additional account on behalf of an admin.
func (s *Service) Register(ctx context.Context, username, password string, isAdmin bool) (store.User, error) {
	user, err := newUser(username, password, isAdmin)
	if err != nil {
		return store.User{}, err
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return store.User{}, err
	}
	return user, nil
}

// SignIn authenticates a user. Unknown users and wrong passwords are
// indistinguishable to the caller.
func (s *Service) SignIn(ctx context.Context, username, password string) (store.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return store.User{}, ErrInvalidCredentials
	}

	user, err := s.store.GetUser(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		return store.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return store.User{}, err
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return store.User{}, ErrInvalidCredentials
	}

	if auth.NeedsRehash(user.PasswordHash) {
		if upgraded, err := s.setPassword(ctx, username, password); err != nil {
			log.Printf("authpw: rehash password for %s: %v", username, err)
		} else {
			user = upgraded
		}
	}
	return user, nil
}

// ChangePassword replaces the password after checking the current one.
func (s *Service) ChangePassword(ctx context.Context, username, current, next string) error {
	if _, err := s.SignIn(ctx, username, current); err != nil {
		return err
	}
	if len(next) < MinPasswordLength {
		return ErrWeakPassword
	}
	_, err := s.setPassword(ctx, username, next)
	return err
}

// ResetPassword sets a new password without the current one. It is meant for
// admins and the operator CLI.
func (s *Service) ResetPassword(ctx context.Context, username, next string) error {
	if len(next) < MinPasswordLength {
		return ErrWeakPassword
	}
	_, err := s.setPassword(ctx, username, next)
	return err
}

// RegenerateAPIKey issues a fresh key and invalidates the previous one.
func (s *Service) RegenerateAPIKey(ctx context.Context, username string) (string, error) {
	key, err := auth.NewAPIKey()
	if err != nil {
		return "", err
	}
	if _, err := s.store.UpdateUser(ctx, username, func(u *store.User) error {
		u.APIKey = key
		return nil
	}); err != nil {
		return "", err
	}
	return key, nil
}

// AuthenticateAPIKey returns the key's owner, or nil when the key is empty or
// unknown.
func (s *Service) AuthenticateAPIKey(ctx context.Context, key string) (*store.User, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, nil
	}
	return s.store.FindUserByAPIKey(ctx, key)
}

func (s *Service) setPassword(ctx context.Context, username, password string) (store.User, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return store.User{}, err
	}
	return s.store.UpdateUser(ctx, username, func(u *store.User) error {
		u.PasswordHash = hash
		return nil
	})
}

func newUser(username, password string, isAdmin bool) (store.User, error) {
	username = strings.TrimSpace(username)
	if err := store.ValidateUsername(username); err != nil {
		return store.User{}, err
	}
	if len(password) < MinPasswordLength {
		return store.User{}, ErrWeakPassword
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return store.User{}, err
	}
	return store.User{Username: username, PasswordHash: hash, IsAdmin: isAdmin}, nil
}
