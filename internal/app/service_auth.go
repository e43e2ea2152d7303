package app

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"checkmark/api/internal/auth"
	"checkmark/api/internal/session"
	"checkmark/api/internal/store"
)

// APIKeyHeader carries an API key on requests made without a session cookie.
const APIKeyHeader = "x-api-key"

func (s *Service) HasUsers(ctx context.Context) (bool, error) {
	return s.files.HasUsers(ctx)
}

// Setup creates the first admin account and signs it in.
func (s *Service) Setup(ctx context.Context, username, password string) (string, store.User, error) {
	user, err := s.accounts.Setup(ctx, username, password)
	if err != nil {
		return "", store.User{}, err
	}
	sessionID, err := s.startSession(ctx, user.Username)
	if err != nil {
		return "", store.User{}, err
	}
	return sessionID, user, nil
}

func (s *Service) Login(ctx context.Context, username, password string) (string, store.User, error) {
	user, err := s.accounts.SignIn(ctx, username, password)
	if err != nil {
		return "", store.User{}, err
	}
	sessionID, err := s.startSession(ctx, user.Username)
	if err != nil {
		return "", store.User{}, err
	}
	return sessionID, user, nil
}

func (s *Service) startSession(ctx context.Context, username string) (string, error) {
	sessionID, err := auth.NewSessionID()
	if err != nil {
		return "", err
	}
	if err := s.sessions.Create(ctx, sessionID, username); err != nil {
		return "", err
	}
	return sessionID, nil
}

// Logout removes the session entry. Unknown sessions are ignored.
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	err := s.sessions.Delete(ctx, sessionID)
	if errors.Is(err, session.ErrSessionNotFound) {
		return nil
	}
	return err
}

// CurrentUser resolves the session cookie on r. It returns nil, nil when
// there is no cookie, the session is unknown, or its user no longer exists.
func (s *Service) CurrentUser(ctx context.Context, r *http.Request) (*store.User, error) {
	cookie, err := r.Cookie(s.cfg.SessionCookie)
	if err != nil || cookie.Value == "" {
		return nil, nil
	}
	return s.userForSession(ctx, cookie.Value)
}

func (s *Service) userForSession(ctx context.Context, sessionID string) (*store.User, error) {
	username, err := s.sessions.Lookup(ctx, sessionID)
	if errors.Is(err, session.ErrSessionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	user, err := s.files.GetUser(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// IsAdmin is false whenever the caller cannot be resolved.
func (s *Service) IsAdmin(ctx context.Context, r *http.Request) bool {
	user, err := s.CurrentUser(ctx, r)
	return err == nil && user != nil && user.IsAdmin
}

func (s *Service) AuthenticateAPIKey(ctx context.Context, key string) (*store.User, error) {
	return s.accounts.AuthenticateAPIKey(ctx, key)
}

// Identify resolves the caller from the session cookie, then from the API key
// header. It returns nil, nil for anonymous callers.
func (s *Service) Identify(ctx context.Context, r *http.Request) (*store.User, error) {
	user, err := s.CurrentUser(ctx, r)
	if err != nil || user != nil {
		return user, err
	}
	key := strings.TrimSpace(r.Header.Get(APIKeyHeader))
	if key == "" {
		return nil, nil
	}
	return s.AuthenticateAPIKey(ctx, key)
}

func (s *Service) ClearSessions(ctx context.Context, actor store.User) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	return s.sessions.Clear(ctx)
}

func (s *Service) ChangePassword(ctx context.Context, actor store.User, current, next string) error {
	return s.accounts.ChangePassword(ctx, actor.Username, current, next)
}

func (s *Service) RegenerateAPIKey(ctx context.Context, actor store.User) (string, error) {
	return s.accounts.RegenerateAPIKey(ctx, actor.Username)
}
