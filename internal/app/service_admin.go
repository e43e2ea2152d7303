package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"path"
	"strings"
	"time"

	"checkmark/api/internal/store"
	"checkmark/api/internal/uploads"
)

// UserView is the public shape of an account. Password hashes and API keys
// never leave the service through it.
type UserView struct {
	Username  string    `json:"username"`
	IsAdmin   bool      `json:"isAdmin"`
	HasAPIKey bool      `json:"hasApiKey"`
	CreatedAt time.Time `json:"createdAt"`
}

func viewOf(user store.User) UserView {
	return UserView{
		Username:  user.Username,
		IsAdmin:   user.IsAdmin,
		HasAPIKey: user.APIKey != "",
		CreatedAt: user.CreatedAt,
	}
}

type CreateUserInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
	IsAdmin  bool   `json:"isAdmin"`
}

func (s *Service) ListUsers(ctx context.Context, actor store.User) ([]UserView, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	users, err := s.files.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]UserView, 0, len(users))
	for _, user := range users {
		views = append(views, viewOf(user))
	}
	return views, nil
}

func (s *Service) CreateUser(ctx context.Context, actor store.User, input CreateUserInput) (UserView, error) {
	if err := requireAdmin(actor); err != nil {
		return UserView{}, err
	}
	user, err := s.accounts.Register(ctx, strings.TrimSpace(input.Username), input.Password, input.IsAdmin)
	if err != nil {
		return UserView{}, err
	}
	return viewOf(user), nil
}

// DeleteUser removes the account with all of its items, grants, sessions and
// history. Admins cannot delete themselves.
func (s *Service) DeleteUser(ctx context.Context, actor store.User, username string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if username == actor.Username {
		return errValidation("you cannot delete your own account")
	}
	records, err := NewRecordSource(s.files).userRecords(ctx, username)
	if err != nil && !errors.Is(err, store.ErrValidation) {
		return err
	}
	if err := s.files.DeleteUser(ctx, username); err != nil {
		return err
	}
	if err := s.sessions.DeleteForUser(ctx, username); err != nil {
		log.Printf("session: drop sessions of %s: %v", username, err)
	}
	if s.history != nil {
		if err := s.history.Purge(username); err != nil {
			log.Printf("history: purge %s: %v", username, err)
		}
	}
	for _, record := range records {
		if record.Owner == username {
			s.search.Delete(record.Type, record.ItemID)
			continue
		}
		// Shared with the deleted user; its readers changed with the grant.
		s.reindex(ctx, store.ItemType(record.Type), record.ItemID, record.Owner)
	}
	return nil
}

func (s *Service) ResetUserPassword(ctx context.Context, actor store.User, username, password string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	return s.accounts.ResetPassword(ctx, username, password)
}

func (s *Service) GetSettings(ctx context.Context) (store.AppSettings, error) {
	return s.files.GetSettings(ctx)
}

func (s *Service) UpdateSettings(ctx context.Context, actor store.User, input store.AppSettings) (store.AppSettings, error) {
	if err := requireAdmin(actor); err != nil {
		return store.AppSettings{}, err
	}
	return s.files.UpdateSettings(ctx, func(settings *store.AppSettings) error {
		if name := strings.TrimSpace(input.AppName); name != "" {
			settings.AppName = name
		}
		settings.AppDescription = strings.TrimSpace(input.AppDescription)
		settings.Icon16 = input.Icon16
		settings.Icon32 = input.Icon32
		settings.Icon180 = input.Icon180
		return nil
	})
}

// iconSlots maps the upload form's slot names onto the settings fields they
// update.
var iconSlots = map[string]func(*store.AppSettings, string){
	"16x16Icon":   func(s *store.AppSettings, url string) { s.Icon16 = url },
	"32x32Icon":   func(s *store.AppSettings, url string) { s.Icon32 = url },
	"180x180Icon": func(s *store.AppSettings, url string) { s.Icon180 = url },
}

// UploadAppIcon stores an image and returns the URL it is served from. When
// slot names one of the icon settings, that setting is pointed at the upload.
func (s *Service) UploadAppIcon(ctx context.Context, actor store.User, name, slot string, r io.Reader, size int64) (string, error) {
	if err := requireAdmin(actor); err != nil {
		return "", err
	}
	name = path.Base(strings.TrimSpace(name))
	if err := uploads.ValidateKey(name); err != nil {
		return "", err
	}
	if size > uploads.MaxSize {
		return "", uploads.ErrTooLarge
	}
	setIcon, hasSlot := iconSlots[slot]
	if slot != "" && !hasSlot {
		return "", errValidation(fmt.Sprintf("unknown icon slot %q", slot))
	}
	contentType, _ := uploads.ContentType(name)
	if err := s.uploads.Put(ctx, name, r, size, contentType); err != nil {
		return "", err
	}
	url := "/api/app-icons/" + name
	if hasSlot {
		if _, err := s.files.UpdateSettings(ctx, func(settings *store.AppSettings) error {
			setIcon(settings, url)
			return nil
		}); err != nil {
			return "", err
		}
	}
	return url, nil
}

// AppIcon opens an uploaded icon. The caller closes the reader.
func (s *Service) AppIcon(ctx context.Context, name string) (io.ReadCloser, string, error) {
	if err := uploads.ValidateKey(name); err != nil {
		return nil, "", uploads.ErrNotFound
	}
	body, err := s.uploads.Get(ctx, name)
	if err != nil {
		return nil, "", err
	}
	contentType, _ := uploads.ContentType(name)
	return body, contentType, nil
}
