package app

import (
	"context"
	"fmt"
	"os"

	"checkmark/api/internal/authpw"
	"checkmark/api/internal/config"
	"checkmark/api/internal/gitrepo"
	"checkmark/api/internal/rbac"
	"checkmark/api/internal/search"
	"checkmark/api/internal/session"
	"checkmark/api/internal/store"
	"checkmark/api/internal/uploads"
)

// NoteHistory records note revisions. It is optional; a nil NoteHistory
// disables the history endpoints.
type NoteHistory interface {
	Record(username, noteID, content, author, message string) (gitrepo.Commit, error)
	Remove(username, noteID, author string) error
	History(username, noteID string, limit int) ([]gitrepo.Commit, error)
	ContentAt(username, noteID, hash string) (string, error)
	Purge(username string) error
}

// searchIndex is the part of *search.Service the app drives.
type searchIndex interface {
	Search(ctx context.Context, q search.Query) search.Response
	Index(record search.Record)
	Delete(kind search.ResultType, itemID string)
	ReindexAll(ctx context.Context)
	Close()
}

type pinger interface {
	Ping(ctx context.Context) error
}

type Service struct {
	cfg      config.Config
	files    *store.Store
	sessions session.Store
	accounts *authpw.Service
	history  NoteHistory
	search   searchIndex
	uploads  uploads.Store
}

// New wires the service. sessions and blobs default to the file-backed
// implementations under the data dir; meili may be nil.
func New(cfg config.Config, files *store.Store, sessions session.Store, history NoteHistory, blobs uploads.Store, meili *search.Meili) *Service {
	if sessions == nil {
		sessions = session.NewFileStore(files)
	}
	if blobs == nil {
		blobs = uploads.NewFSStore(files)
	}
	return &Service{
		cfg:      cfg,
		files:    files,
		sessions: sessions,
		accounts: authpw.NewService(files),
		history:  history,
		search:   search.NewService(meili, NewRecordSource(files)),
		uploads:  blobs,
	}
}

// Bootstrap prepares the data dir and pushes every item to the search index.
func (s *Service) Bootstrap(ctx context.Context) error {
	if err := s.files.Init(); err != nil {
		return err
	}
	s.search.ReindexAll(ctx)
	return nil
}

func (s *Service) Ping(ctx context.Context) error {
	info, err := os.Stat(s.files.Root())
	if err != nil {
		return fmt.Errorf("data dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("data dir %s is not a directory", s.files.Root())
	}
	if p, ok := s.sessions.(pinger); ok {
		if err := p.Ping(ctx); err != nil {
			return fmt.Errorf("session store: %w", err)
		}
	}
	return nil
}

func (s *Service) Close() {
	s.search.Close()
}

func (s *Service) CookieName() string {
	return s.cfg.SessionCookie
}

func requireAdmin(actor store.User) error {
	role := rbac.RoleFor(actor.Username, actor.IsAdmin, "", nil)
	if !rbac.Can(role, rbac.ActionAdmin) {
		return errForbidden()
	}
	return nil
}
