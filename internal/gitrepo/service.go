// Package gitrepo keeps a revision history of notes. Each user has one git
// repository and every note is a file named after its id.
package gitrepo

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

var (
	// ErrNoChanges is returned by Record when the content matches the last
	// recorded revision.
	ErrNoChanges = errors.New("no changes to record")
	ErrNotFound  = errors.New("revision not found")
)

type Commit struct {
	Hash      string    `json:"hash"`
	ShortHash string    `json:"shortHash"`
	Message   string    `json:"message"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
}

type Service struct {
	baseDir string
	lockMu  sync.Mutex
	locks   map[string]*sync.Mutex
}

func New(baseDir string) *Service {
	return &Service{
		baseDir: baseDir,
		locks:   make(map[string]*sync.Mutex),
	}
}

// Record writes content as the current revision of the note and commits it.
func (s *Service) Record(username, noteID, content, author, message string) (Commit, error) {
	name, err := noteFile(noteID)
	if err != nil {
		return Commit{}, err
	}
	lock := s.userLock(username)
	lock.Lock()
	defer lock.Unlock()

	repo, err := s.openOrInit(username)
	if err != nil {
		return Commit{}, err
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return Commit{}, fmt.Errorf("open worktree: %w", err)
	}
	if err := os.WriteFile(filepath.Join(worktree.Filesystem.Root(), name), []byte(content), 0o644); err != nil {
		return Commit{}, fmt.Errorf("write %s: %w", name, err)
	}
	if _, err := worktree.Add(name); err != nil {
		return Commit{}, fmt.Errorf("git add %s: %w", name, err)
	}
	return commit(repo, worktree, author, message)
}

// Remove records the deletion of a note. Notes that were never recorded are
// ignored.
func (s *Service) Remove(username, noteID, author string) error {
	name, err := noteFile(noteID)
	if err != nil {
		return err
	}
	lock := s.userLock(username)
	lock.Lock()
	defer lock.Unlock()

	repo, err := git.PlainOpen(s.repoPath(username))
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open repo: %w", err)
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("open worktree: %w", err)
	}
	if _, err := os.Stat(filepath.Join(worktree.Filesystem.Root(), name)); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if _, err := worktree.Remove(name); err != nil {
		return fmt.Errorf("git rm %s: %w", name, err)
	}
	_, err = commit(repo, worktree, author, "Delete note "+noteID)
	if errors.Is(err, ErrNoChanges) {
		return nil
	}
	return err
}

// History lists the commits touching the note, newest first. A note without
// history yields an empty list.
func (s *Service) History(username, noteID string, limit int) ([]Commit, error) {
	name, err := noteFile(noteID)
	if err != nil {
		return nil, err
	}
	lock := s.userLock(username)
	lock.Lock()
	defer lock.Unlock()

	items := make([]Commit, 0)
	repo, err := git.PlainOpen(s.repoPath(username))
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return items, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open repo: %w", err)
	}
	head, err := repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return items, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve HEAD: %w", err)
	}

	iter, err := repo.Log(&git.LogOptions{From: head.Hash(), FileName: &name})
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	defer iter.Close()

	err = iter.ForEach(func(commitObj *object.Commit) error {
		items = append(items, toCommit(commitObj))
		if limit > 0 && len(items) >= limit {
			return io.EOF
		}
		return nil
	})
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("iterate log: %w", err)
	}
	return items, nil
}

// ContentAt returns the note body as recorded in the given commit.
func (s *Service) ContentAt(username, noteID, hash string) (string, error) {
	name, err := noteFile(noteID)
	if err != nil {
		return "", err
	}
	lock := s.userLock(username)
	lock.Lock()
	defer lock.Unlock()

	repo, err := git.PlainOpen(s.repoPath(username))
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("open repo: %w", err)
	}
	resolved, err := resolveHash(repo, hash)
	if err != nil {
		return "", err
	}
	commitObj, err := repo.CommitObject(resolved)
	if err != nil {
		return "", ErrNotFound
	}
	file, err := commitObj.File(name)
	if errors.Is(err, object.ErrFileNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("load %s from commit: %w", name, err)
	}
	return file.Contents()
}

// Purge drops the user's whole history repository.
func (s *Service) Purge(username string) error {
	lock := s.userLock(username)
	lock.Lock()
	defer lock.Unlock()
	if err := os.RemoveAll(s.repoPath(username)); err != nil {
		return fmt.Errorf("remove history for %s: %w", username, err)
	}
	return nil
}

func (s *Service) repoPath(username string) string {
	return filepath.Join(s.baseDir, username)
}

func (s *Service) userLock(username string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	lock, ok := s.locks[username]
	if ok {
		return lock
	}
	lock = &sync.Mutex{}
	s.locks[username] = lock
	return lock
}

func (s *Service) openOrInit(username string) (*git.Repository, error) {
	path := s.repoPath(username)
	repo, err := git.PlainOpen(path)
	if err == nil {
		return repo, nil
	}
	if !errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, fmt.Errorf("open repo: %w", err)
	}

	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create repo dir: %w", err)
	}
	repo, err = git.PlainInit(path, false)
	if err != nil {
		return nil, fmt.Errorf("init repo: %w", err)
	}
	if err := repo.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName("main"))); err != nil {
		return nil, fmt.Errorf("set HEAD to main: %w", err)
	}
	return repo, nil
}

func commit(repo *git.Repository, worktree *git.Worktree, author, message string) (Commit, error) {
	status, err := worktree.Status()
	if err != nil {
		return Commit{}, fmt.Errorf("read status: %w", err)
	}
	if status.IsClean() {
		return Commit{}, ErrNoChanges
	}
	if author == "" {
		author = "checkmark"
	}
	hash, err := worktree.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  author,
			Email: fmt.Sprintf("%s@local.checkmark", sanitizeEmail(author)),
			When:  time.Now(),
		},
	})
	if err != nil {
		return Commit{}, fmt.Errorf("commit: %w", err)
	}
	commitObj, err := repo.CommitObject(hash)
	if err != nil {
		return Commit{}, fmt.Errorf("read commit object: %w", err)
	}
	return toCommit(commitObj), nil
}

func noteFile(noteID string) (string, error) {
	if noteID == "" || strings.HasPrefix(noteID, ".") || strings.ContainsAny(noteID, `/\`) {
		return "", fmt.Errorf("invalid note id %q", noteID)
	}
	return noteID + ".md", nil
}

func toCommit(commitObj *object.Commit) Commit {
	hash := commitObj.Hash.String()
	return Commit{
		Hash:      hash,
		ShortHash: hash[:7],
		Message:   strings.TrimSpace(commitObj.Message),
		Author:    commitObj.Author.Name,
		CreatedAt: commitObj.Author.When,
	}
}

func sanitizeEmail(input string) string {
	bytes := make([]rune, 0, len(input))
	for _, r := range input {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			bytes = append(bytes, r)
			continue
		}
		if r == ' ' || r == '-' || r == '_' || r == '.' {
			bytes = append(bytes, '.')
		}
	}
	if len(bytes) == 0 {
		return "user"
	}
	return string(bytes)
}

func resolveHash(repo *git.Repository, hash string) (plumbing.Hash, error) {
	if len(hash) == 40 {
		return plumbing.NewHash(hash), nil
	}
	resolved, err := repo.ResolveRevision(plumbing.Revision(hash))
	if err != nil {
		return plumbing.ZeroHash, ErrNotFound
	}
	return *resolved, nil
}
