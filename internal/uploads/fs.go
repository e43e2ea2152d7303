package uploads

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"

	"checkmark/api/internal/store"
)

// iconsDir holds app icons under the data root.
const iconsDir = "uploads/app-icons"

// FSStore keeps uploads in the data directory next to the rest of the state.
type FSStore struct {
	files *store.Store
}

func NewFSStore(files *store.Store) *FSStore {
	return &FSStore{files: files}
}

func (s *FSStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	data, err := io.ReadAll(io.LimitReader(r, MaxSize+1))
	if err != nil {
		return fmt.Errorf("read upload: %w", err)
	}
	if len(data) > MaxSize {
		return ErrTooLarge
	}
	return s.files.WriteFile(path.Join(iconsDir, key), data)
}

func (s *FSStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ValidateKey(key); err != nil {
		return nil, ErrNotFound
	}
	data, err := s.files.ReadFile(path.Join(iconsDir, key))
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *FSStore) Delete(ctx context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	return s.files.DeleteFile(path.Join(iconsDir, key))
}
