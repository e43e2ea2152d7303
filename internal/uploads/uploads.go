// Package uploads stores branding assets such as app icons.
package uploads

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

// MaxSize bounds a single upload.
const MaxSize = 5 << 20

var (
	ErrNotFound    = errors.New("upload not found")
	ErrInvalidName = errors.New("invalid upload name")
	ErrTooLarge    = errors.New("upload too large")
	ErrUnsupported = errors.New("unsupported file type")
)

var contentTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".svg":  "image/svg+xml",
	".ico":  "image/x-icon",
	".webp": "image/webp",
}

// Store is implemented by every blob backend.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// ContentType maps an accepted image extension to its MIME type.
func ContentType(name string) (string, bool) {
	ct, ok := contentTypes[strings.ToLower(path.Ext(name))]
	return ct, ok
}

// ValidateKey accepts a plain file name with an image extension.
func ValidateKey(key string) error {
	if key == "" || key != path.Base(key) || strings.HasPrefix(key, ".") || strings.ContainsAny(key, `\/`) {
		return fmt.Errorf("%w: %q", ErrInvalidName, key)
	}
	if _, ok := ContentType(key); !ok {
		return fmt.Errorf("%w: %s", ErrUnsupported, path.Ext(key))
	}
	return nil
}
