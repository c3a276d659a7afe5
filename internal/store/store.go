// Package store persists run artifacts as text blobs in a hierarchical
// namespace.
package store

import (
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/spf13/afero"

	"github.com/Iron-Ham/conclave/internal/errors"
)

// Handle identifies a stored blob.
type Handle struct {
	Path string
}

// Store creates and reads text blobs. Paths use forward slashes and are
// relative to the store root.
type Store interface {
	CreateBlob(path, text string) (Handle, error)
	ReadBlob(h Handle) (string, error)
	EnsureContainer(path string) error
}

// FS is a Store backed by an afero filesystem.
type FS struct {
	fs afero.Fs
}

// NewFS returns a store rooted at root on the OS filesystem.
func NewFS(root string) *FS {
	return &FS{fs: afero.NewBasePathFs(afero.NewOsFs(), root)}
}

// NewMemory returns a store held entirely in memory.
func NewMemory() *FS {
	return &FS{fs: afero.NewMemMapFs()}
}

// NewWithFs wraps an existing afero filesystem.
func NewWithFs(fs afero.Fs) *FS {
	return &FS{fs: fs}
}

// CreateBlob writes a new blob, creating parent containers as needed. It
// fails with ErrBlobExists if the path is already taken.
func (s *FS) CreateBlob(p, text string) (Handle, error) {
	clean, err := cleanPath(p)
	if err != nil {
		return Handle{}, err
	}
	if err := s.fs.MkdirAll(path.Dir(clean), 0o755); err != nil {
		return Handle{}, fmt.Errorf("create container for %s: %w", clean, err)
	}

	f, err := s.fs.OpenFile(clean, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return Handle{}, errors.NewAlreadyExistsError("blob", clean).WithCause(errors.ErrBlobExists)
		}
		return Handle{}, fmt.Errorf("create blob %s: %w", clean, err)
	}
	if _, err := f.WriteString(text); err != nil {
		_ = f.Close()
		return Handle{}, fmt.Errorf("write blob %s: %w", clean, err)
	}
	if err := f.Close(); err != nil {
		return Handle{}, fmt.Errorf("close blob %s: %w", clean, err)
	}
	return Handle{Path: clean}, nil
}

// ReadBlob returns the text of a blob.
func (s *FS) ReadBlob(h Handle) (string, error) {
	clean, err := cleanPath(h.Path)
	if err != nil {
		return "", err
	}
	data, err := afero.ReadFile(s.fs, clean)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", errors.NewNotFoundError("blob", clean).WithCause(errors.ErrBlobNotFound)
		}
		return "", fmt.Errorf("read blob %s: %w", clean, err)
	}
	return string(data), nil
}

// EnsureContainer creates the container and its parents if missing.
func (s *FS) EnsureContainer(p string) error {
	clean, err := cleanPath(p)
	if err != nil {
		return err
	}
	if err := s.fs.MkdirAll(clean, 0o755); err != nil {
		return fmt.Errorf("create container %s: %w", clean, err)
	}
	return nil
}

// Exists reports whether a blob or container exists at p.
func (s *FS) Exists(p string) bool {
	clean, err := cleanPath(p)
	if err != nil {
		return false
	}
	ok, _ := afero.Exists(s.fs, clean)
	return ok
}

// cleanPath normalizes p to a rooted slash path and rejects escapes above
// the root.
func cleanPath(p string) (string, error) {
	trimmed := strings.TrimSpace(strings.ReplaceAll(p, `\`, "/"))
	if trimmed == "" {
		return "", errors.NewValidationError("blob path must not be empty").WithField("path")
	}
	for _, seg := range strings.Split(trimmed, "/") {
		if seg == ".." {
			return "", errors.NewValidationError("blob path must not escape the store root").WithField("path").WithValue(p)
		}
	}
	return path.Clean("/" + trimmed), nil
}
