// Package files stores uploaded document bytes on the local disk.
package files

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.FileStore = (*Store)(nil)

// maxExtLen bounds the extension carried over from the original name.
const maxExtLen = 10

// Store writes each upload to <dir>/<uuid><ext>.
type Store struct {
	dir string
}

// NewStore creates a file store rooted at dir, creating it if needed.
// If dir is empty, defaults to ~/.ragdesk/data/files.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dir = filepath.Join(home, ".ragdesk", "data", "files")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("creating files directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the storage directory.
func (s *Store) Dir() string {
	return s.dir
}

// Save writes data under a fresh name. The write goes through a temp file
// so a crash never leaves a partial upload under the final name.
func (s *Store) Save(_ context.Context, originalName string, data []byte) (string, error) {
	name := uuid.NewString() + Extension(originalName)

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w: %w", domain.ErrPersistenceFailed, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("writing upload: %w: %w", domain.ErrPersistenceFailed, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("closing upload: %w: %w", domain.ErrPersistenceFailed, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		return "", fmt.Errorf("storing upload: %w: %w", domain.ErrPersistenceFailed, err)
	}
	return name, nil
}

// Read returns the bytes stored under storedName.
func (s *Store) Read(_ context.Context, storedName string) ([]byte, error) {
	path, err := s.path(storedName)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading upload: %w", err)
	}
	return data, nil
}

// Delete removes storedName. A missing file is not an error.
func (s *Store) Delete(_ context.Context, storedName string) error {
	path, err := s.path(storedName)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("deleting upload: %w", err)
	}
	return nil
}

// path rejects anything that is not a bare generated name.
func (s *Store) path(storedName string) (string, error) {
	if storedName == "" || storedName != filepath.Base(storedName) || strings.HasPrefix(storedName, ".") {
		return "", fmt.Errorf("stored name %q: %w", storedName, domain.ErrInvalidInput)
	}
	return filepath.Join(s.dir, storedName), nil
}

// Extension returns the lower-cased extension of name, or "" when it is
// missing, too long, or not alphanumeric.
func Extension(name string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(filepath.ToSlash(name))))
	if len(ext) < 2 || len(ext) > maxExtLen {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}
