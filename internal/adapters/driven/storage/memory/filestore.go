package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/custodia-labs/ragdesk/internal/adapters/driven/storage/files"
	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
)

// Ensure FileStore implements the interface.
var _ driven.FileStore = (*FileStore)(nil)

// FileStore keeps uploaded bytes in memory.
type FileStore struct {
	mu    sync.RWMutex
	files map[string][]byte
}

// NewFileStore creates a new in-memory file store.
func NewFileStore() *FileStore {
	return &FileStore{files: make(map[string][]byte)}
}

// Save stores a copy of data under a generated name.
func (s *FileStore) Save(_ context.Context, originalName string, data []byte) (string, error) {
	name := uuid.NewString() + files.Extension(originalName)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[name] = append([]byte(nil), data...)
	return name, nil
}

// Read returns a copy of the stored bytes.
func (s *FileStore) Read(_ context.Context, storedName string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.files[storedName]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

// Delete removes storedName if present.
func (s *FileStore) Delete(_ context.Context, storedName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, storedName)
	return nil
}

// Len returns the number of stored files.
func (s *FileStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.files)
}
