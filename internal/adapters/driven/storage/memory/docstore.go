package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
)

// Ensure DocumentStore implements the interface.
var _ driven.DocumentStore = (*DocumentStore)(nil)

// DocumentStore is an in-memory implementation of driven.DocumentStore.
type DocumentStore struct {
	mu        sync.RWMutex
	documents map[string]domain.Document
}

// NewDocumentStore creates a new in-memory document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		documents: make(map[string]domain.Document),
	}
}

// SaveDocument stores or updates a document.
func (s *DocumentStore) SaveDocument(_ context.Context, doc *domain.Document) error {
	if doc == nil || doc.ID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents[doc.ID] = *doc
	return nil
}

// GetDocument retrieves a document by ID.
func (s *DocumentStore) GetDocument(_ context.Context, id string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

// FindByFilename returns the owner's documents with the given display name.
func (s *DocumentStore) FindByFilename(_ context.Context, ownerID, filename string) ([]domain.Document, error) {
	return s.filter(func(d domain.Document) bool {
		return d.OwnerID == ownerID && d.Filename == filename
	}), nil
}

// FindInCollection returns every owner's documents with the given display
// name in one collection.
func (s *DocumentStore) FindInCollection(_ context.Context, collection, filename string) ([]domain.Document, error) {
	return s.filter(func(d domain.Document) bool {
		return d.Collection == collection && d.Filename == filename
	}), nil
}

// ListDocuments returns the owner's documents, newest first.
func (s *DocumentStore) ListDocuments(_ context.Context, ownerID, category string) ([]domain.Document, error) {
	return s.filter(func(d domain.Document) bool {
		return d.OwnerID == ownerID && (category == "" || d.Category == category)
	}), nil
}

// UpdateStatus sets status, chunk count, and failure reason in one write.
func (s *DocumentStore) UpdateStatus(
	_ context.Context, id string, status domain.DocumentStatus, chunkCount int, reason string,
) error {
	if !status.IsValid() {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.documents[id]
	if !ok {
		return domain.ErrNotFound
	}
	doc.Status = status
	doc.ChunkCount = chunkCount
	doc.Error = reason
	doc.UpdatedAt = time.Now().UTC()
	s.documents[id] = doc
	return nil
}

// DeleteDocument removes a document record.
func (s *DocumentStore) DeleteDocument(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.documents, id)
	return nil
}

func (s *DocumentStore) filter(keep func(domain.Document) bool) []domain.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.Document{}
	for _, d := range s.documents {
		if keep(d) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
