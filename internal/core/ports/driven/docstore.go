package driven

import (
	"context"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
)

// DocumentStore persists document records.
type DocumentStore interface {
	// SaveDocument stores or updates a document.
	SaveDocument(ctx context.Context, doc *domain.Document) error

	// GetDocument retrieves a document by ID.
	// Returns domain.ErrNotFound if it does not exist.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// FindByFilename returns the owner's documents with the given display name.
	FindByFilename(ctx context.Context, ownerID, filename string) ([]domain.Document, error)

	// FindInCollection returns documents of any owner with the given
	// display name in one collection.
	FindInCollection(ctx context.Context, collection, filename string) ([]domain.Document, error)

	// ListDocuments returns the owner's documents, newest first.
	// An empty category matches all.
	ListDocuments(ctx context.Context, ownerID, category string) ([]domain.Document, error)

	// UpdateStatus sets status, chunk count, and failure reason in one write.
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, chunkCount int, reason string) error

	// DeleteDocument removes a document record.
	DeleteDocument(ctx context.Context, id string) error
}
