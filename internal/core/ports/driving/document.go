package driving

import (
	"context"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
)

// IngestRequest describes one uploaded file.
type IngestRequest struct {
	// OwnerID is the uploading principal. Empty means anonymous.
	OwnerID string

	// Filename is the caller-supplied display name.
	Filename string

	// MIMEType selects the extractor. Detected from Filename when empty.
	MIMEType string

	// Category is copied into every chunk's metadata.
	Category string

	// Public stores the document in the shared collection.
	Public bool

	// Content is the file bytes.
	Content []byte
}

// DocumentService ingests, lists and removes documents.
type DocumentService interface {
	// Ingest stores, extracts, chunks and indexes a file.
	// Pipeline failures are reported in the result with Success false;
	// the returned error is reserved for failures to record the attempt at all.
	Ingest(ctx context.Context, req IngestRequest) (*domain.IngestResult, error)

	// List returns the owner's documents, newest first. An empty category matches all.
	List(ctx context.Context, ownerID, category string) ([]domain.Document, error)

	// Get retrieves one of the owner's documents.
	Get(ctx context.Context, ownerID, documentID string) (*domain.Document, error)

	// Delete removes a document's points, stored file and record.
	Delete(ctx context.Context, ownerID, documentID string) error

	// DeleteByFilename removes every document of the owner with this display name.
	DeleteByFilename(ctx context.Context, ownerID, filename string) error
}
