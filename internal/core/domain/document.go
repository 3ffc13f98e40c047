package domain

import "time"

// DocumentStatus tracks a document through ingestion.
type DocumentStatus string

// Document lifecycle states.
const (
	DocumentStatusPending    DocumentStatus = "pending"
	DocumentStatusProcessing DocumentStatus = "processing"
	DocumentStatusCompleted  DocumentStatus = "completed"
	DocumentStatusFailed     DocumentStatus = "failed"
)

// IsValid returns true if the status is recognised.
func (s DocumentStatus) IsValid() bool {
	switch s {
	case DocumentStatusPending, DocumentStatusProcessing, DocumentStatusCompleted, DocumentStatusFailed:
		return true
	default:
		return false
	}
}

// IsTerminal returns true once ingestion has finished, successfully or not.
func (s DocumentStatus) IsTerminal() bool {
	return s == DocumentStatusCompleted || s == DocumentStatusFailed
}

// String returns the string representation.
func (s DocumentStatus) String() string {
	return string(s)
}

// Document represents an uploaded file and its ingestion state.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// OwnerID is the principal that uploaded the document.
	OwnerID string

	// Filename is the caller-supplied name, kept for display and attribution only.
	Filename string

	// StoredName is the generated name used by the file store.
	StoredName string

	// MIMEType is the detected or declared content type.
	MIMEType string

	// Category is a free-form label copied into every chunk's metadata.
	Category string

	// Collection is the vector index collection holding this document's points.
	Collection string

	// Size is the byte length of the uploaded file.
	Size int64

	// Status is the ingestion state.
	Status DocumentStatus

	// ChunkCount is the number of points written for this document.
	ChunkCount int

	// Error holds the failure reason when Status is failed.
	Error string

	// CreatedAt is when the document was uploaded.
	CreatedAt time.Time

	// UpdatedAt is when the status last changed.
	UpdatedAt time.Time
}

// Page is one physical page of extracted text.
type Page struct {
	// Index is the 1-based page number.
	Index int

	// Text is the normalised page text. It may be empty.
	Text string
}

// Metadata keys carried by every chunk.
const (
	MetaFilename = "filename"
	MetaPage     = "page"
	MetaCategory = "category"
)

// ChunkMetadata is the provenance attached to every chunk.
type ChunkMetadata struct {
	Filename string
	Page     int
	Category string
}

// AsMap returns the metadata in its persisted form.
func (m ChunkMetadata) AsMap() map[string]any {
	return map[string]any{
		MetaFilename: m.Filename,
		MetaPage:     m.Page,
		MetaCategory: m.Category,
	}
}

// Chunk is a bounded slice of page text. One chunk becomes one indexed point.
type Chunk struct {
	Text     string
	Metadata ChunkMetadata
}

// IngestResult is what a caller sees after ingesting a file.
type IngestResult struct {
	// Success is true only when every chunk was indexed.
	Success bool

	// Message is a human-readable summary or failure reason.
	Message string

	// Document is the record as persisted at the end of ingestion.
	Document *Document
}
