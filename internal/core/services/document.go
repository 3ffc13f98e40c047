package services

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driving"
	"github.com/custodia-labs/ragdesk/internal/logger"
	"github.com/custodia-labs/ragdesk/internal/metrics"
	"github.com/custodia-labs/ragdesk/internal/postprocessors/chunker"
)

// Ensure DocumentService implements the interface.
var _ driving.DocumentService = (*DocumentService)(nil)

// supersededReason marks a version whose points were replaced by a newer upload.
const supersededReason = "superseded by a newer upload"

// PageChunker turns extracted pages into chunks with provenance metadata.
type PageChunker interface {
	ChunkPages(pages []domain.Page, filename, category string) []domain.Chunk
}

// DocumentOption configures a DocumentService.
type DocumentOption func(*DocumentService)

// WithPageOverlap carries the leading fraction of each following page's
// tokens onto the page before it prior to chunking.
func WithPageOverlap(fraction float64) DocumentOption {
	return func(s *DocumentService) {
		s.pageOverlap = true
		s.pageOverlapFraction = fraction
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) DocumentOption {
	return func(s *DocumentService) {
		s.now = now
	}
}

// DocumentService ingests files into the vector index and tracks their state.
type DocumentService struct {
	docStore   driven.DocumentStore
	fileStore  driven.FileStore
	extractors driven.ExtractorRegistry
	index      *VectorIndex
	chunker    PageChunker
	metrics    *metrics.Metrics

	pageOverlap         bool
	pageOverlapFraction float64

	// locks serialises ingestion and deletion per filename across owners,
	// since public points of every owner share one collection.
	locks *keyedMutex
	now   func() time.Time
}

// NewDocumentService creates a new document service.
func NewDocumentService(
	docStore driven.DocumentStore,
	fileStore driven.FileStore,
	extractors driven.ExtractorRegistry,
	index *VectorIndex,
	pageChunker PageChunker,
	m *metrics.Metrics,
	opts ...DocumentOption,
) *DocumentService {
	s := &DocumentService{
		docStore:   docStore,
		fileStore:  fileStore,
		extractors: extractors,
		index:      index,
		chunker:    pageChunker,
		metrics:    m,
		locks:      newKeyedMutex(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ingest stores the file, records it as pending, and runs extraction,
// chunking and indexing. A previous document with the same filename is
// superseded once the new one is fully indexed.
func (s *DocumentService) Ingest(ctx context.Context, req driving.IngestRequest) (*domain.IngestResult, error) {
	filename := displayName(req.Filename)
	if filename == "" {
		return nil, fmt.Errorf("filename is empty: %w", domain.ErrInvalidInput)
	}
	owner := normaliseOwner(req.OwnerID)

	logger.Section("Ingest")
	logger.Debug("File: %s (%d bytes), owner=%s, public=%t", filename, len(req.Content), owner, req.Public)

	unlock := s.locks.Lock(filename)
	defer unlock()

	if req.Public {
		if err := s.claimPublicName(ctx, owner, filename); err != nil {
			return nil, err
		}
	}

	storedName, err := s.fileStore.Save(ctx, filename, req.Content)
	if err != nil {
		return nil, fmt.Errorf("store %s: %w", filename, err)
	}

	now := s.now()
	doc := &domain.Document{
		ID:         uuid.NewString(),
		OwnerID:    owner,
		Filename:   filename,
		StoredName: storedName,
		MIMEType:   mimeTypeFor(req.MIMEType, filename),
		Category:   req.Category,
		Collection: CollectionFor(owner, req.Public),
		Size:       int64(len(req.Content)),
		Status:     domain.DocumentStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.docStore.SaveDocument(ctx, doc); err != nil {
		_ = s.fileStore.Delete(ctx, storedName)
		return nil, fmt.Errorf("record %s: %w", filename, err)
	}

	previous, err := s.previousVersions(ctx, doc)
	if err != nil {
		return s.fail(ctx, doc, err)
	}

	if err := s.docStore.UpdateStatus(ctx, doc.ID, domain.DocumentStatusProcessing, 0, ""); err != nil {
		return s.fail(ctx, doc, err)
	}

	chunks, err := s.chunk(ctx, doc, req.Content)
	if err != nil {
		return s.fail(ctx, doc, err)
	}

	// Points are keyed by filename, so older versions must leave the index
	// before the new ones arrive. A version without points is no longer
	// completed, whatever happens to the new upload.
	for _, prev := range previous {
		if err := s.deletePoints(ctx, prev.Collection, filename); err != nil {
			return s.fail(ctx, doc, fmt.Errorf("remove previous version: %w", err))
		}
		s.markSuperseded(ctx, &prev)
	}

	n, err := s.index.Upsert(ctx, doc.Collection, chunks)
	if err != nil {
		cleanupCtx := context.WithoutCancel(ctx)
		if cleanupErr := s.deletePoints(cleanupCtx, doc.Collection, filename); cleanupErr != nil {
			logger.Warn("cleanup after failed upsert of %s: %v", filename, cleanupErr)
		}
		return s.fail(ctx, doc, err)
	}

	for _, prev := range previous {
		s.removeRecord(ctx, &prev)
	}

	if err := s.docStore.UpdateStatus(ctx, doc.ID, domain.DocumentStatusCompleted, n, ""); err != nil {
		return nil, fmt.Errorf("complete %s: %w", filename, err)
	}
	s.metrics.RecordIngest(string(domain.DocumentStatusCompleted), n)
	logger.Info("Indexed %s: %d chunks", filename, n)

	return &domain.IngestResult{
		Success:  true,
		Message:  fmt.Sprintf("Indexed %d chunks from %s", n, filename),
		Document: s.reload(ctx, doc, domain.DocumentStatusCompleted, n, ""),
	}, nil
}

// chunk extracts pages and splits them. A document with no text fails.
func (s *DocumentService) chunk(ctx context.Context, doc *domain.Document, content []byte) ([]domain.Chunk, error) {
	pages, err := s.extractors.Extract(ctx, doc.MIMEType, content)
	if err != nil {
		return nil, err
	}
	logger.Debug("extracted %d pages from %s", len(pages), doc.Filename)

	if s.pageOverlap {
		pages, err = chunker.PageOverlap(pages, s.pageOverlapFraction)
		if err != nil {
			return nil, err
		}
	}

	chunks := s.chunker.ChunkPages(pages, doc.Filename, doc.Category)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%s has no text: %w", doc.Filename, domain.ErrExtractionFailed)
	}
	return chunks, nil
}

// previousVersions returns the owner's other records for the same filename.
func (s *DocumentService) previousVersions(ctx context.Context, doc *domain.Document) ([]domain.Document, error) {
	docs, err := s.docStore.FindByFilename(ctx, doc.OwnerID, doc.Filename)
	if err != nil {
		return nil, err
	}
	previous := make([]domain.Document, 0, len(docs))
	for _, d := range docs {
		if d.ID != doc.ID {
			previous = append(previous, d)
		}
	}
	return previous, nil
}

// claimPublicName rejects a public upload whose filename is already shared
// by another owner. Public points are keyed by filename alone, so two owners
// sharing one name would delete each other's points.
func (s *DocumentService) claimPublicName(ctx context.Context, owner, filename string) error {
	docs, err := s.docStore.FindInCollection(ctx, PublicCollection, filename)
	if err != nil {
		return fmt.Errorf("check public %s: %w", filename, err)
	}
	for _, d := range docs {
		if d.OwnerID != owner {
			return fmt.Errorf("public document %s belongs to another owner: %w", filename, domain.ErrInvalidInput)
		}
	}
	return nil
}

// markSuperseded records that a previous version lost its points.
// The write survives cancellation of the request.
func (s *DocumentService) markSuperseded(ctx context.Context, prev *domain.Document) {
	err := s.docStore.UpdateStatus(context.WithoutCancel(ctx), prev.ID,
		domain.DocumentStatusFailed, 0, supersededReason)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		logger.Warn("mark superseded document %s: %v", prev.ID, err)
	}
}

// fail marks the document failed and reports the reason in the result.
// The stored file is kept so the upload can be inspected. The status is
// written even when ctx has been cancelled.
func (s *DocumentService) fail(ctx context.Context, doc *domain.Document, cause error) (*domain.IngestResult, error) {
	ctx = context.WithoutCancel(ctx)
	reason := cause.Error()
	logger.Warn("ingest %s failed: %v", doc.Filename, cause)
	s.metrics.RecordIngest(string(domain.DocumentStatusFailed), 0)

	if err := s.docStore.UpdateStatus(ctx, doc.ID, domain.DocumentStatusFailed, 0, reason); err != nil {
		return nil, fmt.Errorf("record failure of %s: %w", doc.Filename, errors.Join(cause, err))
	}
	return &domain.IngestResult{
		Success:  false,
		Message:  fmt.Sprintf("Failed to ingest %s: %s", doc.Filename, reason),
		Document: s.reload(ctx, doc, domain.DocumentStatusFailed, 0, reason),
	}, nil
}

// reload returns the persisted record, falling back to the in-memory copy.
func (s *DocumentService) reload(
	ctx context.Context, doc *domain.Document, status domain.DocumentStatus, chunks int, reason string,
) *domain.Document {
	if stored, err := s.docStore.GetDocument(ctx, doc.ID); err == nil {
		return stored
	}
	doc.Status = status
	doc.ChunkCount = chunks
	doc.Error = reason
	return doc
}

// List returns the owner's documents, newest first.
func (s *DocumentService) List(ctx context.Context, ownerID, category string) ([]domain.Document, error) {
	return s.docStore.ListDocuments(ctx, normaliseOwner(ownerID), category)
}

// Get retrieves one of the owner's documents.
func (s *DocumentService) Get(ctx context.Context, ownerID, documentID string) (*domain.Document, error) {
	doc, err := s.docStore.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.OwnerID != normaliseOwner(ownerID) {
		return nil, fmt.Errorf("document %s: %w", documentID, domain.ErrNotFound)
	}
	return doc, nil
}

// Delete removes a document's points, stored file and record.
func (s *DocumentService) Delete(ctx context.Context, ownerID, documentID string) error {
	doc, err := s.Get(ctx, ownerID, documentID)
	if err != nil {
		return err
	}

	unlock := s.locks.Lock(doc.Filename)
	defer unlock()
	return s.remove(ctx, doc)
}

// DeleteByFilename removes every document of the owner with this display name.
func (s *DocumentService) DeleteByFilename(ctx context.Context, ownerID, filename string) error {
	owner := normaliseOwner(ownerID)
	filename = displayName(filename)

	unlock := s.locks.Lock(filename)
	defer unlock()

	docs, err := s.docStore.FindByFilename(ctx, owner, filename)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return fmt.Errorf("document %s: %w", filename, domain.ErrNotFound)
	}
	for i := range docs {
		if err := s.remove(ctx, &docs[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *DocumentService) remove(ctx context.Context, doc *domain.Document) error {
	if err := s.deletePoints(ctx, doc.Collection, doc.Filename); err != nil {
		return fmt.Errorf("delete points of %s: %w", doc.Filename, err)
	}
	if err := s.fileStore.Delete(ctx, doc.StoredName); err != nil {
		return fmt.Errorf("delete file of %s: %w", doc.Filename, err)
	}
	return s.docStore.DeleteDocument(ctx, doc.ID)
}

// removeRecord drops a superseded document's file and record.
// Its points are already gone; failures only leave an orphaned row.
func (s *DocumentService) removeRecord(ctx context.Context, doc *domain.Document) {
	if err := s.fileStore.Delete(ctx, doc.StoredName); err != nil {
		logger.Warn("delete superseded file %s: %v", doc.StoredName, err)
	}
	if err := s.docStore.DeleteDocument(ctx, doc.ID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		logger.Warn("delete superseded document %s: %v", doc.ID, err)
	}
}

// deletePoints removes a filename's points. A collection that was never
// created has nothing to remove.
func (s *DocumentService) deletePoints(ctx context.Context, collection, filename string) error {
	err := s.index.DeleteByField(ctx, collection, domain.MetaFilename, filename)
	if errors.Is(err, domain.ErrCollectionNotFound) {
		return nil
	}
	return err
}

// displayName strips any directory from a caller-supplied name.
func displayName(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	if name == "" {
		return ""
	}
	base := filepath.Base(name)
	if base == "." || base == "/" {
		return ""
	}
	return base
}

// mimeTypeFor prefers the declared type and falls back to the extension.
func mimeTypeFor(declared, filename string) string {
	if declared = strings.TrimSpace(declared); declared != "" {
		if t, _, err := mime.ParseMediaType(declared); err == nil {
			return t
		}
		return strings.ToLower(declared)
	}
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); t != "" {
		if base, _, err := mime.ParseMediaType(t); err == nil {
			return base
		}
	}
	return "application/octet-stream"
}
