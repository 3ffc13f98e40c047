package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
)

// documentStore implements driven.DocumentStore.
type documentStore struct {
	store *Store
}

var _ driven.DocumentStore = (*documentStore)(nil)

const documentColumns = `id, owner_id, filename, stored_name, mime_type, category, collection,
	size, status, chunk_count, error, created_at, updated_at`

// SaveDocument stores or updates a document.
func (s *documentStore) SaveDocument(ctx context.Context, doc *domain.Document) error {
	if doc == nil || doc.ID == "" {
		return domain.ErrInvalidInput
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO documents (`+documentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			owner_id = excluded.owner_id,
			filename = excluded.filename,
			stored_name = excluded.stored_name,
			mime_type = excluded.mime_type,
			category = excluded.category,
			collection = excluded.collection,
			size = excluded.size,
			status = excluded.status,
			chunk_count = excluded.chunk_count,
			error = excluded.error,
			updated_at = excluded.updated_at
	`, doc.ID, doc.OwnerID, doc.Filename, doc.StoredName, doc.MIMEType, doc.Category, doc.Collection,
		doc.Size, string(doc.Status), doc.ChunkCount, doc.Error, doc.CreatedAt.UTC(), doc.UpdatedAt.UTC())
	if err != nil {
		return persistErr("saving document", err)
	}
	return nil
}

// GetDocument retrieves a document by ID.
func (s *documentStore) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = ?`, id)

	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return doc, err
}

// FindByFilename returns the owner's documents with the given display name.
func (s *documentStore) FindByFilename(ctx context.Context, ownerID, filename string) ([]domain.Document, error) {
	return s.query(ctx, `SELECT `+documentColumns+` FROM documents
		WHERE owner_id = ? AND filename = ?
		ORDER BY created_at DESC, id`, ownerID, filename)
}

// FindInCollection returns every owner's documents with the given display
// name in one collection.
func (s *documentStore) FindInCollection(ctx context.Context, collection, filename string) ([]domain.Document, error) {
	return s.query(ctx, `SELECT `+documentColumns+` FROM documents
		WHERE collection = ? AND filename = ?
		ORDER BY created_at DESC, id`, collection, filename)
}

// ListDocuments returns the owner's documents, newest first.
func (s *documentStore) ListDocuments(ctx context.Context, ownerID, category string) ([]domain.Document, error) {
	if category == "" {
		return s.query(ctx, `SELECT `+documentColumns+` FROM documents
			WHERE owner_id = ?
			ORDER BY created_at DESC, id`, ownerID)
	}
	return s.query(ctx, `SELECT `+documentColumns+` FROM documents
		WHERE owner_id = ? AND category = ?
		ORDER BY created_at DESC, id`, ownerID, category)
}

// UpdateStatus sets status, chunk count, and failure reason in one write.
func (s *documentStore) UpdateStatus(
	ctx context.Context, id string, status domain.DocumentStatus, chunkCount int, reason string,
) error {
	if !status.IsValid() {
		return fmt.Errorf("status %q: %w", status, domain.ErrInvalidInput)
	}

	res, err := s.store.db.ExecContext(ctx, `
		UPDATE documents SET status = ?, chunk_count = ?, error = ?, updated_at = ?
		WHERE id = ?
	`, string(status), chunkCount, reason, time.Now().UTC(), id)
	if err != nil {
		return persistErr("updating document status", err)
	}
	return requireRow(res)
}

// DeleteDocument removes a document record.
func (s *documentStore) DeleteDocument(ctx context.Context, id string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return persistErr("deleting document", err)
	}
	return nil
}

func (s *documentStore) query(ctx context.Context, q string, args ...any) ([]domain.Document, error) {
	rows, err := s.store.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	docs := []domain.Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	return docs, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*domain.Document, error) {
	var doc domain.Document
	var status string

	if err := row.Scan(&doc.ID, &doc.OwnerID, &doc.Filename, &doc.StoredName, &doc.MIMEType,
		&doc.Category, &doc.Collection, &doc.Size, &status, &doc.ChunkCount, &doc.Error,
		&doc.CreatedAt, &doc.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}
	doc.Status = domain.DocumentStatus(status)
	return &doc, nil
}

// requireRow maps an update that touched nothing to ErrNotFound.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
