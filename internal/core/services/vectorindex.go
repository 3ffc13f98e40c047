package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
	"github.com/custodia-labs/ragdesk/internal/logger"
)

// VectorIndex pairs an embedder with a vector backend so callers work in
// text and chunks rather than vectors.
type VectorIndex struct {
	backend  driven.VectorBackend
	embedder driven.EmbeddingService
}

// NewVectorIndex creates a vector index over backend using embedder.
func NewVectorIndex(backend driven.VectorBackend, embedder driven.EmbeddingService) *VectorIndex {
	return &VectorIndex{backend: backend, embedder: embedder}
}

// Backend returns the underlying vector backend.
func (v *VectorIndex) Backend() driven.VectorBackend {
	return v.backend
}

// EnsureCollection creates the collection with dim dimensions if missing.
func (v *VectorIndex) EnsureCollection(ctx context.Context, name string, dim int) error {
	if name == "" {
		return fmt.Errorf("collection name is empty: %w", domain.ErrInvalidInput)
	}
	if dim <= 0 {
		return fmt.Errorf("collection %s: dimension %d: %w", name, dim, domain.ErrInvalidInput)
	}
	return v.backend.EnsureCollection(ctx, name, dim, domain.MetricCosine)
}

// Upsert embeds chunks in one batch and writes them in one bulk call.
// It returns the number of points written, which is either len(chunks) or 0.
func (v *VectorIndex) Upsert(ctx context.Context, collection string, chunks []domain.Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := v.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed chunks: %w", wrapEmbedding(err))
	}
	if len(vectors) != len(chunks) {
		return 0, fmt.Errorf("embed chunks: got %d vectors for %d texts: %w",
			len(vectors), len(chunks), domain.ErrEmbeddingUnavailable)
	}

	dim := v.embedder.Dimensions()
	if err := v.EnsureCollection(ctx, collection, dim); err != nil {
		return 0, err
	}

	points := make([]domain.IndexedPoint, len(chunks))
	for i, c := range chunks {
		if len(vectors[i]) != dim {
			return 0, fmt.Errorf("chunk %d: vector has %d dimensions, want %d: %w",
				i, len(vectors[i]), dim, domain.ErrDimensionMismatch)
		}
		points[i] = domain.IndexedPoint{
			ID:       uuid.NewString(),
			Vector:   vectors[i],
			Text:     c.Text,
			Metadata: c.Metadata.AsMap(),
		}
	}

	if err := v.backend.Upsert(ctx, collection, points); err != nil {
		return 0, fmt.Errorf("upsert %d points into %s: %w", len(points), collection, err)
	}
	logger.Debug("upserted %d points into %s", len(points), collection)
	return len(points), nil
}

// Search embeds query and returns at most topK hits in descending score order.
// A collection that does not exist yet is created and yields no hits.
func (v *VectorIndex) Search(
	ctx context.Context, collection, query string, topK int, filter domain.Filter,
) ([]domain.SearchHit, error) {
	if topK <= 0 {
		return []domain.SearchHit{}, nil
	}

	exists, err := v.backend.CollectionExists(ctx, collection)
	if err != nil {
		return nil, err
	}
	if !exists {
		return []domain.SearchHit{}, v.createEmpty(ctx, collection)
	}

	vector, err := v.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", wrapEmbedding(err))
	}

	hits, err := v.backend.Search(ctx, collection, vector, topK, filter)
	if errors.Is(err, domain.ErrCollectionNotFound) {
		return []domain.SearchHit{}, v.createEmpty(ctx, collection)
	}
	if err != nil {
		return nil, err
	}
	if len(hits) > topK {
		hits = hits[:topK]
	}
	if hits == nil {
		hits = []domain.SearchHit{}
	}
	return hits, nil
}

// DeleteByField removes every point in collection whose metadata[field] equals value.
func (v *VectorIndex) DeleteByField(ctx context.Context, collection, field string, value any) error {
	return v.backend.DeleteByField(ctx, collection, field, value)
}

func (v *VectorIndex) createEmpty(ctx context.Context, collection string) error {
	logger.Debug("collection %s not found, creating it", collection)
	return v.EnsureCollection(ctx, collection, v.embedder.Dimensions())
}

// wrapEmbedding tags embedder failures that do not already carry a sentinel.
func wrapEmbedding(err error) error {
	if errors.Is(err, domain.ErrEmbeddingUnavailable) || errors.Is(err, domain.ErrRateLimited) ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
}
