package driven

import (
	"context"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
)

// VectorBackend stores named collections of embedded points.
// It works on vectors only; embedding text is the caller's job.
//
// Implementations must be safe for concurrent use.
type VectorBackend interface {
	// EnsureCollection creates the collection if it does not exist.
	// It returns domain.ErrDimensionMismatch if the collection exists with a different size.
	EnsureCollection(ctx context.Context, name string, dim int, metric domain.Metric) error

	// CollectionExists reports whether the collection has been created.
	CollectionExists(ctx context.Context, name string) (bool, error)

	// Upsert writes all points in one bulk operation.
	// A nil error means every point was stored.
	Upsert(ctx context.Context, collection string, points []domain.IndexedPoint) error

	// Search returns up to topK points nearest to vector whose metadata matches filter,
	// ordered by descending score.
	// It returns domain.ErrCollectionNotFound for a collection that was never created.
	Search(ctx context.Context, collection string, vector []float32, topK int, filter domain.Filter) ([]domain.SearchHit, error)

	// DeleteByField removes every point whose metadata[field] equals value.
	// It returns domain.ErrCollectionNotFound for a collection that was never created.
	DeleteByField(ctx context.Context, collection, field string, value any) error

	// Name identifies the backend in logs and status output.
	Name() string

	// Ping checks the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
