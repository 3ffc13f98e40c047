// Package memory provides an in-process vector backend using exact cosine search.
// It is the default backend and the fallback when a remote backend is unreachable.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.VectorBackend = (*Store)(nil)

type collection struct {
	dim    int
	metric domain.Metric
	order  []string
	points map[string]domain.IndexedPoint
}

// Store is an in-memory implementation of driven.VectorBackend.
type Store struct {
	mu          sync.RWMutex
	collections map[string]*collection
}

// New creates an empty in-memory vector store.
func New() *Store {
	return &Store{collections: make(map[string]*collection)}
}

// Name returns the backend name.
func (s *Store) Name() string { return "memory" }

// Ping always succeeds.
func (s *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() error { return nil }

// EnsureCollection creates the collection if it does not exist.
func (s *Store) EnsureCollection(_ context.Context, name string, dim int, metric domain.Metric) error {
	if name == "" || dim <= 0 {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.collections[name]; ok {
		if c.dim != dim {
			return fmt.Errorf("collection %s has %d dimensions, want %d: %w", name, c.dim, dim, domain.ErrDimensionMismatch)
		}
		return nil
	}
	s.collections[name] = &collection{
		dim:    dim,
		metric: metric,
		points: make(map[string]domain.IndexedPoint),
	}
	return nil
}

// CollectionExists reports whether the collection has been created.
func (s *Store) CollectionExists(_ context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.collections[name]
	return ok, nil
}

// Upsert stores all points or none of them.
func (s *Store) Upsert(_ context.Context, name string, points []domain.IndexedPoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[name]
	if !ok {
		return fmt.Errorf("%s: %w", name, domain.ErrCollectionNotFound)
	}
	for _, p := range points {
		if p.ID == "" {
			return fmt.Errorf("point without id: %w", domain.ErrInvalidInput)
		}
		if len(p.Vector) != c.dim {
			return fmt.Errorf("point %s has %d dimensions, want %d: %w", p.ID, len(p.Vector), c.dim, domain.ErrDimensionMismatch)
		}
	}
	for _, p := range points {
		if _, exists := c.points[p.ID]; !exists {
			c.order = append(c.order, p.ID)
		}
		c.points[p.ID] = clonePoint(p)
	}
	return nil
}

// Search returns the topK most similar matching points.
func (s *Store) Search(
	_ context.Context, name string, vector []float32, topK int, filter domain.Filter,
) ([]domain.SearchHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, domain.ErrCollectionNotFound)
	}
	if len(vector) != c.dim {
		return nil, fmt.Errorf("query has %d dimensions, want %d: %w", len(vector), c.dim, domain.ErrDimensionMismatch)
	}
	if topK <= 0 {
		return []domain.SearchHit{}, nil
	}

	hits := make([]domain.SearchHit, 0, len(c.points))
	for _, id := range c.order {
		p := c.points[id]
		if !filter.Matches(p.Metadata) {
			continue
		}
		hits = append(hits, domain.SearchHit{
			Text:     p.Text,
			Score:    Cosine(vector, p.Vector),
			Metadata: cloneMetadata(p.Metadata),
		})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

// DeleteByField removes every point whose metadata[field] equals value.
func (s *Store) DeleteByField(_ context.Context, name, field string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[name]
	if !ok {
		return fmt.Errorf("%s: %w", name, domain.ErrCollectionNotFound)
	}
	match := domain.Filter{field: value}
	kept := c.order[:0]
	for _, id := range c.order {
		if match.Matches(c.points[id].Metadata) {
			delete(c.points, id)
			continue
		}
		kept = append(kept, id)
	}
	c.order = kept
	return nil
}

// Count returns the number of points in a collection.
func (s *Store) Count(name string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.collections[name]; ok {
		return len(c.points)
	}
	return 0
}

// Cosine returns the cosine similarity of a and b.
// A zero vector has similarity 0 with everything.
func Cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func clonePoint(p domain.IndexedPoint) domain.IndexedPoint {
	vec := make([]float32, len(p.Vector))
	copy(vec, p.Vector)
	p.Vector = vec
	p.Metadata = cloneMetadata(p.Metadata)
	return p
}

func cloneMetadata(src map[string]any) map[string]any {
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
