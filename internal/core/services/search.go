package services

import (
	"context"
	"strings"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driving"
	"github.com/custodia-labs/ragdesk/internal/logger"
	"github.com/custodia-labs/ragdesk/internal/metrics"
)

// Ensure SearchService implements the interface.
var _ driving.SearchService = (*SearchService)(nil)

// SearchService provides retrieval over an owner's collections.
type SearchService struct {
	index    *VectorIndex
	metrics  *metrics.Metrics
	defaults domain.RetrievalSettings
}

// NewSearchService creates a new search service.
// Options with a zero TopK or MaxContextChars take the value from defaults.
func NewSearchService(index *VectorIndex, defaults domain.RetrievalSettings, m *metrics.Metrics) *SearchService {
	if defaults.TopK <= 0 {
		defaults.TopK = domain.DefaultTopK
	}
	if defaults.MaxContextChars <= 0 {
		defaults.MaxContextChars = domain.DefaultMaxContextChars
	}
	return &SearchService{index: index, metrics: m, defaults: defaults}
}

// Search returns ranked hits. Unlike Retrieve it reports backend failures.
func (s *SearchService) Search(
	ctx context.Context, ownerID, query string, opts domain.RetrievalOptions,
) ([]domain.SearchHit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		logger.Debug("Empty query, returning no results")
		return []domain.SearchHit{}, nil
	}
	opts = s.withDefaults(opts)
	r := s.retriever(ownerID, opts.IncludePublic)
	return r.search(ctx, query, opts.TopK, opts.Filter)
}

// Retrieve searches and assembles context. It never fails.
func (s *SearchService) Retrieve(
	ctx context.Context, ownerID, query string, opts domain.RetrievalOptions,
) domain.RetrievalOutcome {
	opts = s.withDefaults(opts)
	r := s.retriever(ownerID, opts.IncludePublic)

	query = strings.TrimSpace(query)
	if query == "" {
		return r.finish(noContext(domain.RetrievalEmpty, nil))
	}
	return r.RetrieveAndAssemble(ctx, query, opts.TopK, opts.Filter, opts.MaxContextChars)
}

func (s *SearchService) retriever(ownerID string, includePublic bool) *Retriever {
	return NewRetriever(s.index, s.metrics, CollectionsFor(ownerID, includePublic)...)
}

func (s *SearchService) withDefaults(opts domain.RetrievalOptions) domain.RetrievalOptions {
	if opts.TopK <= 0 {
		opts.TopK = s.defaults.TopK
	}
	if opts.MaxContextChars <= 0 {
		opts.MaxContextChars = s.defaults.MaxContextChars
	}
	return opts
}
