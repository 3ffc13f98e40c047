package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/logger"
	"github.com/custodia-labs/ragdesk/internal/metrics"
)

// Collection naming.
const (
	// PublicCollection holds documents shared with every owner.
	PublicCollection = "public"

	// DefaultOwner is used when a caller does not identify itself.
	DefaultOwner = "local"

	userCollectionPrefix = "user_"
	blockSeparator       = "\n\n"
)

// CollectionFor returns the collection a document of owner is stored in.
func CollectionFor(ownerID string, public bool) string {
	if public {
		return PublicCollection
	}
	return userCollectionPrefix + normaliseOwner(ownerID)
}

// CollectionsFor returns the collections a question from owner searches.
func CollectionsFor(ownerID string, includePublic bool) []string {
	collections := []string{CollectionFor(ownerID, false)}
	if includePublic {
		collections = append(collections, PublicCollection)
	}
	return collections
}

func normaliseOwner(ownerID string) string {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return DefaultOwner
	}
	return ownerID
}

// Retriever searches a fixed set of collections and assembles the hits into
// a bounded context string.
type Retriever struct {
	index       *VectorIndex
	collections []string
	metrics     *metrics.Metrics
}

// NewRetriever creates a retriever over collections.
func NewRetriever(index *VectorIndex, m *metrics.Metrics, collections ...string) *Retriever {
	return &Retriever{index: index, collections: collections, metrics: m}
}

// RetrieveAndAssemble searches and builds the context. It never fails:
// empty results and backend errors both produce the no-context sentinel,
// distinguished by the outcome status.
func (r *Retriever) RetrieveAndAssemble(
	ctx context.Context, query string, topK int, filter domain.Filter, maxChars int,
) domain.RetrievalOutcome {
	logger.Section("Retrieval")
	logger.Debug("Query: %q, top_k=%d, collections=%v", query, topK, r.collections)

	hits, err := r.search(ctx, query, topK, filter)
	if err != nil && len(hits) == 0 {
		logger.Warn("retrieval degraded: %v", err)
		return r.finish(noContext(domain.RetrievalDegraded, err))
	}
	if err != nil {
		logger.Warn("retrieval skipped a collection: %v", err)
	}
	if len(hits) == 0 {
		return r.finish(noContext(domain.RetrievalEmpty, nil))
	}

	text, used := AssembleContext(hits, maxChars)
	if len(used) == 0 {
		logger.Debug("no hit fits in %d characters", maxChars)
		return r.finish(noContext(domain.RetrievalEmpty, err))
	}
	logger.Debug("assembled %d of %d hits, %d characters", len(used), len(hits), utf8.RuneCountInString(text))
	return r.finish(domain.RetrievalOutcome{Context: text, Hits: used, Status: domain.RetrievalOK, Err: err})
}

// search queries every collection and merges the hits by score. A failing
// collection does not discard the others; its error is returned alongside
// whatever hits the rest produced.
func (r *Retriever) search(ctx context.Context, query string, topK int, filter domain.Filter) ([]domain.SearchHit, error) {
	var (
		merged []domain.SearchHit
		errs   []error
	)
	for _, c := range r.collections {
		hits, err := r.index.Search(ctx, c, query, topK, filter)
		if err != nil {
			errs = append(errs, fmt.Errorf("search %s: %w", c, err))
			continue
		}
		merged = append(merged, hits...)
	}
	if len(r.collections) > 1 {
		sort.SliceStable(merged, func(i, j int) bool { return merged[i].Score > merged[j].Score })
	}
	if len(merged) > topK {
		merged = merged[:topK]
	}
	return merged, errors.Join(errs...)
}

func (r *Retriever) finish(out domain.RetrievalOutcome) domain.RetrievalOutcome {
	r.metrics.RecordRetrieval(string(out.Status))
	return out
}

func noContext(status domain.RetrievalStatus, err error) domain.RetrievalOutcome {
	return domain.RetrievalOutcome{
		Context: domain.NoContextSentinel,
		Hits:    []domain.SearchHit{},
		Status:  status,
		Err:     err,
	}
}

// AssembleContext formats hits as numbered blocks with source headers, in
// order, until the next block would push the length past maxChars. Length is
// counted in runes. It returns the context and the hits that made it in.
func AssembleContext(hits []domain.SearchHit, maxChars int) (string, []domain.SearchHit) {
	var sb strings.Builder
	used := []domain.SearchHit{}
	length := 0

	for i, h := range hits {
		block := formatBlock(i+1, h)
		add := utf8.RuneCountInString(block)
		if len(used) > 0 {
			add += len(blockSeparator)
		}
		if length+add > maxChars {
			break
		}
		if len(used) > 0 {
			sb.WriteString(blockSeparator)
		}
		sb.WriteString(block)
		length += add
		used = append(used, h)
	}
	return sb.String(), used
}

func formatBlock(n int, h domain.SearchHit) string {
	filename, ok := h.Filename()
	if !ok {
		filename = "unknown"
	}
	page := "?"
	if p, ok := h.Page(); ok {
		page = fmt.Sprint(p)
	}
	return fmt.Sprintf("[Data %d] [Source: %s, page %s]\n%s", n, filename, page, h.Text)
}
