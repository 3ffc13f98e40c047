package domain

// NoContextSentinel is the context given to the model when nothing was retrieved.
const NoContextSentinel = "(no relevant data found)"

// RetrievalStatus distinguishes why a retrieval produced what it did.
type RetrievalStatus string

// Retrieval outcomes.
const (
	// RetrievalOK means at least one hit was assembled into the context.
	RetrievalOK RetrievalStatus = "ok"

	// RetrievalEmpty means the search ran but found nothing.
	RetrievalEmpty RetrievalStatus = "empty"

	// RetrievalDegraded means embedding or search failed.
	RetrievalDegraded RetrievalStatus = "degraded"
)

// RetrievalOutcome is the result of retrieving and assembling context.
// Empty and degraded outcomes both carry the sentinel context and no hits.
type RetrievalOutcome struct {
	Context string
	Hits    []SearchHit
	Status  RetrievalStatus

	// Err is the underlying failure for degraded outcomes. An ok outcome
	// may also carry one when some collections failed and others answered.
	Err error
}

// RetrievalOptions narrows a retrieval.
type RetrievalOptions struct {
	// TopK is the maximum number of hits.
	TopK int

	// Filter restricts hits by metadata equality.
	Filter Filter

	// MaxContextChars bounds the assembled context length.
	MaxContextChars int

	// IncludePublic also searches the shared collection.
	IncludePublic bool
}

// Source is a user-facing attribution entry.
// Filename and Page are nil when the hit's metadata lacks them.
type Source struct {
	Filename *string `json:"filename"`
	Page     *int    `json:"page"`
	Score    float64 `json:"score"`
}

// SourcesFromHits builds attribution entries in rank order. The result is never nil.
func SourcesFromHits(hits []SearchHit) []Source {
	sources := make([]Source, 0, len(hits))
	for _, h := range hits {
		src := Source{Score: h.Score}
		if name, ok := h.Filename(); ok {
			src.Filename = &name
		}
		if page, ok := h.Page(); ok {
			src.Page = &page
		}
		sources = append(sources, src)
	}
	return sources
}

// Answer is the result of one conversation turn.
type Answer struct {
	SessionID string
	State     SessionState
	Title     string
	Answer    string
	Sources   []Source
}
