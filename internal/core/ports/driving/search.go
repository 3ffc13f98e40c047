package driving

import (
	"context"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
)

// SearchService provides retrieval to external actors.
type SearchService interface {
	// Search returns ranked hits from the owner's collection (and the shared one when asked).
	Search(ctx context.Context, ownerID, query string, opts domain.RetrievalOptions) ([]domain.SearchHit, error)

	// Retrieve searches and assembles a bounded context string.
	// It never fails; problems surface as a degraded outcome.
	Retrieve(ctx context.Context, ownerID, query string, opts domain.RetrievalOptions) domain.RetrievalOutcome
}
