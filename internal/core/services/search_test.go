package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
)

func TestSearchService_EmptyQuery(t *testing.T) {
	env := newTestEnv(t)

	hits, err := env.search.Search(context.Background(), "alice", "   ", domain.RetrievalOptions{})

	require.NoError(t, err)
	assert.NotNil(t, hits)
	assert.Empty(t, hits)
}

func TestSearchService_ScopedToOwner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.ingestText(t, "alice", "alice.txt", "", "the launch code is in the blue folder", false)
	env.ingestText(t, "bob", "bob.txt", "", "the launch code is in the red folder", false)

	hits, err := env.search.Search(ctx, "alice", "launch code folder", domain.RetrievalOptions{TopK: 10})

	require.NoError(t, err)
	require.NotEmpty(t, hits)
	for _, h := range hits {
		name, _ := h.Filename()
		assert.Equal(t, "alice.txt", name)
	}
}

func TestSearchService_IncludePublic(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.ingestText(t, "alice", "private.txt", "", "office opening hours are nine to five", false)
	env.ingestText(t, "admin", "handbook.txt", "", "office opening hours change in summer", true)

	without, err := env.search.Search(ctx, "alice", "office opening hours", domain.RetrievalOptions{TopK: 10})
	require.NoError(t, err)
	with, err := env.search.Search(ctx, "alice", "office opening hours",
		domain.RetrievalOptions{TopK: 10, IncludePublic: true})
	require.NoError(t, err)

	assert.Len(t, without, 1)
	assert.Len(t, with, 2)
}

func TestSearchService_CategoryFilter(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.ingestText(t, "", "q1.txt", "finance", "budget review for the first quarter", false)
	env.ingestText(t, "", "trip.txt", "travel", "budget airline options for the trip", false)

	hits, err := env.search.Search(ctx, "", "budget",
		domain.RetrievalOptions{TopK: 10, Filter: domain.Filter{domain.MetaCategory: "travel"}})

	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "travel", hits[0].Metadata[domain.MetaCategory])
}

func TestSearchService_SearchReportsBackendErrors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.backend.EnsureCollection(ctx, "user_local", testDimensions, domain.MetricCosine))
	failing := &failingBackend{VectorBackend: env.backend, searchErr: domain.ErrVectorIndexUnavailable}
	search := NewSearchService(NewVectorIndex(failing, env.embedder), domain.RetrievalSettings{}, nil)

	_, err := search.Search(ctx, "", "q", domain.RetrievalOptions{})
	assert.ErrorIs(t, err, domain.ErrVectorIndexUnavailable)

	out := search.Retrieve(ctx, "", "q", domain.RetrievalOptions{})
	assert.Equal(t, domain.RetrievalDegraded, out.Status)
	assert.Equal(t, domain.NoContextSentinel, out.Context)
}

func TestSearchService_RetrieveTopKFiveOnEmptyCollection(t *testing.T) {
	env := newTestEnv(t)

	out := env.search.Retrieve(context.Background(), "newcomer", "what is in my files?",
		domain.RetrievalOptions{TopK: 5})

	assert.Equal(t, domain.RetrievalEmpty, out.Status)
	assert.Equal(t, "(no relevant data found)", out.Context)
	assert.Equal(t, []domain.SearchHit{}, out.Hits)
}

func TestSearchService_RetrieveUsesDefaults(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	text := ""
	for i := 0; i < 30; i++ {
		text += "river delta sediment layers accumulate slowly over centuries. "
	}
	env.ingestText(t, "", "geo.txt", "", text, false)

	search := NewSearchService(env.index, domain.RetrievalSettings{TopK: 2, MaxContextChars: 100000}, nil)
	out := search.Retrieve(ctx, "", "river delta sediment", domain.RetrievalOptions{})

	assert.Equal(t, domain.RetrievalOK, out.Status)
	assert.Len(t, out.Hits, 2)
}

func TestSearchService_RetrieveEmptyQuery(t *testing.T) {
	env := newTestEnv(t)

	out := env.search.Retrieve(context.Background(), "", " ", domain.RetrievalOptions{})

	assert.Equal(t, domain.RetrievalEmpty, out.Status)
	assert.Equal(t, domain.NoContextSentinel, out.Context)
}
