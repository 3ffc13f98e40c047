package services

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragdesk/internal/adapters/driven/embedding/hash"
	vecmemory "github.com/custodia-labs/ragdesk/internal/adapters/driven/vectorstore/memory"
	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/metrics"
)

func hit(text, filename string, page int, score float64) domain.SearchHit {
	return domain.SearchHit{
		Text:     text,
		Score:    score,
		Metadata: map[string]any{domain.MetaFilename: filename, domain.MetaPage: page},
	}
}

func TestCollectionFor(t *testing.T) {
	assert.Equal(t, "user_alice", CollectionFor("alice", false))
	assert.Equal(t, "public", CollectionFor("alice", true))
	assert.Equal(t, "user_local", CollectionFor("", false))
	assert.Equal(t, "user_local", CollectionFor("  ", false))
}

func TestCollectionsFor(t *testing.T) {
	assert.Equal(t, []string{"user_bob"}, CollectionsFor("bob", false))
	assert.Equal(t, []string{"user_bob", "public"}, CollectionsFor("bob", true))
}

func TestAssembleContext_Format(t *testing.T) {
	hits := []domain.SearchHit{
		hit("first passage", "a.pdf", 1, 0.9),
		hit("second passage", "b.md", 3, 0.8),
	}

	text, used := AssembleContext(hits, 1000)

	assert.Equal(t,
		"[Data 1] [Source: a.pdf, page 1]\nfirst passage\n\n[Data 2] [Source: b.md, page 3]\nsecond passage",
		text)
	assert.Len(t, used, 2)
}

func TestAssembleContext_MissingMetadata(t *testing.T) {
	text, _ := AssembleContext([]domain.SearchHit{{Text: "orphan"}}, 1000)

	assert.Equal(t, "[Data 1] [Source: unknown, page ?]\norphan", text)
}

func TestAssembleContext_DropsBlockThatOverflows(t *testing.T) {
	hits := []domain.SearchHit{
		hit("short", "a.txt", 1, 0.9),
		hit(strings.Repeat("x", 200), "b.txt", 1, 0.8),
		hit("tiny", "c.txt", 1, 0.7),
	}
	first := "[Data 1] [Source: a.txt, page 1]\nshort"

	text, used := AssembleContext(hits, utf8.RuneCountInString(first)+50)

	assert.Equal(t, first, text, "assembly stops at the first block that does not fit")
	require.Len(t, used, 1)
	assert.Equal(t, "short", used[0].Text)
}

func TestAssembleContext_NothingFits(t *testing.T) {
	text, used := AssembleContext([]domain.SearchHit{hit("some text", "a.txt", 1, 1)}, 10)

	assert.Empty(t, text)
	assert.NotNil(t, used)
	assert.Empty(t, used)
}

func TestAssembleContext_CountsRunes(t *testing.T) {
	block := "[Data 1] [Source: 報告.pdf, page 2]\n太陽能板的效率"
	hits := []domain.SearchHit{hit("太陽能板的效率", "報告.pdf", 2, 1)}

	text, used := AssembleContext(hits, utf8.RuneCountInString(block))

	assert.Equal(t, block, text)
	assert.Len(t, used, 1)
}

func TestAssembleContext_NeverExceedsBudget(t *testing.T) {
	var hits []domain.SearchHit
	for i := 0; i < 20; i++ {
		hits = append(hits, hit(strings.Repeat("word ", i+1), "f.txt", i+1, 1))
	}

	for budget := 0; budget <= 2000; budget += 37 {
		text, used := AssembleContext(hits, budget)
		assert.LessOrEqual(t, utf8.RuneCountInString(text), budget)
		for i, h := range used {
			assert.Equal(t, hits[i].Text, h.Text, "kept hits are a prefix in rank order")
		}
	}
}

func TestRetriever_EmptyCollection(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	index := NewVectorIndex(vecmemory.New(), hash.NewEmbeddingService(testDimensions))

	out := NewRetriever(index, m, "user_local").
		RetrieveAndAssemble(context.Background(), "anything at all", 5, nil, 4000)

	assert.Equal(t, domain.RetrievalEmpty, out.Status)
	assert.Equal(t, domain.NoContextSentinel, out.Context)
	assert.NotNil(t, out.Hits)
	assert.Empty(t, out.Hits)
	assert.NoError(t, out.Err)
	assert.InDelta(t, 1, testutil.ToFloat64(m.RetrievalTotal.WithLabelValues("empty")), 0)
}

func TestRetriever_Degraded(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	inner := vecmemory.New()
	require.NoError(t, inner.EnsureCollection(context.Background(), "user_local", testDimensions, domain.MetricCosine))
	backend := &failingBackend{VectorBackend: inner, searchErr: domain.ErrVectorIndexUnavailable}
	index := NewVectorIndex(backend, hash.NewEmbeddingService(testDimensions))

	out := NewRetriever(index, m, "user_local").
		RetrieveAndAssemble(context.Background(), "question", 5, nil, 4000)

	assert.Equal(t, domain.RetrievalDegraded, out.Status)
	assert.Equal(t, domain.NoContextSentinel, out.Context)
	assert.Empty(t, out.Hits)
	assert.ErrorIs(t, out.Err, domain.ErrVectorIndexUnavailable)
	assert.InDelta(t, 1, testutil.ToFloat64(m.RetrievalTotal.WithLabelValues("degraded")), 0)
}

func TestRetriever_DegradedOnEmbeddingFailure(t *testing.T) {
	inner := vecmemory.New()
	require.NoError(t, inner.EnsureCollection(context.Background(), "c", 4, domain.MetricCosine))
	index := NewVectorIndex(inner, &stubEmbedder{dims: 4, err: assert.AnError})

	out := NewRetriever(index, nil, "c").RetrieveAndAssemble(context.Background(), "q", 5, nil, 100)

	assert.Equal(t, domain.RetrievalDegraded, out.Status)
	assert.ErrorIs(t, out.Err, domain.ErrEmbeddingUnavailable)
}

func TestRetriever_AssemblesHits(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	index := NewVectorIndex(vecmemory.New(), hash.NewEmbeddingService(testDimensions))
	ctx := context.Background()
	_, err := index.Upsert(ctx, "user_local", chunksFor("energy.txt", "", 4,
		"solar panels convert sunlight into electricity",
		"wind turbines convert wind into electricity"))
	require.NoError(t, err)

	out := NewRetriever(index, m, "user_local").RetrieveAndAssemble(ctx, "solar panels", 5, nil, 4000)

	assert.Equal(t, domain.RetrievalOK, out.Status)
	require.Len(t, out.Hits, 2)
	assert.True(t, strings.HasPrefix(out.Context, "[Data 1] [Source: energy.txt, page 4]\n"))
	assert.Contains(t, out.Context, "[Data 2]")
	assert.InDelta(t, 1, testutil.ToFloat64(m.RetrievalTotal.WithLabelValues("ok")), 0)
}

func TestRetriever_BudgetTooSmallForAnyHit(t *testing.T) {
	index := NewVectorIndex(vecmemory.New(), hash.NewEmbeddingService(testDimensions))
	ctx := context.Background()
	_, err := index.Upsert(ctx, "c", chunksFor("a.txt", "", 1, "a passage long enough to overflow"))
	require.NoError(t, err)

	out := NewRetriever(index, nil, "c").RetrieveAndAssemble(ctx, "passage", 5, nil, 5)

	assert.Equal(t, domain.RetrievalEmpty, out.Status)
	assert.Equal(t, domain.NoContextSentinel, out.Context)
	assert.Empty(t, out.Hits)
}

func TestRetriever_MergesCollectionsByScore(t *testing.T) {
	index := NewVectorIndex(vecmemory.New(), hash.NewEmbeddingService(testDimensions))
	ctx := context.Background()
	_, err := index.Upsert(ctx, "user_alice", chunksFor("mine.txt", "", 1,
		"garden tomatoes need sun", "unrelated note about taxes"))
	require.NoError(t, err)
	_, err = index.Upsert(ctx, PublicCollection, chunksFor("shared.txt", "", 1,
		"garden tomatoes need sun and water", "parking rules"))
	require.NoError(t, err)

	r := NewRetriever(index, nil, CollectionsFor("alice", true)...)
	hits, err := r.search(ctx, "garden tomatoes", 3, nil)

	require.NoError(t, err)
	require.Len(t, hits, 3)
	for i := 1; i < len(hits); i++ {
		assert.GreaterOrEqual(t, hits[i-1].Score, hits[i].Score)
	}
	names := map[string]bool{}
	for _, h := range hits[:2] {
		name, _ := h.Filename()
		names[name] = true
	}
	assert.True(t, names["mine.txt"] && names["shared.txt"], "best hits come from both collections")
}

func TestRetriever_KeepsHitsWhenOneCollectionFails(t *testing.T) {
	backend := &failingBackend{
		VectorBackend: vecmemory.New(),
		searchErr:     domain.ErrVectorIndexUnavailable,
		searchIn:      PublicCollection,
	}
	index := NewVectorIndex(backend, hash.NewEmbeddingService(testDimensions))
	ctx := context.Background()
	_, err := index.Upsert(ctx, "user_alice", chunksFor("mine.txt", "", 1, "garden tomatoes need sun"))
	require.NoError(t, err)
	_, err = index.Upsert(ctx, PublicCollection, chunksFor("shared.txt", "", 1, "garden tomatoes need water"))
	require.NoError(t, err)

	out := NewRetriever(index, nil, CollectionsFor("alice", true)...).
		RetrieveAndAssemble(ctx, "garden tomatoes", 5, nil, 4000)

	assert.Equal(t, domain.RetrievalOK, out.Status)
	require.Len(t, out.Hits, 1)
	assert.Contains(t, out.Context, "mine.txt")
	assert.NotContains(t, out.Context, "shared.txt")
	assert.ErrorIs(t, out.Err, domain.ErrVectorIndexUnavailable)
}

func TestRetriever_DegradesWhenEveryCollectionFails(t *testing.T) {
	backend := &failingBackend{VectorBackend: vecmemory.New(), searchErr: domain.ErrVectorIndexUnavailable}
	index := NewVectorIndex(backend, hash.NewEmbeddingService(testDimensions))
	ctx := context.Background()
	_, err := index.Upsert(ctx, "user_alice", chunksFor("mine.txt", "", 1, "garden tomatoes need sun"))
	require.NoError(t, err)
	_, err = index.Upsert(ctx, PublicCollection, chunksFor("shared.txt", "", 1, "garden tomatoes need water"))
	require.NoError(t, err)

	out := NewRetriever(index, nil, CollectionsFor("alice", true)...).
		RetrieveAndAssemble(ctx, "garden tomatoes", 5, nil, 4000)

	assert.Equal(t, domain.RetrievalDegraded, out.Status)
	assert.Equal(t, domain.NoContextSentinel, out.Context)
	assert.Empty(t, out.Hits)
}
