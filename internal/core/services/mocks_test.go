package services

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragdesk/internal/adapters/driven/config/file"
	"github.com/custodia-labs/ragdesk/internal/adapters/driven/embedding/hash"
	"github.com/custodia-labs/ragdesk/internal/adapters/driven/llm/mock"
	"github.com/custodia-labs/ragdesk/internal/adapters/driven/storage/memory"
	vecmemory "github.com/custodia-labs/ragdesk/internal/adapters/driven/vectorstore/memory"
	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driving"
	"github.com/custodia-labs/ragdesk/internal/normalisers"
	"github.com/custodia-labs/ragdesk/internal/normalisers/plaintext"
	"github.com/custodia-labs/ragdesk/internal/postprocessors/chunker"
)

const testDimensions = 64

// testEnv wires every service over in-memory adapters.
type testEnv struct {
	backend    *vecmemory.Store
	embedder   *hash.EmbeddingService
	index      *VectorIndex
	docStore   *memory.DocumentStore
	files      *memory.FileStore
	sessions   *memory.SessionStore
	extractors *normalisers.Registry
	search     *SearchService
	docs       *DocumentService
	chat       *ChatService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWith(t, nil, nil)
}

// newTestEnvWith lets a test swap the backend or LLM for a failing double.
func newTestEnvWith(t *testing.T, backend driven.VectorBackend, llm driven.LLMService) *testEnv {
	t.Helper()

	env := &testEnv{
		backend:  vecmemory.New(),
		embedder: hash.NewEmbeddingService(testDimensions),
		docStore: memory.NewDocumentStore(),
		files:    memory.NewFileStore(),
		sessions: memory.NewSessionStore(),
	}
	if backend == nil {
		backend = env.backend
	}
	if llm == nil {
		llm = mock.NewLLMService()
	}

	env.index = NewVectorIndex(backend, env.embedder)
	env.search = NewSearchService(env.index, domain.RetrievalSettings{}, nil)

	splitter, err := chunker.New(chunker.WithChunkSize(200), chunker.WithOverlap(20))
	require.NoError(t, err)
	env.extractors = normalisers.NewRegistry(plaintext.New())
	env.docs = NewDocumentService(env.docStore, env.files, env.extractors, env.index, splitter, nil)

	env.chat = NewChatService(env.sessions, env.search, llm, testPrompts(t), nil)
	return env
}

// testPrompts returns a prompt store serving the built-in templates.
func testPrompts(t *testing.T) *file.PromptStore {
	t.Helper()
	prompts, err := file.NewPromptStore(t.TempDir())
	require.NoError(t, err)
	return prompts
}

// ingestText ingests a plain text document and requires success.
func (e *testEnv) ingestText(t *testing.T, owner, filename, category, text string, public bool) *domain.IngestResult {
	t.Helper()
	result, err := e.docs.Ingest(context.Background(), ingestRequest(owner, filename, category, text, public))
	require.NoError(t, err)
	require.True(t, result.Success, result.Message)
	return result
}

// failingBackend wraps a real backend and fails selected operations.
type failingBackend struct {
	driven.VectorBackend
	upsertErr error
	searchErr error
	deleteErr error
	searches  atomic.Int32

	// searchIn limits searchErr to one collection when set.
	searchIn string
}

func (f *failingBackend) Upsert(ctx context.Context, name string, points []domain.IndexedPoint) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	return f.VectorBackend.Upsert(ctx, name, points)
}

func (f *failingBackend) Search(
	ctx context.Context, name string, vector []float32, topK int, filter domain.Filter,
) ([]domain.SearchHit, error) {
	f.searches.Add(1)
	if f.searchErr != nil && (f.searchIn == "" || f.searchIn == name) {
		return nil, f.searchErr
	}
	return f.VectorBackend.Search(ctx, name, vector, topK, filter)
}

func (f *failingBackend) DeleteByField(ctx context.Context, name, field string, value any) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	return f.VectorBackend.DeleteByField(ctx, name, field, value)
}

// partialBackend writes half of every batch and then fails, leaving
// points behind the way an interrupted bulk write would.
type partialBackend struct {
	driven.VectorBackend
}

func (p *partialBackend) Upsert(ctx context.Context, name string, points []domain.IndexedPoint) error {
	if err := p.VectorBackend.Upsert(ctx, name, points[:len(points)/2]); err != nil {
		return err
	}
	return domain.ErrVectorIndexUnavailable
}

// cancellingBackend writes half of a batch and then cancels the caller's
// context, as a dropped client connection would. Deletes honour ctx.
type cancellingBackend struct {
	driven.VectorBackend
	cancel context.CancelFunc
}

func (c *cancellingBackend) Upsert(ctx context.Context, name string, points []domain.IndexedPoint) error {
	if err := c.VectorBackend.Upsert(ctx, name, points[:len(points)/2]); err != nil {
		return err
	}
	c.cancel()
	return ctx.Err()
}

func (c *cancellingBackend) DeleteByField(ctx context.Context, name, field string, value any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.VectorBackend.DeleteByField(ctx, name, field, value)
}

// stubEmbedder returns fixed vectors or an error.
type stubEmbedder struct {
	dims    int
	vectors [][]float32
	err     error
	batches atomic.Int32
}

func (s *stubEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	return make([]float32, s.dims), nil
}

func (s *stubEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	s.batches.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	if s.vectors != nil {
		return s.vectors, nil
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = make([]float32, s.dims)
		out[i][i%s.dims] = 1
	}
	return out, nil
}

func (s *stubEmbedder) Dimensions() int              { return s.dims }
func (s *stubEmbedder) ModelName() string            { return "stub" }
func (s *stubEmbedder) Ping(_ context.Context) error { return s.err }
func (s *stubEmbedder) Close() error                 { return nil }

// stubLLM replies with a fixed answer and records prompts.
type stubLLM struct {
	mu        sync.Mutex
	prompts   []string
	answer    string
	title     string
	err       error
	titleErr  error
	fragments []driven.StreamChunk
}

func (s *stubLLM) Generate(ctx context.Context, prompt string, _ driven.GenerateOptions) (string, error) {
	s.record(prompt)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if isTitlePrompt(prompt) {
		return s.title, s.titleErr
	}
	return s.answer, s.err
}

func (s *stubLLM) GenerateStream(
	ctx context.Context, prompt string, _ driven.GenerateOptions,
) (<-chan driven.StreamChunk, error) {
	s.record(prompt)
	if s.err != nil {
		return nil, s.err
	}
	ch := make(chan driven.StreamChunk)
	go func() {
		defer close(ch)
		for _, f := range s.fragments {
			select {
			case ch <- f:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

func (s *stubLLM) ModelName() string            { return "stub" }
func (s *stubLLM) Ping(_ context.Context) error { return nil }
func (s *stubLLM) Close() error                 { return nil }

func (s *stubLLM) record(prompt string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, prompt)
}

func (s *stubLLM) answerPrompts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, p := range s.prompts {
		if !isTitlePrompt(p) {
			out = append(out, p)
		}
	}
	return out
}

func isTitlePrompt(prompt string) bool {
	return containsAll(prompt, driven.PromptContentHeader, driven.PromptTitleHeader)
}

// failingSessionStore wraps the memory store and fails writes on demand.
type failingSessionStore struct {
	*memory.SessionStore
	createErr error
	appendErr error
}

func (f *failingSessionStore) CreateSession(ctx context.Context, session *domain.Session) error {
	if f.createErr != nil {
		return f.createErr
	}
	return f.SessionStore.CreateSession(ctx, session)
}

func (f *failingSessionStore) AppendMessages(ctx context.Context, ownerID, id string, messages []domain.Message) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	return f.SessionStore.AppendMessages(ctx, ownerID, id, messages)
}

// stubPromptStore returns fixed templates.
type stubPromptStore struct {
	templates map[string]string
	err       error
}

func (s *stubPromptStore) Load(name string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	if t, ok := s.templates[name]; ok {
		return t, nil
	}
	return "", domain.ErrNotFound
}

func (s *stubPromptStore) Reload() {}

// failingConfigStore fails Set for one key, or for every key when failOn is empty.
type failingConfigStore struct {
	*memory.ConfigStore
	failOn string
}

func (f *failingConfigStore) Set(key string, value any) error {
	if f.failOn == "" || key == f.failOn {
		return assert.AnError
	}
	return f.ConfigStore.Set(key, value)
}

// mockAIConfigValidator returns preset errors.
type mockAIConfigValidator struct {
	embedErr error
	llmErr   error
}

func (m *mockAIConfigValidator) ValidateEmbedding(_ *domain.EmbeddingSettings) error {
	return m.embedErr
}

func (m *mockAIConfigValidator) ValidateLLM(_ *domain.LLMSettings) error {
	return m.llmErr
}

const pagesMIMEType = "application/x-test-pages"

// pagesExtractor returns preset pages for pagesMIMEType.
type pagesExtractor struct {
	pages []domain.Page
	err   error
}

func (p *pagesExtractor) SupportedMIMETypes() []string { return []string{pagesMIMEType} }
func (p *pagesExtractor) Priority() int                { return 50 }

func (p *pagesExtractor) Extract(_ context.Context, _ []byte) ([]domain.Page, error) {
	return p.pages, p.err
}

func ingestRequest(owner, filename, category, text string, public bool) driving.IngestRequest {
	return driving.IngestRequest{
		OwnerID:  owner,
		Filename: filename,
		MIMEType: "text/plain",
		Category: category,
		Public:   public,
		Content:  []byte(text),
	}
}

func containsAll(s string, parts ...string) bool {
	for _, p := range parts {
		if !strings.Contains(s, p) {
			return false
		}
	}
	return true
}
