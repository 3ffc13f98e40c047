package mcp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driving"
)

// mockSearchService is a mock implementation of driving.SearchService.
type mockSearchService struct {
	hits      []domain.SearchHit
	err       error
	lastOwner string
	lastOpts  domain.RetrievalOptions
}

func (m *mockSearchService) Search(
	_ context.Context,
	ownerID, _ string,
	opts domain.RetrievalOptions,
) ([]domain.SearchHit, error) {
	m.lastOwner = ownerID
	m.lastOpts = opts
	return m.hits, m.err
}

func (m *mockSearchService) Retrieve(
	_ context.Context,
	_, _ string,
	_ domain.RetrievalOptions,
) domain.RetrievalOutcome {
	return domain.RetrievalOutcome{Context: domain.NoContextSentinel, Status: domain.RetrievalEmpty}
}

// mockChatService is a mock implementation of driving.ChatService.
type mockChatService struct {
	answer  *domain.Answer
	err     error
	lastReq driving.ChatRequest
}

func (m *mockChatService) Ask(_ context.Context, req driving.ChatRequest) (*domain.Answer, error) {
	m.lastReq = req
	return m.answer, m.err
}

func (m *mockChatService) AskStream(
	_ context.Context,
	req driving.ChatRequest,
	emit func(string) error,
) (*domain.Answer, error) {
	m.lastReq = req
	if m.answer != nil {
		if err := emit(m.answer.Answer); err != nil {
			return nil, err
		}
	}
	return m.answer, m.err
}

// mockDocumentService is a mock implementation of driving.DocumentService.
type mockDocumentService struct {
	documents []domain.Document
	result    *domain.IngestResult
	err       error
	lastReq   driving.IngestRequest
}

func (m *mockDocumentService) Ingest(_ context.Context, req driving.IngestRequest) (*domain.IngestResult, error) {
	m.lastReq = req
	return m.result, m.err
}

func (m *mockDocumentService) List(_ context.Context, _, _ string) ([]domain.Document, error) {
	return m.documents, m.err
}

func (m *mockDocumentService) Get(_ context.Context, _, _ string) (*domain.Document, error) {
	if len(m.documents) == 0 {
		return nil, domain.ErrNotFound
	}
	return &m.documents[0], m.err
}

func (m *mockDocumentService) Delete(_ context.Context, _, _ string) error {
	return m.err
}

func (m *mockDocumentService) DeleteByFilename(_ context.Context, _, _ string) error {
	return m.err
}

// mockSessionService is a mock implementation of driving.SessionService.
type mockSessionService struct {
	summaries []domain.SessionSummary
	session   *domain.Session
	err       error
}

func (m *mockSessionService) List(_ context.Context, _ string) ([]domain.SessionSummary, error) {
	return m.summaries, m.err
}

func (m *mockSessionService) Get(_ context.Context, _, _ string) (*domain.Session, error) {
	return m.session, m.err
}

func (m *mockSessionService) Rename(_ context.Context, _, _, _ string) error {
	return m.err
}

func (m *mockSessionService) Delete(_ context.Context, _, _ string) error {
	return m.err
}

func newTestServer(t *testing.T, ports *Ports, opts ...Option) *Server {
	t.Helper()
	if ports.Search == nil {
		ports.Search = &mockSearchService{}
	}
	if ports.Chat == nil {
		ports.Chat = &mockChatService{}
	}
	server, err := NewServer(ports, opts...)
	require.NoError(t, err)
	return server
}
