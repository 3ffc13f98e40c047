package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragdesk/internal/adapters/driven/config/file"
	"github.com/custodia-labs/ragdesk/internal/adapters/driven/embedding/hash"
	"github.com/custodia-labs/ragdesk/internal/adapters/driven/llm/mock"
	"github.com/custodia-labs/ragdesk/internal/adapters/driven/storage/memory"
	vecmemory "github.com/custodia-labs/ragdesk/internal/adapters/driven/vectorstore/memory"
	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/services"
	"github.com/custodia-labs/ragdesk/internal/metrics"
	"github.com/custodia-labs/ragdesk/internal/normalisers"
	"github.com/custodia-labs/ragdesk/internal/normalisers/markdown"
	"github.com/custodia-labs/ragdesk/internal/normalisers/plaintext"
	"github.com/custodia-labs/ragdesk/internal/postprocessors/chunker"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type testServer struct {
	server  *Server
	metrics *metrics.Metrics
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	m := metrics.New(prometheus.NewRegistry())
	index := services.NewVectorIndex(vecmemory.New(), hash.NewEmbeddingService(64))
	search := services.NewSearchService(index, domain.RetrievalSettings{}, m)

	splitter, err := chunker.New(chunker.WithChunkSize(200), chunker.WithOverlap(20))
	require.NoError(t, err)
	extractors := normalisers.NewRegistry(plaintext.New(), markdown.New())
	docs := services.NewDocumentService(
		memory.NewDocumentStore(), memory.NewFileStore(), extractors, index, splitter, m,
	)

	prompts, err := file.NewPromptStore(t.TempDir())
	require.NoError(t, err)
	sessions := memory.NewSessionStore()
	chat := services.NewChatService(sessions, search, mock.NewLLMService(), prompts, m)

	srv, err := New(":0", Ports{
		Documents: docs,
		Search:    search,
		Chat:      chat,
		Sessions:  services.NewSessionService(sessions),
	}, m, WithMaxUploadBytes(1<<20))
	require.NoError(t, err)

	return &testServer{server: srv, metrics: m}
}

func (ts *testServer) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	ts.server.Handler().ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) json(t *testing.T, method, path, owner string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if owner != "" {
		req.Header.Set(headerOwnerID, owner)
	}
	return ts.do(t, req)
}

func (ts *testServer) upload(t *testing.T, owner, filename, content string, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/documents", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if owner != "" {
		req.Header.Set(headerOwnerID, owner)
	}
	return ts.do(t, req)
}

// decoded is the envelope with data left raw for per-test decoding.
type decoded struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *apiError       `json:"error"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) decoded {
	t.Helper()
	var env decoded
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	env := decode(t, rec)
	require.True(t, env.Success, rec.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, v))
}

const solarText = "Solar panels convert sunlight into electricity. " +
	"Panel efficiency depends on temperature and the angle of the sun."

func TestNew_RequiresPorts(t *testing.T) {
	_, err := New(":0", Ports{}, nil)
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))

	rec := ts.do(t, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ragdesk_http_requests_total")
}

func TestRequestID_EchoedOrGenerated(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(headerRequestID, "req-123")
	assert.Equal(t, "req-123", ts.do(t, req).Header().Get(headerRequestID))

	rec := ts.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.NotEmpty(t, rec.Header().Get(headerRequestID))
}

func TestUploadDocument(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.upload(t, "alice", "solar.txt", solarText, map[string]string{"category": "energy"})

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var data struct {
		Message  string       `json:"message"`
		Document documentView `json:"document"`
	}
	decodeData(t, rec, &data)
	assert.Contains(t, data.Message, "solar.txt")
	assert.Equal(t, "solar.txt", data.Document.Filename)
	assert.Equal(t, "energy", data.Document.Category)
	assert.Equal(t, "completed", data.Document.Status)
	assert.Equal(t, "user_alice", data.Document.Collection)
	assert.Positive(t, data.Document.ChunkCount)
}

func TestUploadDocument_Public(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.upload(t, "alice", "shared.md", "# Shared\n\n"+solarText, map[string]string{"public": "true"})

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var data struct {
		Document documentView `json:"document"`
	}
	decodeData(t, rec, &data)
	assert.Equal(t, services.PublicCollection, data.Document.Collection)
}

func TestUploadDocument_MissingFile(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.json(t, http.MethodPost, "/api/documents", "", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decode(t, rec)
	assert.False(t, env.Success)
	assert.Equal(t, "bad_request", env.Error.Code)
}

func TestUploadDocument_TooLarge(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.upload(t, "", "big.txt", strings.Repeat("a", 2<<20), nil)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestUploadDocument_PipelineFailure(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.upload(t, "", "image.png", "\x89PNG\r\n\x1a\n binary", nil)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	env := decode(t, rec)
	assert.Equal(t, "ingest_failed", env.Error.Code)
	assert.Contains(t, env.Error.Message, "image.png")
}

func TestListDocuments_ScopedByOwner(t *testing.T) {
	ts := newTestServer(t)
	require.Equal(t, http.StatusCreated, ts.upload(t, "alice", "a.txt", solarText, nil).Code)
	require.Equal(t, http.StatusCreated, ts.upload(t, "bob", "b.txt", solarText, nil).Code)

	var docs []documentView
	decodeData(t, ts.json(t, http.MethodGet, "/api/documents", "alice", nil), &docs)
	require.Len(t, docs, 1)
	assert.Equal(t, "a.txt", docs[0].Filename)

	decodeData(t, ts.json(t, http.MethodGet, "/api/documents", "carol", nil), &docs)
	assert.Empty(t, docs)
}

func TestGetAndDeleteDocument(t *testing.T) {
	ts := newTestServer(t)
	var created struct {
		Document documentView `json:"document"`
	}
	decodeData(t, ts.upload(t, "alice", "a.txt", solarText, nil), &created)
	path := "/api/documents/" + created.Document.ID

	assert.Equal(t, http.StatusNotFound, ts.json(t, http.MethodGet, path, "bob", nil).Code)

	var doc documentView
	decodeData(t, ts.json(t, http.MethodGet, path, "alice", nil), &doc)
	assert.Equal(t, created.Document.ID, doc.ID)

	assert.Equal(t, http.StatusOK, ts.json(t, http.MethodDelete, path, "alice", nil).Code)
	rec := ts.json(t, http.MethodGet, path, "alice", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decode(t, rec).Error.Code)
}

func TestSearch(t *testing.T) {
	ts := newTestServer(t)
	require.Equal(t, http.StatusCreated, ts.upload(t, "alice", "solar.txt", solarText, nil).Code)

	var hits []hitView
	decodeData(t, ts.json(t, http.MethodGet, "/api/search?q=solar+efficiency&top_k=2", "alice", nil), &hits)

	require.NotEmpty(t, hits)
	assert.LessOrEqual(t, len(hits), 2)
	assert.Equal(t, "solar.txt", hits[0].Metadata[domain.MetaFilename])
}

func TestSearch_RequiresQuery(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.json(t, http.MethodGet, "/api/search", "", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChat_NewThenContinuing(t *testing.T) {
	ts := newTestServer(t)
	require.Equal(t, http.StatusCreated, ts.upload(t, "alice", "solar.txt", solarText, nil).Code)

	var first answerView
	decodeData(t, ts.json(t, http.MethodPost, "/api/chat", "alice",
		chatRequest{Question: "How efficient are solar panels?"}), &first)

	assert.Equal(t, "new", first.State)
	assert.NotEmpty(t, first.SessionID)
	assert.NotEmpty(t, first.Title)
	assert.True(t, first.Persisted)
	assert.Contains(t, first.Answer, "Solar panels")
	require.NotEmpty(t, first.Sources)
	assert.Equal(t, "solar.txt", *first.Sources[0].Filename)

	var second answerView
	decodeData(t, ts.json(t, http.MethodPost, "/api/chat", "alice",
		chatRequest{Question: "And the angle?", SessionID: first.SessionID}), &second)

	assert.Equal(t, "continuing", second.State)
	assert.Equal(t, first.SessionID, second.SessionID)
	assert.Equal(t, first.Title, second.Title)
}

func TestChat_NoDocumentsStillAnswers(t *testing.T) {
	ts := newTestServer(t)

	var answer answerView
	decodeData(t, ts.json(t, http.MethodPost, "/api/chat", "", chatRequest{Question: "hello there"}), &answer)

	assert.NotEmpty(t, answer.Answer)
	assert.Empty(t, answer.Sources)
	assert.NotNil(t, answer.Sources)
}

func TestChat_Validation(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.json(t, http.MethodPost, "/api/chat", "", chatRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	assert.Equal(t, http.StatusBadRequest, ts.do(t, req).Code)
}

func TestChatStream(t *testing.T) {
	ts := newTestServer(t)
	require.Equal(t, http.StatusCreated, ts.upload(t, "alice", "solar.txt", solarText, nil).Code)

	rec := ts.json(t, http.MethodPost, "/api/chat/stream", "alice",
		chatRequest{Question: "How efficient are solar panels?"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Contains(t, body, "event:token")
	assert.Contains(t, body, "event:done")
	assert.Greater(t, strings.Index(body, "event:done"), strings.LastIndex(body, "event:token"))
	assert.Contains(t, body, "session_id")
	assert.Contains(t, body, "solar.txt")

	var sessions []sessionSummaryView
	decodeData(t, ts.json(t, http.MethodGet, "/api/sessions", "alice", nil), &sessions)
	assert.Len(t, sessions, 1)
}

func TestChatStream_Validation(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.json(t, http.MethodPost, "/api/chat/stream", "", chatRequest{})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, decode(t, rec).Success)
}

func TestSessions_Lifecycle(t *testing.T) {
	ts := newTestServer(t)
	var answer answerView
	decodeData(t, ts.json(t, http.MethodPost, "/api/chat", "alice", chatRequest{Question: "hello"}), &answer)
	path := "/api/sessions/" + answer.SessionID

	var sessions []sessionSummaryView
	decodeData(t, ts.json(t, http.MethodGet, "/api/sessions", "alice", nil), &sessions)
	require.Len(t, sessions, 1)
	assert.Equal(t, 2, sessions[0].MessageCount)

	var session sessionView
	decodeData(t, ts.json(t, http.MethodGet, path, "alice", nil), &session)
	require.Len(t, session.Messages, 2)
	assert.Equal(t, "user", session.Messages[0].Role)
	assert.Equal(t, "hello", session.Messages[0].Content)
	assert.Equal(t, "assistant", session.Messages[1].Role)

	assert.Equal(t, http.StatusNotFound, ts.json(t, http.MethodGet, path, "bob", nil).Code)

	rec := ts.json(t, http.MethodPatch, path, "alice", map[string]string{"title": "Greetings"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decodeData(t, ts.json(t, http.MethodGet, path, "alice", nil), &session)
	assert.Equal(t, "Greetings", session.Title)

	assert.Equal(t, http.StatusBadRequest,
		ts.json(t, http.MethodPatch, path, "alice", map[string]string{"title": ""}).Code)

	assert.Equal(t, http.StatusOK, ts.json(t, http.MethodDelete, path, "alice", nil).Code)
	assert.Equal(t, http.StatusNotFound, ts.json(t, http.MethodGet, path, "alice", nil).Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{domain.ErrInvalidInput, http.StatusBadRequest, "bad_request"},
		{domain.ErrInvalidChunkConfig, http.StatusBadRequest, "bad_request"},
		{domain.ErrNotFound, http.StatusNotFound, "not_found"},
		{domain.ErrUnsupportedFormat, http.StatusUnsupportedMediaType, "unsupported_format"},
		{domain.ErrExtractionFailed, http.StatusUnprocessableEntity, "extraction_failed"},
		{domain.ErrRateLimited, http.StatusTooManyRequests, "rate_limited"},
		{domain.ErrLLMUnavailable, http.StatusServiceUnavailable, "unavailable"},
		{domain.ErrEmbeddingUnavailable, http.StatusServiceUnavailable, "unavailable"},
		{domain.ErrVectorIndexUnavailable, http.StatusServiceUnavailable, "unavailable"},
		{domain.ErrPersistenceFailed, http.StatusInternalServerError, "persistence_failed"},
		{context.DeadlineExceeded, http.StatusGatewayTimeout, "timeout"},
		{context.Canceled, statusClientClosed, "cancelled"},
		{errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.code+"/"+tt.err.Error(), func(t *testing.T) {
			status, code := statusFor(fmt.Errorf("wrapped: %w", tt.err))
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, code)
		})
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	ts := newTestServer(t)
	ts.server.server.Addr = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NoError(t, ts.server.Run(ctx))
}
