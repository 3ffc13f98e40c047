package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragdesk/internal/adapters/driven/ratelimit"
	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
)

func collect(ch <-chan driven.StreamChunk) (string, error) {
	var sb strings.Builder
	var err error
	for c := range ch {
		if c.Err != nil {
			err = c.Err
			continue
		}
		sb.WriteString(c.Text)
	}
	return sb.String(), err
}

func newService(t *testing.T, url string) *LLMService {
	t.Helper()
	s, err := NewLLMService(LLMConfig{APIKey: "sk-test", BaseURL: url})
	require.NoError(t, err)
	return s
}

func TestNewLLMService_RequiresKey(t *testing.T) {
	_, err := NewLLMService(LLMConfig{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestNewLLMService_Defaults(t *testing.T) {
	s := newService(t, "")
	assert.Equal(t, DefaultBaseURL, s.baseURL)
	assert.Equal(t, DefaultLLMModel, s.ModelName())
}

func TestGenerate(t *testing.T) {
	var got chatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"Paris"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	answer, err := newService(t, srv.URL).Generate(context.Background(), "Capital?", driven.GenerateOptions{Temperature: 0.2})

	require.NoError(t, err)
	assert.Equal(t, "Paris", answer)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
	assert.Equal(t, "Capital?", got.Messages[0].Content)
	assert.False(t, got.Stream)
}

func TestGenerate_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"context too long","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	_, err := newService(t, srv.URL).Generate(context.Background(), "x", driven.GenerateOptions{})
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
	assert.Contains(t, err.Error(), "context too long")
}

func TestGenerate_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	_, err := newService(t, srv.URL).Generate(context.Background(), "x", driven.GenerateOptions{})
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
}

func TestGenerate_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	limiter := ratelimit.NewWithConfig(ratelimit.Config{RequestsPerSecond: 100, BurstSize: 10})
	s, err := NewLLMService(LLMConfig{APIKey: "k", BaseURL: srv.URL, Limiter: limiter})
	require.NoError(t, err)

	_, err = s.Generate(context.Background(), "x", driven.GenerateOptions{})
	assert.ErrorIs(t, err, domain.ErrRateLimited)
}

func TestGenerateStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Stream)
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte(
			"data: {\"choices\":[{\"delta\":{\"role\":\"assistant\"}}]}\n\n" +
				"data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n\n" +
				"data: {\"choices\":[{\"delta\":{\"content\":\"lo\"}}]}\n\n" +
				"data: {\"choices\":[{\"delta\":{},\"finish_reason\":\"stop\"}]}\n\n" +
				"data: [DONE]\n\n"))
	}))
	defer srv.Close()

	ch, err := newService(t, srv.URL).GenerateStream(context.Background(), "hi", driven.GenerateOptions{})
	require.NoError(t, err)

	text, streamErr := collect(ch)
	assert.NoError(t, streamErr)
	assert.Equal(t, "Hello", text)
}

func TestGenerateStream_EndsWithoutDone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"par\"}}]}\n\n"))
	}))
	defer srv.Close()

	ch, err := newService(t, srv.URL).GenerateStream(context.Background(), "hi", driven.GenerateOptions{})
	require.NoError(t, err)

	text, streamErr := collect(ch)
	assert.Equal(t, "par", text)
	assert.ErrorIs(t, streamErr, domain.ErrLLMUnavailable)
}

func TestGenerateStream_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newService(t, srv.URL).GenerateStream(context.Background(), "hi", driven.GenerateOptions{})
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models", r.URL.Path)
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	assert.NoError(t, newService(t, srv.URL).Ping(context.Background()))
}
