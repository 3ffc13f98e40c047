// Package openai provides an LLM service adapter using OpenAI API.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/ragdesk/internal/adapters/driven/llm"
	"github.com/custodia-labs/ragdesk/internal/adapters/driven/ratelimit"
	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

// Default configuration values.
const (
	DefaultBaseURL    = "https://api.openai.com/v1"
	DefaultLLMModel   = "gpt-4o-mini"
	DefaultLLMTimeout = 120 * time.Second
)

// streamDone terminates an OpenAI event stream.
const streamDone = "[DONE]"

// LLMConfig holds configuration for the OpenAI LLM service.
type LLMConfig struct {
	// APIKey is the OpenAI API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.openai.com/v1).
	// Can be changed for Azure OpenAI or compatible APIs.
	BaseURL string

	// Model is the LLM model to use (default: gpt-4o-mini).
	Model string

	// Timeout bounds non-streaming requests (default: 120s).
	Timeout time.Duration

	// Limiter throttles requests. Nil means unlimited.
	Limiter *ratelimit.Limiter
}

// LLMService provides LLM operations using OpenAI API.
type LLMService struct {
	client       *http.Client
	streamClient *http.Client
	baseURL      string
	apiKey       string
	model        string
	limiter      *ratelimit.Limiter
}

// chatCompletionRequest is the OpenAI /chat/completions request format.
type chatCompletionRequest struct {
	Model       string              `json:"model"`
	Messages    []chatCompletionMsg `json:"messages"`
	MaxTokens   int                 `json:"max_tokens,omitempty"`
	Temperature float64             `json:"temperature,omitempty"`
	Stop        []string            `json:"stop,omitempty"`
	Stream      bool                `json:"stream,omitempty"`
}

// chatCompletionMsg is the OpenAI chat message format.
type chatCompletionMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// apiError is the error object OpenAI returns in bodies and stream events.
type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// chatCompletionResponse is the OpenAI /chat/completions response format.
type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *apiError `json:"error,omitempty"`
}

// chatCompletionChunk is one streamed event.
type chatCompletionChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Error *apiError `json:"error,omitempty"`
}

// NewLLMService creates a new OpenAI LLM service.
func NewLLMService(cfg LLMConfig) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required: %w", domain.ErrInvalidInput)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultLLMModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultLLMTimeout
	}

	return &LLMService{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		streamClient: &http.Client{},
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:       cfg.APIKey,
		model:        cfg.Model,
		limiter:      cfg.Limiter,
	}, nil
}

// Generate produces text completion from a prompt.
func (s *LLMService) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	resp, err := s.post(ctx, s.client, prompt, opts, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var chatResp chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if chatResp.Error != nil {
		return "", fmt.Errorf("openai error: %s: %w", chatResp.Error.Message, domain.ErrLLMUnavailable)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("openai: no response choices returned: %w", domain.ErrLLMUnavailable)
	}
	return chatResp.Choices[0].Message.Content, nil
}

// GenerateStream streams the completion as server-sent events.
func (s *LLMService) GenerateStream(
	ctx context.Context, prompt string, opts driven.GenerateOptions,
) (<-chan driven.StreamChunk, error) {
	resp, err := s.post(ctx, s.streamClient, prompt, opts, true)
	if err != nil {
		return nil, err
	}

	ch := make(chan driven.StreamChunk)
	go func() {
		defer close(ch)
		defer resp.Body.Close()

		done := false
		err := llm.ReadSSE(ctx, resp.Body, func(_, data string) (bool, error) {
			if data == streamDone {
				done = true
				return false, nil
			}
			var chunk chatCompletionChunk
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				return false, fmt.Errorf("decode stream: %w", err)
			}
			if chunk.Error != nil {
				return false, fmt.Errorf("openai error: %s: %w", chunk.Error.Message, domain.ErrLLMUnavailable)
			}
			for _, choice := range chunk.Choices {
				if choice.Delta.Content != "" && !llm.Emit(ctx, ch, driven.StreamChunk{Text: choice.Delta.Content}) {
					return false, ctx.Err()
				}
			}
			return true, nil
		})
		if err == nil && !done {
			err = fmt.Errorf("openai stream ended early: %w", domain.ErrLLMUnavailable)
		}
		if err != nil && !errors.Is(err, context.Canceled) {
			llm.Emit(ctx, ch, driven.StreamChunk{Err: err})
		}
	}()
	return ch, nil
}

func (s *LLMService) post(
	ctx context.Context, client *http.Client, prompt string, opts driven.GenerateOptions, stream bool,
) (*http.Response, error) {
	reqBody := chatCompletionRequest{
		Model:       s.model,
		Messages:    []chatCompletionMsg{{Role: "user", Content: prompt}},
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
		Stop:        opts.StopWords,
		Stream:      stream,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	if stream {
		req.Header.Set("Accept", "text/event-stream")
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai: %w: %w", domain.ErrLLMUnavailable, err)
	}
	if s.limiter.Observe(resp) {
		resp.Body.Close()
		return nil, fmt.Errorf("openai chat: %w", domain.ErrRateLimited)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		var wrapped chatCompletionResponse
		if json.Unmarshal(body, &wrapped) == nil && wrapped.Error != nil {
			return nil, fmt.Errorf("openai error (status %d): %s: %w", resp.StatusCode, wrapped.Error.Message, domain.ErrLLMUnavailable)
		}
		return nil, fmt.Errorf("openai error (status %d): %s: %w", resp.StatusCode, string(body), domain.ErrLLMUnavailable)
	}
	return resp, nil
}

// ModelName returns the name of the LLM model being used.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping validates the service is reachable by checking the /models endpoint.
// This is a lightweight check that validates the API key without running inference.
func (s *LLMService) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/models", http.NoBody)
	if err != nil {
		return fmt.Errorf("openai: failed to create ping request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("openai: ping failed: %w: %w", domain.ErrLLMUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("openai: API returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// Close releases resources.
func (s *LLMService) Close() error {
	// HTTP client doesn't need explicit cleanup
	return nil
}
