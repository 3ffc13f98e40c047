// Package anthropic provides an LLM service adapter using the Anthropic Messages API.
package anthropic

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
	DefaultBaseURL   = "https://api.anthropic.com"
	DefaultModel     = "claude-3-5-sonnet-latest"
	DefaultTimeout   = 120 * time.Second
	DefaultMaxTokens = 1024

	// anthropicVersion is the required API version header.
	anthropicVersion = "2023-06-01"
)

// Config holds configuration for the Anthropic LLM service.
type Config struct {
	// APIKey is the Anthropic API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.anthropic.com).
	BaseURL string

	// Model is the LLM model to use (default: claude-3-5-sonnet-latest).
	Model string

	// Timeout bounds non-streaming requests (default: 120s).
	Timeout time.Duration

	// Limiter throttles requests. Nil means unlimited.
	Limiter *ratelimit.Limiter
}

// LLMService provides LLM operations using Anthropic API.
type LLMService struct {
	client       *http.Client
	streamClient *http.Client
	baseURL      string
	apiKey       string
	model        string
	limiter      *ratelimit.Limiter
}

// messagesRequest is the Anthropic /v1/messages request format.
type messagesRequest struct {
	Model       string            `json:"model"`
	Messages    []messagesMessage `json:"messages"`
	MaxTokens   int               `json:"max_tokens"`
	Temperature float64           `json:"temperature,omitempty"`
	StopSeqs    []string          `json:"stop_sequences,omitempty"`
	Stream      bool              `json:"stream,omitempty"`
}

// messagesMessage is the Anthropic message format.
type messagesMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type apiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// messagesResponse is the Anthropic /v1/messages response format.
type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string    `json:"stop_reason"`
	Error      *apiError `json:"error,omitempty"`
}

// streamEvent covers the fields used from every streamed event type.
type streamEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
	Error *apiError `json:"error,omitempty"`
}

// NewLLMService creates a new Anthropic LLM service.
func NewLLMService(cfg Config) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic: API key is required: %w", domain.ErrInvalidInput)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
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

	var msgResp messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&msgResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if msgResp.Error != nil {
		return "", fmt.Errorf("anthropic error: %s: %w", msgResp.Error.Message, domain.ErrLLMUnavailable)
	}

	var sb strings.Builder
	for _, block := range msgResp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String(), nil
}

// GenerateStream streams text deltas from the Messages API.
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
			var ev streamEvent
			if err := json.Unmarshal([]byte(data), &ev); err != nil {
				return false, fmt.Errorf("decode stream: %w", err)
			}
			switch ev.Type {
			case "content_block_delta":
				if ev.Delta.Type == "text_delta" && ev.Delta.Text != "" &&
					!llm.Emit(ctx, ch, driven.StreamChunk{Text: ev.Delta.Text}) {
					return false, ctx.Err()
				}
			case "message_stop":
				done = true
				return false, nil
			case "error":
				msg := "unknown error"
				if ev.Error != nil {
					msg = ev.Error.Message
				}
				return false, fmt.Errorf("anthropic error: %s: %w", msg, domain.ErrLLMUnavailable)
			}
			return true, nil
		})
		if err == nil && !done {
			err = fmt.Errorf("anthropic stream ended early: %w", domain.ErrLLMUnavailable)
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
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	reqBody := messagesRequest{
		Model:       s.model,
		Messages:    []messagesMessage{{Role: "user", Content: prompt}},
		MaxTokens:   maxTokens,
		Temperature: opts.Temperature,
		StopSeqs:    opts.StopWords,
		Stream:      stream,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/messages", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", s.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("anthropic: %w: %w", domain.ErrLLMUnavailable, err)
	}
	if s.limiter.Observe(resp) {
		resp.Body.Close()
		return nil, fmt.Errorf("anthropic messages: %w", domain.ErrRateLimited)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		var wrapped messagesResponse
		if json.Unmarshal(body, &wrapped) == nil && wrapped.Error != nil {
			return nil, fmt.Errorf("anthropic error (status %d): %s: %w", resp.StatusCode, wrapped.Error.Message, domain.ErrLLMUnavailable)
		}
		return nil, fmt.Errorf("anthropic error (status %d): %s: %w", resp.StatusCode, string(body), domain.ErrLLMUnavailable)
	}
	return resp, nil
}

// ModelName returns the name of the LLM model being used.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping validates the service is reachable by checking the /v1/models endpoint.
// This is a lightweight check that validates the API key without running inference.
func (s *LLMService) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/v1/models", http.NoBody)
	if err != nil {
		return fmt.Errorf("anthropic: failed to create ping request: %w", err)
	}
	req.Header.Set("x-api-key", s.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("anthropic: ping failed: %w: %w", domain.ErrLLMUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("anthropic: API returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// Close releases resources.
func (s *LLMService) Close() error {
	// HTTP client doesn't need explicit cleanup
	return nil
}
