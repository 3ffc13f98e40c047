// Package ollama provides an LLM service adapter using Ollama.
package ollama

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
	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

// Default configuration values.
const (
	DefaultBaseURL    = "http://localhost:11434"
	DefaultLLMModel   = "llama3.2"
	DefaultLLMTimeout = 120 * time.Second
)

// LLMConfig holds configuration for the Ollama LLM service.
type LLMConfig struct {
	// BaseURL is the Ollama API base URL (default: http://localhost:11434).
	BaseURL string

	// Model is the LLM model to use (default: llama3.2).
	Model string

	// Timeout bounds non-streaming requests (default: 120s).
	// Streams are bounded by their context only.
	Timeout time.Duration
}

// LLMService provides LLM operations using Ollama.
type LLMService struct {
	client       *http.Client
	streamClient *http.Client
	baseURL      string
	model        string
}

// generateRequest is the Ollama /api/generate request format.
type generateRequest struct {
	Model   string   `json:"model"`
	Prompt  string   `json:"prompt"`
	Stream  bool     `json:"stream"`
	Options *options `json:"options,omitempty"`
}

// options holds generation parameters.
type options struct {
	NumPredict  int      `json:"num_predict,omitempty"`
	Temperature float64  `json:"temperature,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

// generateResponse is one /api/generate response object. Streams send one per line.
type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

// NewLLMService creates a new Ollama LLM service.
func NewLLMService(cfg LLMConfig) *LLMService {
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
		model:        cfg.Model,
	}
}

// Generate produces text completion from a prompt.
func (s *LLMService) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	resp, err := s.post(ctx, s.client, prompt, opts, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var genResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if genResp.Error != "" {
		return "", fmt.Errorf("ollama error: %s: %w", genResp.Error, domain.ErrLLMUnavailable)
	}
	return genResp.Response, nil
}

// GenerateStream streams the completion. Ollama sends one JSON object per line.
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
		err := llm.ReadLines(ctx, resp.Body, func(line string) (bool, error) {
			var part generateResponse
			if err := json.Unmarshal([]byte(line), &part); err != nil {
				return false, fmt.Errorf("decode stream: %w", err)
			}
			if part.Error != "" {
				return false, fmt.Errorf("ollama error: %s: %w", part.Error, domain.ErrLLMUnavailable)
			}
			if part.Response != "" && !llm.Emit(ctx, ch, driven.StreamChunk{Text: part.Response}) {
				return false, ctx.Err()
			}
			done = part.Done
			return !part.Done, nil
		})
		if err == nil && !done {
			err = fmt.Errorf("ollama stream ended early: %w", domain.ErrLLMUnavailable)
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
	reqBody := generateRequest{
		Model:  s.model,
		Prompt: prompt,
		Stream: stream,
	}
	if opts.MaxTokens > 0 || opts.Temperature > 0 || len(opts.StopWords) > 0 {
		reqBody.Options = &options{
			NumPredict:  opts.MaxTokens,
			Temperature: opts.Temperature,
			Stop:        opts.StopWords,
		}
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/generate", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama: %w: %w", domain.ErrLLMUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("ollama error (status %d): %s: %w",
			resp.StatusCode, strings.TrimSpace(string(body)), domain.ErrLLMUnavailable)
	}
	return resp, nil
}

// ModelName returns the name of the LLM model being used.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping validates the service is reachable by checking the /api/tags endpoint.
// This is a lightweight check that validates connectivity without running inference.
func (s *LLMService) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api/tags", http.NoBody)
	if err != nil {
		return fmt.Errorf("ollama: failed to create ping request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("ollama: ping failed: %w: %w", domain.ErrLLMUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("ollama: API returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// Close releases resources.
func (s *LLMService) Close() error {
	// HTTP client doesn't need explicit cleanup
	return nil
}
