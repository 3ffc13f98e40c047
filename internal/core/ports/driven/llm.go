// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import "context"

// LLMService provides language model operations.
//
// Implementations include:
//   - Mock (offline, deterministic)
//   - Ollama (local models)
//   - OpenAI (GPT-4o family)
//   - Anthropic (Claude)
type LLMService interface {
	// Generate produces a complete text response to a prompt.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

	// GenerateStream produces a response as incremental fragments.
	// The channel is closed after the last fragment, after an error chunk,
	// or when ctx is cancelled. A stream cannot be restarted.
	GenerateStream(ctx context.Context, prompt string, opts GenerateOptions) (<-chan StreamChunk, error)

	// ModelName returns the name of the LLM model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// StreamChunk is one element of a generation stream.
// Exactly one of Text or Err is meaningful; Err ends the stream.
type StreamChunk struct {
	Text string
	Err  error
}

// GenerateOptions configures text generation behaviour.
type GenerateOptions struct {
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic, 1.0 = creative).
	Temperature float64

	// StopWords are sequences that stop generation when encountered.
	StopWords []string
}
