// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"context"
	"errors"
	"fmt"

	hashembed "github.com/custodia-labs/ragdesk/internal/adapters/driven/embedding/hash"
	ollamaembed "github.com/custodia-labs/ragdesk/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/ragdesk/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/custodia-labs/ragdesk/internal/adapters/driven/llm/anthropic"
	mockllm "github.com/custodia-labs/ragdesk/internal/adapters/driven/llm/mock"
	ollamallm "github.com/custodia-labs/ragdesk/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/ragdesk/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/ragdesk/internal/adapters/driven/ratelimit"
	"github.com/custodia-labs/ragdesk/internal/adapters/driven/vectorstore"
	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
	"github.com/custodia-labs/ragdesk/internal/metrics"
)

// InitResult contains the AI and vector services built from settings.
type InitResult struct {
	EmbeddingService driven.EmbeddingService
	LLMService       driven.LLMService
	VectorBackend    driven.VectorBackend
	Degraded         bool // True if the vector backend fell back to memory.
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() {
	if r.EmbeddingService != nil {
		r.EmbeddingService.Close()
	}
	if r.VectorBackend != nil {
		r.VectorBackend.Close()
	}
	if r.LLMService != nil {
		r.LLMService.Close()
	}
}

// Initialise builds the embedding, LLM and vector services for settings.
// Providers are not pinged here; an unreachable model surfaces on first use.
// An unreachable vector backend degrades to memory instead of failing.
func Initialise(ctx context.Context, settings domain.AppSettings, m *metrics.Metrics) (*InitResult, error) {
	embed, err := CreateEmbeddingService(&settings.Embedding)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}
	if embed == nil {
		return nil, fmt.Errorf("%w: embedding provider %q is not configured",
			domain.ErrEmbeddingUnavailable, settings.Embedding.Provider)
	}

	llm, err := CreateLLMService(&settings.LLM)
	if err != nil {
		embed.Close()
		return nil, fmt.Errorf("%w: %w", domain.ErrLLMUnavailable, err)
	}
	if llm == nil {
		embed.Close()
		return nil, fmt.Errorf("%w: LLM provider %q is not configured",
			domain.ErrLLMUnavailable, settings.LLM.Provider)
	}

	backend, degraded := vectorstore.New(ctx, settings.Vector, m)
	return &InitResult{
		EmbeddingService: embed,
		LLMService:       llm,
		VectorBackend:    backend,
		Degraded:         degraded,
	}, nil
}

// CreateAndValidateEmbeddingService creates an embedding service and validates connectivity.
// Returns the service if successful, or an error with guidance.
func CreateAndValidateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'ragdesk settings set' to fix",
			domain.ErrEmbeddingUnavailable, err)
	}
	if svc == nil {
		return nil, nil
	}

	if err := NewConfigValidator().ping(svc.Ping); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). Run 'ragdesk settings set' to fix",
			domain.ErrEmbeddingUnavailable, err)
	}
	return svc, nil
}

// CreateAndValidateLLMService creates an LLM service and validates connectivity.
// Returns the service if successful, or an error with guidance.
func CreateAndValidateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	svc, err := CreateLLMService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'ragdesk settings set' to fix",
			domain.ErrLLMUnavailable, err)
	}
	if svc == nil {
		return nil, nil
	}

	if err := NewConfigValidator().ping(svc.Ping); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). Run 'ragdesk settings set' to fix",
			domain.ErrLLMUnavailable, err)
	}
	return svc, nil
}

// ErrNoEmbeddings is returned for providers without an embedding API.
var ErrNoEmbeddings = errors.New("provider does not support embeddings")

// CreateEmbeddingService creates the appropriate embedding service based on settings.
// Returns nil if the provider is not configured.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil {
		return nil, nil
	}
	if settings.Provider == domain.AIProviderAnthropic {
		return nil, fmt.Errorf("anthropic: %w, use mock, ollama or openai", ErrNoEmbeddings)
	}
	if !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderMock:
		return hashembed.NewEmbeddingService(dimensionsFor(settings, domain.DefaultMockDimensions)), nil

	case domain.AIProviderOllama:
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: dimensionsFor(settings, ollamaembed.DefaultDimensions),
		}), nil

	case domain.AIProviderOpenAI:
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:     settings.APIKey,
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: dimensionsFor(settings, 0),
			Limiter:    ratelimit.New(domain.AIProviderOpenAI),
		})

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
	}
}

// dimensionsFor picks the explicit size, then the known size of the model,
// then fallback.
func dimensionsFor(settings *domain.EmbeddingSettings, fallback int) int {
	if settings.Dimensions > 0 {
		return settings.Dimensions
	}
	if d := domain.EmbeddingDimensions()[settings.Model]; d > 0 {
		return d
	}
	return fallback
}

// CreateLLMService creates the appropriate LLM service based on settings.
// Returns nil if the provider is not configured.
func CreateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderMock:
		return mockllm.NewLLMService(), nil

	case domain.AIProviderOllama:
		return ollamallm.NewLLMService(ollamallm.LLMConfig{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		}), nil

	case domain.AIProviderOpenAI:
		return openaillm.NewLLMService(openaillm.LLMConfig{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
			Limiter: ratelimit.New(domain.AIProviderOpenAI),
		})

	case domain.AIProviderAnthropic:
		return anthropicllm.NewLLMService(anthropicllm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
			Limiter: ratelimit.New(domain.AIProviderAnthropic),
		})

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", settings.Provider)
	}
}
