package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
)

// defaultPingTimeout bounds a single provider ping.
const defaultPingTimeout = 5 * time.Second

var _ driven.AIConfigValidator = (*ConfigValidator)(nil)

// ConfigValidator builds the configured provider and pings it before
// `ragdesk settings` saves credentials. Unconfigured settings pass without a
// network call, and the mock provider answers locally.
type ConfigValidator struct {
	timeout time.Duration
}

// ValidatorOption configures a ConfigValidator.
type ValidatorOption func(*ConfigValidator)

// WithPingTimeout bounds each ping. Non-positive values keep the default.
func WithPingTimeout(d time.Duration) ValidatorOption {
	return func(v *ConfigValidator) {
		if d > 0 {
			v.timeout = d
		}
	}
}

// NewConfigValidator returns a validator with a five second ping budget.
func NewConfigValidator(opts ...ValidatorOption) *ConfigValidator {
	v := &ConfigValidator{timeout: defaultPingTimeout}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// ValidateEmbedding checks that the embedder answers. Anthropic is rejected
// with ErrNoEmbeddings before any request is made.
func (v *ConfigValidator) ValidateEmbedding(config *domain.EmbeddingSettings) error {
	svc, err := CreateEmbeddingService(config)
	if err != nil {
		return err
	}
	if svc == nil {
		return nil
	}
	defer svc.Close()
	if err := v.ping(svc.Ping); err != nil {
		return fmt.Errorf("%s embeddings: %w", config.Provider, err)
	}
	return nil
}

// ValidateLLM checks that the chat model answers.
func (v *ConfigValidator) ValidateLLM(config *domain.LLMSettings) error {
	svc, err := CreateLLMService(config)
	if err != nil {
		return err
	}
	if svc == nil {
		return nil
	}
	defer svc.Close()
	if err := v.ping(svc.Ping); err != nil {
		return fmt.Errorf("%s llm: %w", config.Provider, err)
	}
	return nil
}

func (v *ConfigValidator) ping(fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), v.timeout)
	defer cancel()
	return fn(ctx)
}
