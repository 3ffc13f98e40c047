package driven

import "github.com/custodia-labs/ragdesk/internal/core/domain"

// AIConfigValidator checks provider settings before they are persisted, so a
// typo in a key or base URL surfaces at `settings set` time rather than on the
// first upload or chat turn.
type AIConfigValidator interface {
	// ValidateEmbedding returns nil for nil or unconfigured settings.
	ValidateEmbedding(config *domain.EmbeddingSettings) error

	// ValidateLLM returns nil for nil or unconfigured settings.
	ValidateLLM(config *domain.LLMSettings) error
}
