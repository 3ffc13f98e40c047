package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAIProvider_IsValid(t *testing.T) {
	for _, p := range AllLLMProviders() {
		assert.True(t, p.IsValid(), p)
	}
	assert.False(t, AIProvider("").IsValid())
	assert.False(t, AIProvider("cohere").IsValid())
}

func TestAIProvider_RequiresAPIKey(t *testing.T) {
	tests := []struct {
		provider AIProvider
		expected bool
	}{
		{AIProviderMock, false},
		{AIProviderOllama, false},
		{AIProviderOpenAI, true},
		{AIProviderAnthropic, true},
	}

	for _, tt := range tests {
		t.Run(tt.provider.String(), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.provider.RequiresAPIKey())
		})
	}
}

func TestAIProvider_Description(t *testing.T) {
	assert.Equal(t, "Mock (offline)", AIProviderMock.Description())
	assert.Equal(t, "Ollama (local)", AIProviderOllama.Description())
	assert.Equal(t, unknownDescription, AIProvider("x").Description())
}

func TestVectorBackend(t *testing.T) {
	for _, b := range AllVectorBackends() {
		assert.True(t, b.IsValid(), b)
		assert.NotEqual(t, unknownDescription, b.Description())
	}
	assert.False(t, VectorBackendMemory.IsRemote())
	assert.True(t, VectorBackendQdrant.IsRemote())
	assert.True(t, VectorBackendPgvector.IsRemote())
	assert.False(t, VectorBackend("milvus").IsValid())
}

func TestEmbeddingSettings_IsConfigured(t *testing.T) {
	assert.True(t, EmbeddingSettings{Provider: AIProviderMock}.IsConfigured())
	assert.True(t, EmbeddingSettings{Provider: AIProviderOllama}.IsConfigured())
	assert.False(t, EmbeddingSettings{Provider: AIProviderOpenAI}.IsConfigured())
	assert.True(t, EmbeddingSettings{Provider: AIProviderOpenAI, APIKey: "k"}.IsConfigured())
	// anthropic has no embeddings endpoint
	assert.False(t, EmbeddingSettings{Provider: AIProviderAnthropic, APIKey: "k"}.IsConfigured())
}

func TestLLMSettings_IsConfigured(t *testing.T) {
	assert.True(t, LLMSettings{Provider: AIProviderMock}.IsConfigured())
	assert.False(t, LLMSettings{Provider: AIProviderAnthropic}.IsConfigured())
	assert.True(t, LLMSettings{Provider: AIProviderAnthropic, APIKey: "k"}.IsConfigured())
	assert.False(t, LLMSettings{}.IsConfigured())
}

func TestDefaultAppSettings(t *testing.T) {
	s := DefaultAppSettings()

	assert.Equal(t, AIProviderMock, s.LLM.Provider)
	assert.Equal(t, AIProviderMock, s.Embedding.Provider)
	assert.Equal(t, VectorBackendMemory, s.Vector.Backend)
	assert.Equal(t, 500, s.Chunking.Size)
	assert.Equal(t, 100, s.Chunking.Overlap)
	assert.Equal(t, 0.5, s.Chunking.PageOverlapFraction)
	assert.Equal(t, 5, s.Retrieval.TopK)
	assert.Greater(t, s.Retrieval.MaxContextChars, 0)
	assert.True(t, s.LLM.IsConfigured())
	assert.True(t, s.Embedding.IsConfigured())
}

func TestDefaultModels(t *testing.T) {
	for _, p := range AllEmbeddingProviders() {
		model, ok := DefaultEmbeddingModels()[p]
		assert.True(t, ok, p)
		_, known := EmbeddingDimensions()[model]
		assert.True(t, known, model)
	}
	for _, p := range AllLLMProviders() {
		_, ok := DefaultLLMModels()[p]
		assert.True(t, ok, p)
	}
}
