package domain

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderMock answers from a fixed template and embeds by hashing.
	// It needs no network and is the default.
	AIProviderMock AIProvider = "mock"

	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderMock, AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama || p == AIProviderMock
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderMock:
		return "Mock (offline)"
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	default:
		return unknownDescription
	}
}

// VectorBackend identifies where vector collections are stored.
type VectorBackend string

// Available vector backends.
const (
	// VectorBackendMemory keeps collections in process. State is lost on exit.
	VectorBackendMemory VectorBackend = "memory"

	// VectorBackendQdrant talks to a Qdrant server over REST.
	VectorBackendQdrant VectorBackend = "qdrant"

	// VectorBackendPgvector stores points in PostgreSQL with the vector extension.
	VectorBackendPgvector VectorBackend = "pgvector"
)

// IsValid returns true if the backend is recognised.
func (b VectorBackend) IsValid() bool {
	switch b {
	case VectorBackendMemory, VectorBackendQdrant, VectorBackendPgvector:
		return true
	default:
		return false
	}
}

// IsRemote returns true if the backend is reached over the network.
func (b VectorBackend) IsRemote() bool {
	return b == VectorBackendQdrant || b == VectorBackendPgvector
}

// String returns the string representation.
func (b VectorBackend) String() string {
	return string(b)
}

// Description returns a human-readable description of the backend.
func (b VectorBackend) Description() string {
	switch b {
	case VectorBackendMemory:
		return "In-memory (not persisted)"
	case VectorBackendQdrant:
		return "Qdrant (REST)"
	case VectorBackendPgvector:
		return "PostgreSQL + pgvector"
	default:
		return unknownDescription
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// Dimensions is the vector size. Zero means look it up from the model name.
	Dimensions int
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() || e.Provider == AIProviderAnthropic {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI/Anthropic).
	APIKey string
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// VectorSettings holds vector backend configuration.
type VectorSettings struct {
	// Backend selects the store.
	Backend VectorBackend

	// QdrantURL is the Qdrant REST endpoint.
	QdrantURL string

	// PgDSN is the PostgreSQL connection string.
	PgDSN string

	// PgTable is the table holding points.
	PgTable string
}

// ChunkingSettings controls how pages are split.
type ChunkingSettings struct {
	// Size is the maximum chunk length in characters.
	Size int

	// Overlap is the number of characters shared by adjacent chunks.
	Overlap int

	// PageOverlap enables appending the head of the next page before chunking.
	PageOverlap bool

	// PageOverlapFraction is the share of the next page's tokens to append.
	PageOverlapFraction float64
}

// RetrievalSettings controls context assembly.
type RetrievalSettings struct {
	// TopK is the number of hits requested from the index.
	TopK int

	// MaxContextChars bounds the assembled context.
	MaxContextChars int
}

// ServerSettings holds HTTP API configuration.
type ServerSettings struct {
	// Addr is the listen address.
	Addr string
}

// AppSettings holds all application settings.
type AppSettings struct {
	Embedding EmbeddingSettings
	LLM       LLMSettings
	Vector    VectorSettings
	Chunking  ChunkingSettings
	Retrieval RetrievalSettings
	Server    ServerSettings
}

// Defaults used when nothing is configured.
const (
	DefaultChunkSize           = 500
	DefaultChunkOverlap        = 100
	DefaultPageOverlapFraction = 0.5
	DefaultTopK                = 5
	DefaultMaxContextChars     = 4000
	DefaultServerAddr          = ":8080"
	DefaultQdrantURL           = "http://localhost:6333"
	DefaultPgTable             = "ragdesk_points"
	DefaultMockDimensions      = 256
)

// DefaultAppSettings returns settings with sensible defaults.
// The mock provider and in-memory backend work without any external service.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Embedding: EmbeddingSettings{
			Provider:   AIProviderMock,
			Model:      "hash",
			Dimensions: DefaultMockDimensions,
		},
		LLM: LLMSettings{
			Provider: AIProviderMock,
			Model:    "mock",
		},
		Vector: VectorSettings{
			Backend:   VectorBackendMemory,
			QdrantURL: DefaultQdrantURL,
			PgTable:   DefaultPgTable,
		},
		Chunking: ChunkingSettings{
			Size:                DefaultChunkSize,
			Overlap:             DefaultChunkOverlap,
			PageOverlap:         false,
			PageOverlapFraction: DefaultPageOverlapFraction,
		},
		Retrieval: RetrievalSettings{
			TopK:            DefaultTopK,
			MaxContextChars: DefaultMaxContextChars,
		},
		Server: ServerSettings{
			Addr: DefaultServerAddr,
		},
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderMock,
		AIProviderOllama,
		AIProviderOpenAI,
	}
}

// AllLLMProviders returns providers that support LLM operations.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderMock,
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderAnthropic,
	}
}

// AllVectorBackends returns every supported vector backend.
func AllVectorBackends() []VectorBackend {
	return []VectorBackend{
		VectorBackendMemory,
		VectorBackendQdrant,
		VectorBackendPgvector,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderMock:   "hash",
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderMock:      "mock",
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		"hash": DefaultMockDimensions,
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}
