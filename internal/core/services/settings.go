package services

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyEmbedProvider   = "embedding.provider"
	keyEmbedModel      = "embedding.model"
	keyEmbedBaseURL    = "embedding.base_url"
	keyEmbedAPIKey     = "embedding.api_key"
	keyEmbedDimensions = "embedding.dimensions"
	keyLLMProvider     = "llm.provider"
	keyLLMModel        = "llm.model"
	keyLLMBaseURL      = "llm.base_url"
	keyLLMAPIKey       = "llm.api_key"
	keyVectorBackend   = "vector.backend"
	keyQdrantURL       = "vector.qdrant_url"
	keyPgDSN           = "vector.pg_dsn"
	keyPgTable         = "vector.pg_table"
	keyChunkSize       = "chunking.size"
	keyChunkOverlap    = "chunking.overlap"
	keyPageOverlap     = "chunking.page_overlap"
	keyPageOverlapFrac = "chunking.page_overlap_fraction"
	keyTopK            = "retrieval.top_k"
	keyMaxContextChars = "retrieval.max_context_chars"
	keyServerAddr      = "server.addr"
)

const (
	defaultOllamaURL = "http://localhost:11434"
	envPrefix        = "RAGDESK_"

	errRequiresProvider = "%s requires an API key"
)

// envOverrides maps environment variables onto the keys they replace.
// Overridden values are read but never written back to the config file.
//
//nolint:gosec // G101: environment variable names, not credentials.
var envOverrides = map[string]string{
	keyLLMAPIKey:   envPrefix + "LLM_API_KEY",
	keyEmbedAPIKey: envPrefix + "EMBEDDING_API_KEY",
	keyQdrantURL:   envPrefix + "QDRANT_URL",
	keyPgDSN:       envPrefix + "PG_DSN",
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
	lookupEnv   func(string) (string, bool)
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
		lookupEnv:   os.LookupEnv,
	}
}

// SetEnvLookup replaces the environment source. Tests pass a map-backed lookup.
func (s *SettingsService) SetEnvLookup(lookup func(string) (string, bool)) {
	s.lookupEnv = lookup
}

// Get retrieves current application settings: defaults, then the config
// file, then environment overrides.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	d := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Embedding: domain.EmbeddingSettings{
			Provider:   s.getProvider(keyEmbedProvider, d.Embedding.Provider),
			Model:      s.getString(keyEmbedModel, d.Embedding.Model),
			BaseURL:    s.getString(keyEmbedBaseURL, ""), // empty is valid for cloud providers
			APIKey:     s.getString(keyEmbedAPIKey, ""),
			Dimensions: s.getInt(keyEmbedDimensions, 0),
		},
		LLM: domain.LLMSettings{
			Provider: s.getProvider(keyLLMProvider, d.LLM.Provider),
			Model:    s.getString(keyLLMModel, d.LLM.Model),
			BaseURL:  s.getString(keyLLMBaseURL, ""),
			APIKey:   s.getString(keyLLMAPIKey, ""),
		},
		Vector: domain.VectorSettings{
			Backend:   s.getBackend(d.Vector.Backend),
			QdrantURL: s.getString(keyQdrantURL, d.Vector.QdrantURL),
			PgDSN:     s.getString(keyPgDSN, ""),
			PgTable:   s.getString(keyPgTable, d.Vector.PgTable),
		},
		Chunking: domain.ChunkingSettings{
			Size:                s.getInt(keyChunkSize, d.Chunking.Size),
			Overlap:             s.getInt(keyChunkOverlap, d.Chunking.Overlap),
			PageOverlap:         s.getBool(keyPageOverlap, d.Chunking.PageOverlap),
			PageOverlapFraction: s.getFloat(keyPageOverlapFrac, d.Chunking.PageOverlapFraction),
		},
		Retrieval: domain.RetrievalSettings{
			TopK:            s.getInt(keyTopK, d.Retrieval.TopK),
			MaxContextChars: s.getInt(keyMaxContextChars, d.Retrieval.MaxContextChars),
		},
		Server: domain.ServerSettings{
			Addr: s.getString(keyServerAddr, d.Server.Addr),
		},
	}
	if settings.Embedding.Dimensions == 0 && settings.Embedding.Provider == domain.AIProviderMock {
		settings.Embedding.Dimensions = d.Embedding.Dimensions
	}

	return settings, nil
}

// Save persists application settings.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := []struct {
		key   string
		value any
	}{
		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyEmbedAPIKey, settings.Embedding.APIKey},
		{keyEmbedDimensions, settings.Embedding.Dimensions},
		{keyLLMProvider, settings.LLM.Provider.String()},
		{keyLLMModel, settings.LLM.Model},
		{keyLLMBaseURL, settings.LLM.BaseURL},
		{keyLLMAPIKey, settings.LLM.APIKey},
		{keyVectorBackend, settings.Vector.Backend.String()},
		{keyQdrantURL, settings.Vector.QdrantURL},
		{keyPgDSN, settings.Vector.PgDSN},
		{keyPgTable, settings.Vector.PgTable},
		{keyChunkSize, settings.Chunking.Size},
		{keyChunkOverlap, settings.Chunking.Overlap},
		{keyPageOverlap, settings.Chunking.PageOverlap},
		{keyPageOverlapFrac, settings.Chunking.PageOverlapFraction},
		{keyTopK, settings.Retrieval.TopK},
		{keyMaxContextChars, settings.Retrieval.MaxContextChars},
		{keyServerAddr, settings.Server.Addr},
	}

	for _, v := range values {
		if s.fromEnv(v.key, v.value) {
			continue
		}
		// Empty secrets are left alone so a blank field never erases a stored key.
		if str, ok := v.value.(string); ok && str == "" && isSecret(v.key) {
			continue
		}
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}
	return nil
}

// SetValue parses raw according to the key's type and stores it.
// The resulting settings must still validate.
func (s *SettingsService) SetValue(key, raw string) error {
	settings, err := s.Get()
	if err != nil {
		return err
	}
	if err := applyValue(settings, key, strings.TrimSpace(raw)); err != nil {
		return err
	}
	if err := validate(settings); err != nil {
		return err
	}
	return s.Save(settings)
}

// Keys returns every settable key in display order.
func (s *SettingsService) Keys() []string {
	return slices.Clone(settingKeys)
}

var settingKeys = []string{
	keyLLMProvider, keyLLMModel, keyLLMBaseURL, keyLLMAPIKey,
	keyEmbedProvider, keyEmbedModel, keyEmbedBaseURL, keyEmbedAPIKey, keyEmbedDimensions,
	keyVectorBackend, keyQdrantURL, keyPgDSN, keyPgTable,
	keyChunkSize, keyChunkOverlap, keyPageOverlap, keyPageOverlapFrac,
	keyTopK, keyMaxContextChars,
	keyServerAddr,
}

func applyValue(settings *domain.AppSettings, key, raw string) error {
	var err error
	switch key {
	case keyLLMProvider:
		settings.LLM.Provider = domain.AIProvider(raw)
	case keyLLMModel:
		settings.LLM.Model = raw
	case keyLLMBaseURL:
		settings.LLM.BaseURL = raw
	case keyLLMAPIKey:
		settings.LLM.APIKey = raw
	case keyEmbedProvider:
		settings.Embedding.Provider = domain.AIProvider(raw)
	case keyEmbedModel:
		settings.Embedding.Model = raw
	case keyEmbedBaseURL:
		settings.Embedding.BaseURL = raw
	case keyEmbedAPIKey:
		settings.Embedding.APIKey = raw
	case keyEmbedDimensions:
		settings.Embedding.Dimensions, err = strconv.Atoi(raw)
	case keyVectorBackend:
		settings.Vector.Backend = domain.VectorBackend(raw)
	case keyQdrantURL:
		settings.Vector.QdrantURL = raw
	case keyPgDSN:
		settings.Vector.PgDSN = raw
	case keyPgTable:
		settings.Vector.PgTable = raw
	case keyChunkSize:
		settings.Chunking.Size, err = strconv.Atoi(raw)
	case keyChunkOverlap:
		settings.Chunking.Overlap, err = strconv.Atoi(raw)
	case keyPageOverlap:
		settings.Chunking.PageOverlap, err = strconv.ParseBool(raw)
	case keyPageOverlapFrac:
		settings.Chunking.PageOverlapFraction, err = strconv.ParseFloat(raw, 64)
	case keyTopK:
		settings.Retrieval.TopK, err = strconv.Atoi(raw)
	case keyMaxContextChars:
		settings.Retrieval.MaxContextChars, err = strconv.Atoi(raw)
	case keyServerAddr:
		settings.Server.Addr = raw
	default:
		return fmt.Errorf("unknown setting %q: %w", key, domain.ErrInvalidInput)
	}
	if err != nil {
		return fmt.Errorf("setting %s: %w: %w", key, domain.ErrInvalidInput, err)
	}
	return nil
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid embedding provider: %s", provider)
	}
	if !slices.Contains(domain.AllEmbeddingProviders(), provider) {
		return fmt.Errorf("provider %s does not support embeddings", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}
	if apiKey == "" {
		apiKey = settings.Embedding.APIKey
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf(errRequiresProvider, provider)
	}

	settings.Embedding.Provider = provider
	settings.Embedding.Model = modelOrDefault(model, domain.DefaultEmbeddingModels()[provider])
	settings.Embedding.BaseURL = baseURLFor(provider, settings.Embedding.BaseURL)
	settings.Embedding.APIKey = apiKey

	// A changed model invalidates any explicit size.
	settings.Embedding.Dimensions = domain.EmbeddingDimensions()[settings.Embedding.Model]

	return s.Save(settings)
}

// SetLLMProvider configures the LLM provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid LLM provider: %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}
	if apiKey == "" {
		apiKey = settings.LLM.APIKey
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf(errRequiresProvider, provider)
	}

	settings.LLM.Provider = provider
	settings.LLM.Model = modelOrDefault(model, domain.DefaultLLMModels()[provider])
	settings.LLM.BaseURL = baseURLFor(provider, settings.LLM.BaseURL)
	settings.LLM.APIKey = apiKey

	return s.Save(settings)
}

// SetVectorBackend selects the vector store.
func (s *SettingsService) SetVectorBackend(backend domain.VectorBackend) error {
	if !backend.IsValid() {
		return fmt.Errorf("invalid vector backend: %s", backend)
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	settings.Vector.Backend = backend
	return s.Save(settings)
}

// Validate checks that current settings are internally consistent.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return validate(settings)
}

func validate(settings *domain.AppSettings) error {
	if !settings.LLM.Provider.IsValid() {
		return fmt.Errorf("invalid LLM provider: %s", settings.LLM.Provider)
	}
	if !settings.LLM.IsConfigured() {
		return fmt.Errorf(errRequiresProvider, settings.LLM.Provider)
	}
	if !slices.Contains(domain.AllEmbeddingProviders(), settings.Embedding.Provider) {
		return fmt.Errorf("provider %s does not support embeddings", settings.Embedding.Provider)
	}
	if !settings.Embedding.IsConfigured() {
		return fmt.Errorf(errRequiresProvider, settings.Embedding.Provider)
	}
	if settings.Embedding.Dimensions < 0 {
		return fmt.Errorf("embedding dimensions %d: %w", settings.Embedding.Dimensions, domain.ErrInvalidInput)
	}

	switch settings.Vector.Backend {
	case domain.VectorBackendMemory:
	case domain.VectorBackendQdrant:
		if settings.Vector.QdrantURL == "" {
			return fmt.Errorf("qdrant backend requires %s", keyQdrantURL)
		}
	case domain.VectorBackendPgvector:
		if settings.Vector.PgDSN == "" {
			return fmt.Errorf("pgvector backend requires %s", keyPgDSN)
		}
	default:
		return fmt.Errorf("invalid vector backend: %s", settings.Vector.Backend)
	}

	c := settings.Chunking
	if c.Size <= 0 || c.Overlap <= 0 || c.Overlap >= c.Size {
		return fmt.Errorf("chunk size %d, overlap %d: %w", c.Size, c.Overlap, domain.ErrInvalidChunkConfig)
	}
	if c.PageOverlapFraction < 0 || c.PageOverlapFraction > 1 {
		return fmt.Errorf("page overlap fraction %v: %w", c.PageOverlapFraction, domain.ErrInvalidChunkConfig)
	}

	r := settings.Retrieval
	if r.TopK <= 0 {
		return fmt.Errorf("top_k %d: %w", r.TopK, domain.ErrInvalidInput)
	}
	if r.MaxContextChars <= 0 {
		return fmt.Errorf("max_context_chars %d: %w", r.MaxContextChars, domain.ErrInvalidInput)
	}
	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
func (s *SettingsService) ValidateLLMConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(&settings.LLM)
}

// Helper methods for reading config with defaults.

// env returns the override for key, if one is set.
func (s *SettingsService) env(key string) (string, bool) {
	name, ok := envOverrides[key]
	if !ok || s.lookupEnv == nil {
		return "", false
	}
	val, ok := s.lookupEnv(name)
	if !ok || val == "" {
		return "", false
	}
	return val, true
}

// fromEnv reports whether value is exactly what the environment supplied.
func (s *SettingsService) fromEnv(key string, value any) bool {
	envVal, ok := s.env(key)
	if !ok {
		return false
	}
	str, isString := value.(string)
	return isString && str == envVal
}

func (s *SettingsService) getString(key, defaultVal string) string {
	if val, ok := s.env(key); ok {
		return val
	}
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	provider := domain.AIProvider(s.configStore.GetString(key))
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) getBackend(defaultVal domain.VectorBackend) domain.VectorBackend {
	backend := domain.VectorBackend(s.configStore.GetString(keyVectorBackend))
	if !backend.IsValid() {
		return defaultVal
	}
	return backend
}

func modelOrDefault(model, defaultModel string) string {
	if model != "" {
		return model
	}
	return defaultModel
}

// baseURLFor keeps a custom endpoint for Ollama and clears it otherwise.
func baseURLFor(provider domain.AIProvider, current string) string {
	switch provider {
	case domain.AIProviderOllama:
		if current == "" {
			return defaultOllamaURL
		}
		return current
	default:
		return ""
	}
}

func isSecret(key string) bool {
	return key == keyLLMAPIKey || key == keyEmbedAPIKey || key == keyPgDSN
}
