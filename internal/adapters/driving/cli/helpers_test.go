package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragdesk/internal/adapters/driven/ai"
	"github.com/custodia-labs/ragdesk/internal/adapters/driven/config/file"
	"github.com/custodia-labs/ragdesk/internal/adapters/driven/embedding/hash"
	"github.com/custodia-labs/ragdesk/internal/adapters/driven/llm/mock"
	"github.com/custodia-labs/ragdesk/internal/adapters/driven/storage/memory"
	vecmemory "github.com/custodia-labs/ragdesk/internal/adapters/driven/vectorstore/memory"
	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/services"
	"github.com/custodia-labs/ragdesk/internal/metrics"
	"github.com/custodia-labs/ragdesk/internal/normalisers"
	"github.com/custodia-labs/ragdesk/internal/normalisers/markdown"
	"github.com/custodia-labs/ragdesk/internal/normalisers/plaintext"
	"github.com/custodia-labs/ragdesk/internal/postprocessors/chunker"
)

// setupTestServices installs an in-memory pipeline with the mock LLM and
// restores the previous services when the test ends.
func setupTestServices(t *testing.T) Services {
	t.Helper()

	prev := Services{
		Documents: documentService,
		Search:    searchService,
		Chat:      chatService,
		Sessions:  sessionService,
		Settings:  settingsService,
		Metrics:   appMetrics,
	}
	prevSettings := settingsService

	m := metrics.New(prometheus.NewRegistry())
	index := services.NewVectorIndex(vecmemory.New(), hash.NewEmbeddingService(64))
	search := services.NewSearchService(index, domain.RetrievalSettings{}, m)

	splitter, err := chunker.New(chunker.WithChunkSize(200), chunker.WithOverlap(20))
	require.NoError(t, err)
	extractors := normalisers.NewRegistry(plaintext.New(), markdown.New())
	docs := services.NewDocumentService(
		memory.NewDocumentStore(), memory.NewFileStore(), extractors, index, splitter, m,
	)

	prompts, err := file.NewPromptStore(t.TempDir())
	require.NoError(t, err)
	store := memory.NewSessionStore()

	svc := Services{
		Documents: docs,
		Search:    search,
		Chat:      services.NewChatService(store, search, mock.NewLLMService(), prompts, m),
		Sessions:  services.NewSessionService(store),
		Settings:  services.NewSettingsService(memory.NewConfigStore(), ai.NewConfigValidator()),
		Metrics:   m,
	}
	SetServices(svc)

	t.Cleanup(func() {
		SetServices(prev)
		settingsService = prevSettings
	})
	return svc
}

// clearServices removes every service for the duration of the test.
func clearServices(t *testing.T) {
	t.Helper()
	prev := Services{
		Documents: documentService,
		Search:    searchService,
		Chat:      chatService,
		Sessions:  sessionService,
		Metrics:   appMetrics,
	}
	prevSettings := settingsService

	SetServices(Services{})
	settingsService = nil

	t.Cleanup(func() {
		SetServices(prev)
		settingsService = prevSettings
	})
}

// execute runs the root command with args and returns its combined output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return executeContext(t, context.Background(), args...)
}

// executeContext runs the root command under ctx. Flags are reset
// afterwards so values do not leak between tests.
func executeContext(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()

	resetFlags(rootCmd)
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		resetFlags(rootCmd)
	})

	err := rootCmd.ExecuteContext(ctx)
	return buf.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if !f.Changed {
			return
		}
		if _, isSlice := f.Value.(pflag.SliceValue); !isSlice {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}
