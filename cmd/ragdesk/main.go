// Command ragdesk indexes documents and answers questions about them.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/custodia-labs/ragdesk/internal/adapters/driven/ai"
	"github.com/custodia-labs/ragdesk/internal/adapters/driven/config/file"
	"github.com/custodia-labs/ragdesk/internal/adapters/driven/storage/files"
	"github.com/custodia-labs/ragdesk/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/ragdesk/internal/adapters/driving/cli"
	"github.com/custodia-labs/ragdesk/internal/core/services"
	"github.com/custodia-labs/ragdesk/internal/logger"
	"github.com/custodia-labs/ragdesk/internal/metrics"
	"github.com/custodia-labs/ragdesk/internal/normalisers"
	"github.com/custodia-labs/ragdesk/internal/normalisers/markdown"
	"github.com/custodia-labs/ragdesk/internal/normalisers/pdf"
	"github.com/custodia-labs/ragdesk/internal/normalisers/plaintext"
	"github.com/custodia-labs/ragdesk/internal/postprocessors"
)

// Set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	_ = godotenv.Load()

	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run() error {
	dataDir, err := resolveDataDir()
	if err != nil {
		return err
	}

	configStore, err := file.NewConfigStore(dataDir)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	settings := services.NewSettingsService(configStore, ai.NewConfigValidator())

	cli.SetVersion(version)
	cli.SetSettingsService(settings)
	cli.SetBootstrap(func(ctx context.Context) (cli.Services, func(), error) {
		return bootstrap(ctx, dataDir, settings)
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return cli.Execute(ctx)
}

// resolveDataDir returns RAGDESK_DATA_DIR, or ~/.ragdesk when unset.
func resolveDataDir() (string, error) {
	if dir := os.Getenv("RAGDESK_DATA_DIR"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".ragdesk"), nil
}

// bootstrap wires the document pipeline from the stored settings.
func bootstrap(ctx context.Context, dataDir string, settings *services.SettingsService) (cli.Services, func(), error) {
	cfg, err := settings.Get()
	if err != nil {
		return cli.Services{}, nil, fmt.Errorf("load settings: %w", err)
	}

	m := metrics.New(prometheus.NewRegistry())

	aiResult, err := ai.Initialise(ctx, *cfg, m)
	if err != nil {
		return cli.Services{}, nil, err
	}
	if aiResult.Degraded {
		logger.Warn("vector backend %s unavailable, indexed data will not survive this run", cfg.Vector.Backend)
	}

	store, err := sqlite.NewStore(filepath.Join(dataDir, "data"))
	if err != nil {
		aiResult.Close()
		return cli.Services{}, nil, fmt.Errorf("open metadata store: %w", err)
	}
	release := func() {
		aiResult.Close()
		if err := store.Close(); err != nil {
			logger.Warn("close metadata store: %v", err)
		}
	}

	fileStore, err := files.NewStore(filepath.Join(dataDir, "files"))
	if err != nil {
		release()
		return cli.Services{}, nil, fmt.Errorf("open file store: %w", err)
	}

	splitter, err := postprocessors.NewChunker(cfg.Chunking)
	if err != nil {
		release()
		return cli.Services{}, nil, err
	}

	prompts, err := file.NewPromptStore(filepath.Join(dataDir, "prompts"))
	if err != nil {
		release()
		return cli.Services{}, nil, fmt.Errorf("open prompts: %w", err)
	}

	extractors := normalisers.NewRegistry(plaintext.New(), markdown.New(), pdf.New())
	index := services.NewVectorIndex(aiResult.VectorBackend, aiResult.EmbeddingService)
	search := services.NewSearchService(index, cfg.Retrieval, m)
	documents := services.NewDocumentService(
		store.DocumentStore(), fileStore, extractors, index, splitter, m,
		postprocessors.DocumentOptions(cfg.Chunking)...,
	)

	return cli.Services{
		Documents: documents,
		Search:    search,
		Chat:      services.NewChatService(store.SessionStore(), search, aiResult.LLMService, prompts, m),
		Sessions:  services.NewSessionService(store.SessionStore()),
		Settings:  settings,
		Metrics:   m,
	}, release, nil
}
