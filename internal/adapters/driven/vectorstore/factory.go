// Package vectorstore selects and constructs the configured vector backend.
package vectorstore

import (
	"context"
	"time"

	"github.com/custodia-labs/ragdesk/internal/adapters/driven/vectorstore/memory"
	"github.com/custodia-labs/ragdesk/internal/adapters/driven/vectorstore/pgvector"
	"github.com/custodia-labs/ragdesk/internal/adapters/driven/vectorstore/qdrant"
	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
	"github.com/custodia-labs/ragdesk/internal/logger"
	"github.com/custodia-labs/ragdesk/internal/metrics"
)

// connectTimeout bounds the reachability check of a remote backend.
const connectTimeout = 5 * time.Second

// New returns the configured backend.
//
// When a remote backend cannot be reached the in-memory backend is returned
// instead and degraded is true. Data written in degraded mode is lost on exit.
func New(ctx context.Context, cfg domain.VectorSettings, m *metrics.Metrics) (backend driven.VectorBackend, degraded bool) {
	backend, degraded = build(ctx, cfg)
	m.SetDegraded(degraded)
	return backend, degraded
}

func build(ctx context.Context, cfg domain.VectorSettings) (driven.VectorBackend, bool) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	switch cfg.Backend {
	case domain.VectorBackendMemory, "":
		return memory.New(), false

	case domain.VectorBackendQdrant:
		url := cfg.QdrantURL
		if url == "" {
			url = domain.DefaultQdrantURL
		}
		store := qdrant.New(qdrant.Config{URL: url})
		if err := store.Ping(ctx); err != nil {
			logger.Warn("qdrant at %s unreachable, using in-memory vector index: %v", url, err)
			return memory.New(), true
		}
		logger.Debug("vector backend: qdrant at %s", url)
		return store, false

	case domain.VectorBackendPgvector:
		store, err := pgvector.New(ctx, pgvector.Config{DSN: cfg.PgDSN, Table: cfg.PgTable})
		if err != nil {
			logger.Warn("pgvector unreachable, using in-memory vector index: %v", err)
			return memory.New(), true
		}
		logger.Debug("vector backend: pgvector table %s", cfg.PgTable)
		return store, false

	default:
		logger.Warn("unknown vector backend %q, using in-memory vector index", cfg.Backend)
		return memory.New(), true
	}
}
