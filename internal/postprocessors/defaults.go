// Package postprocessors builds the chunking stage of the ingestion pipeline
// from stored settings.
package postprocessors

import (
	"fmt"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/services"
	"github.com/custodia-labs/ragdesk/internal/postprocessors/chunker"
)

// NewChunker creates a splitter from chunking settings.
// Zero values fall back to the splitter's own defaults.
func NewChunker(cfg domain.ChunkingSettings) (*chunker.Splitter, error) {
	var opts []chunker.Option
	if cfg.Size > 0 {
		opts = append(opts, chunker.WithChunkSize(cfg.Size))
	}
	if cfg.Overlap > 0 {
		opts = append(opts, chunker.WithOverlap(cfg.Overlap))
	}

	splitter, err := chunker.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("chunker: %w", err)
	}
	return splitter, nil
}

// DocumentOptions returns the document service options implied by cfg.
func DocumentOptions(cfg domain.ChunkingSettings) []services.DocumentOption {
	var opts []services.DocumentOption
	if cfg.PageOverlap {
		fraction := cfg.PageOverlapFraction
		if fraction <= 0 {
			fraction = domain.DefaultPageOverlapFraction
		}
		opts = append(opts, services.WithPageOverlap(fraction))
	}
	return opts
}
