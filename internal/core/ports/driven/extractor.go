package driven

import (
	"context"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
)

// TextExtractor turns document bytes into ordered pages.
// Each extractor handles specific MIME types (e.g., PDF, Markdown).
type TextExtractor interface {
	// SupportedMIMETypes returns the MIME types this extractor handles.
	SupportedMIMETypes() []string

	// Priority returns the selection priority (higher = preferred).
	// Format-specific extractors should return 50-89.
	// Fallback extractors should return 1-9.
	Priority() int

	// Extract returns one page per physical page, in order.
	// Unreadable pages are empty strings; a fully unreadable document
	// returns domain.ErrExtractionFailed.
	Extract(ctx context.Context, content []byte) ([]domain.Page, error)
}

// ExtractorRegistry selects the appropriate extractor for a document.
type ExtractorRegistry interface {
	// Extract dispatches to the highest-priority extractor for mimeType.
	// It returns domain.ErrUnsupportedFormat when nothing handles the type.
	Extract(ctx context.Context, mimeType string, content []byte) ([]domain.Page, error)

	// Register adds an extractor to the registry.
	Register(extractor TextExtractor)

	// SupportedMIMETypes returns all MIME types that can be extracted.
	SupportedMIMETypes() []string
}
