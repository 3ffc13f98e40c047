// Package plaintext extracts text from plain text and source files.
package plaintext

import (
	"bytes"
	"context"
	"unicode/utf8"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
	"github.com/custodia-labs/ragdesk/internal/normalisers"
)

// Ensure Extractor implements the interface.
var _ driven.TextExtractor = (*Extractor)(nil)

// utf8BOM is stripped from the start of the content.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Extractor handles plain text documents.
type Extractor struct{}

// New creates a new plain text extractor.
func New() *Extractor {
	return &Extractor{}
}

// SupportedMIMETypes returns the MIME types this extractor handles.
func (e *Extractor) SupportedMIMETypes() []string {
	return []string{
		"text/plain",
		"text/x-go",
		"text/x-python",
		"text/x-rust",
		"text/x-java",
		"text/x-c",
		"text/x-shellscript",
		"text/x-sql",
		"text/csv",
		"text/yaml",
		"text/toml",
		"text/javascript",
		"application/json",
		"application/xml",
	}
}

// Priority returns the selection priority.
func (e *Extractor) Priority() int {
	return 5 // fallback
}

// Extract returns the whole file as one page. Content must be valid UTF-8.
func (e *Extractor) Extract(_ context.Context, content []byte) ([]domain.Page, error) {
	content = bytes.TrimPrefix(content, utf8BOM)
	if !utf8.Valid(content) {
		return nil, domain.ErrUnsupportedFormat
	}
	return []domain.Page{{Index: 1, Text: normalisers.CleanText(string(content))}}, nil
}
