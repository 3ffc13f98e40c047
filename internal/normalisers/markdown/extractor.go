// Package markdown extracts plain text from Markdown documents.
package markdown

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
	"github.com/custodia-labs/ragdesk/internal/normalisers"
)

// Ensure Extractor implements the interface.
var _ driven.TextExtractor = (*Extractor)(nil)

// Extractor handles Markdown documents.
type Extractor struct{}

// New creates a new Markdown extractor.
func New() *Extractor {
	return &Extractor{}
}

// SupportedMIMETypes returns the MIME types this extractor handles.
func (e *Extractor) SupportedMIMETypes() []string {
	return []string{"text/markdown", "text/x-markdown"}
}

// Priority returns the selection priority.
func (e *Extractor) Priority() int {
	return 50 // higher than plaintext
}

// Extract returns the document as a single page with formatting removed.
// Markdown has no physical pages.
func (e *Extractor) Extract(_ context.Context, content []byte) ([]domain.Page, error) {
	if !utf8.Valid(content) {
		return nil, domain.ErrUnsupportedFormat
	}
	return []domain.Page{{Index: 1, Text: normalisers.CleanText(stripMarkdown(string(content)))}}, nil
}

var (
	codeFence    = regexp.MustCompile("(?m)^\\s*(```|~~~)[^\\n]*$\\n?")
	inlineCode   = regexp.MustCompile("`([^`]+)`")
	images       = regexp.MustCompile(`!\[([^\]]*)\]\([^)]+\)`)
	links        = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	headings     = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	strong       = regexp.MustCompile(`(\*\*|__)(\S(?:.*?\S)?)(\*\*|__)`)
	emphasis     = regexp.MustCompile(`(^|[\s(])[*_](\S(?:[^*_\n]*\S)?)[*_]`)
	blockquote   = regexp.MustCompile(`(?m)^>\s?`)
	horizontal   = regexp.MustCompile(`(?m)^\s*([-*_]\s*){3,}$`)
	listMarker   = regexp.MustCompile(`(?m)^\s*[-*+]\s+`)
	numberedList = regexp.MustCompile(`(?m)^\s*\d+[.)]\s+`)
	tableRule    = regexp.MustCompile(`(?m)^\s*\|?\s*:?-{3,}:?\s*(\|\s*:?-{3,}:?\s*)*\|?\s*$`)
)

// stripMarkdown removes formatting while keeping everything a reader would
// search for, including the contents of code blocks and image alt text.
func stripMarkdown(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = codeFence.ReplaceAllString(content, "")
	content = inlineCode.ReplaceAllString(content, "$1")
	content = images.ReplaceAllString(content, "$1")
	content = links.ReplaceAllString(content, "$1")
	content = headings.ReplaceAllString(content, "")
	content = tableRule.ReplaceAllString(content, "")
	content = horizontal.ReplaceAllString(content, "")
	content = strong.ReplaceAllString(content, "$2")
	content = emphasis.ReplaceAllString(content, "$1$2")
	content = blockquote.ReplaceAllString(content, "")
	content = listMarker.ReplaceAllString(content, "")
	content = numberedList.ReplaceAllString(content, "")
	return content
}
