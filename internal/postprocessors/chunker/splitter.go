// Package chunker splits page text into bounded, overlapping chunks.
//
// Splitting is recursive over a list of separators ordered from most to
// least structural. A piece that still exceeds the chunk size is split again
// with the next separator, so words are only broken when nothing coarser
// fits. Lengths are counted in runes.
package chunker

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = domain.DefaultChunkSize

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = domain.DefaultChunkOverlap

// DefaultSeparators are tried in order: paragraph, line, full-width period,
// period, space, then individual characters.
var DefaultSeparators = []string{"\n\n", "\n", "。", ".", " ", ""}

// Splitter is a recursive character text splitter.
// A Splitter is immutable and safe for concurrent use.
type Splitter struct {
	chunkSize  int
	overlap    int
	separators []string
}

// Option configures the splitter.
type Option func(*Splitter)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(s *Splitter) {
		s.chunkSize = size
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(s *Splitter) {
		s.overlap = overlap
	}
}

// WithSeparators replaces the separator list. The last entry should be ""
// so that any text can be reduced to single characters.
func WithSeparators(separators []string) Option {
	return func(s *Splitter) {
		if len(separators) > 0 {
			s.separators = append([]string(nil), separators...)
		}
	}
}

// New creates a splitter. Both size and overlap must be positive and the
// overlap must be smaller than the size.
func New(opts ...Option) (*Splitter, error) {
	s := &Splitter{
		chunkSize:  DefaultChunkSize,
		overlap:    DefaultChunkOverlap,
		separators: DefaultSeparators,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.chunkSize <= 0 || s.overlap <= 0 || s.overlap >= s.chunkSize {
		return nil, fmt.Errorf("chunk size %d, overlap %d: %w", s.chunkSize, s.overlap, domain.ErrInvalidChunkConfig)
	}

	return s, nil
}

// ChunkSize returns the configured chunk size.
func (s *Splitter) ChunkSize() int { return s.chunkSize }

// Overlap returns the configured overlap.
func (s *Splitter) Overlap() int { return s.overlap }

// Split breaks text into chunks of at most ChunkSize characters.
// Chunks are trimmed and never empty.
func (s *Splitter) Split(text string) []string {
	return s.split(text, s.separators)
}

// ChunkPages splits every non-empty page and attaches provenance metadata.
func (s *Splitter) ChunkPages(pages []domain.Page, filename, category string) []domain.Chunk {
	var chunks []domain.Chunk
	for _, page := range pages {
		if strings.TrimSpace(page.Text) == "" {
			continue
		}
		for _, text := range s.Split(page.Text) {
			chunks = append(chunks, domain.Chunk{
				Text: text,
				Metadata: domain.ChunkMetadata{
					Filename: filename,
					Page:     page.Index,
					Category: category,
				},
			})
		}
	}
	return chunks
}

func (s *Splitter) split(text string, separators []string) []string {
	var final []string

	// Pick the first separator present in the text.
	separator := separators[len(separators)-1]
	var rest []string
	for i, sep := range separators {
		if sep == "" {
			separator = sep
			break
		}
		if strings.Contains(text, sep) {
			separator = sep
			rest = separators[i+1:]
			break
		}
	}

	var good []string
	for _, piece := range splitKeepingSeparator(text, separator) {
		if runeLen(piece) < s.chunkSize {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			final = append(final, s.merge(good)...)
			good = nil
		}
		if len(rest) == 0 {
			// Nothing finer to try.
			final = append(final, piece)
		} else {
			final = append(final, s.split(piece, rest)...)
		}
	}
	if len(good) > 0 {
		final = append(final, s.merge(good)...)
	}

	return final
}

// merge packs small pieces into chunks, carrying trailing pieces forward
// while they fit inside the overlap.
func (s *Splitter) merge(pieces []string) []string {
	var (
		docs    []string
		current []string
		total   int
	)

	for _, piece := range pieces {
		n := runeLen(piece)
		if total+n > s.chunkSize && len(current) > 0 {
			if doc := joinPieces(current); doc != "" {
				docs = append(docs, doc)
			}
			for total > s.overlap || (total+n > s.chunkSize && total > 0) {
				total -= runeLen(current[0])
				current = current[1:]
			}
		}
		current = append(current, piece)
		total += n
	}

	if doc := joinPieces(current); doc != "" {
		docs = append(docs, doc)
	}
	return docs
}

// splitKeepingSeparator splits text on sep and keeps each separator at the
// start of the piece that follows it. An empty sep splits into characters.
func splitKeepingSeparator(text, sep string) []string {
	var pieces []string
	if sep == "" {
		for _, r := range text {
			pieces = append(pieces, string(r))
		}
		return pieces
	}

	parts := strings.Split(text, sep)
	if parts[0] != "" {
		pieces = append(pieces, parts[0])
	}
	for _, p := range parts[1:] {
		pieces = append(pieces, sep+p)
	}
	return pieces
}

func joinPieces(pieces []string) string {
	return strings.TrimSpace(strings.Join(pieces, ""))
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
