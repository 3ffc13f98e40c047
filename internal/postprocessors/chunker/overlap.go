package chunker

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
)

// DefaultPageOverlapFraction is the share of the next page carried back.
const DefaultPageOverlapFraction = domain.DefaultPageOverlapFraction

// tokenPattern approximates a subword tokenizer: a run of letters, digits
// or underscores is one token, and every other non-space rune is its own token.
var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]+|[^\s\p{L}\p{N}_]`)

// Tokenize returns the tokens PageOverlap counts.
func Tokenize(text string) []string {
	return tokenPattern.FindAllString(text, -1)
}

// PageOverlap appends the leading fraction of each following page's tokens
// to every page except the last. The token count is
// round(fraction * tokens(next)), rounding half to even, and the appended
// text is the next page's original text up to the end of that token.
// Pages are trimmed afterwards; indexes are preserved.
func PageOverlap(pages []domain.Page, fraction float64) ([]domain.Page, error) {
	if fraction < 0 || fraction > 1 || math.IsNaN(fraction) {
		return nil, fmt.Errorf("page overlap fraction %v: %w", fraction, domain.ErrInvalidChunkConfig)
	}

	out := make([]domain.Page, len(pages))
	for i, page := range pages {
		text := page.Text
		if i < len(pages)-1 {
			if head := leadingTokens(pages[i+1].Text, fraction); head != "" {
				text = joinOverlap(text, head)
			}
		}
		out[i] = domain.Page{Index: page.Index, Text: strings.TrimSpace(text)}
	}
	return out, nil
}

func leadingTokens(text string, fraction float64) string {
	spans := tokenPattern.FindAllStringIndex(text, -1)
	n := int(math.RoundToEven(float64(len(spans)) * fraction))
	if n <= 0 {
		return ""
	}
	return text[:spans[n-1][1]]
}

// joinOverlap keeps the carried text from fusing with the last word of the page.
func joinOverlap(page, head string) string {
	if page == "" {
		return head
	}
	return page + "\n" + head
}
