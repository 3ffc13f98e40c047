package chunker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
)

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"Hello", ",", "world", "!", "123"}, Tokenize("Hello, world! 123"))
	assert.Equal(t, []string{"snake_case", "x"}, Tokenize("  snake_case x "))
	assert.Empty(t, Tokenize("   "))
}

func TestPageOverlap(t *testing.T) {
	pages := []domain.Page{
		{Index: 1, Text: "Alpha Beta Gamma"},
		{Index: 2, Text: "Delta Epsilon"},
	}

	out, err := PageOverlap(pages, 0.5)

	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "Alpha Beta Gamma\nDelta", out[0].Text)
	assert.Equal(t, "Delta Epsilon", out[1].Text)
	assert.Equal(t, 1, out[0].Index)
	assert.Equal(t, 2, out[1].Index)
}

func TestPageOverlap_DoesNotMutateInput(t *testing.T) {
	pages := []domain.Page{{Index: 1, Text: "a"}, {Index: 2, Text: "b c"}}

	_, err := PageOverlap(pages, 1)

	require.NoError(t, err)
	assert.Equal(t, "a", pages[0].Text)
}

func TestPageOverlap_Fractions(t *testing.T) {
	pages := []domain.Page{
		{Index: 1, Text: "start"},
		{Index: 2, Text: "one two three"},
	}

	tests := []struct {
		fraction float64
		expected string
	}{
		{0, "start"},
		{0.1, "start"},          // 0.3 rounds to 0
		{0.5, "start\none two"}, // 1.5 rounds half to even: 2
		{1, "start\none two three"},
	}

	for _, tt := range tests {
		out, err := PageOverlap(pages, tt.fraction)
		require.NoError(t, err)
		assert.Equal(t, tt.expected, out[0].Text, "fraction %v", tt.fraction)
	}
}

func TestPageOverlap_Monotonic(t *testing.T) {
	pages := []domain.Page{
		{Index: 1, Text: "first page"},
		{Index: 2, Text: "The second page, with punctuation; and 42 numbers."},
	}

	prev := -1
	for f := 0.0; f <= 1.0; f += 0.05 {
		out, err := PageOverlap(pages, f)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, len(out[0].Text), prev)
		prev = len(out[0].Text)
	}
}

func TestPageOverlap_EmptyPages(t *testing.T) {
	pages := []domain.Page{
		{Index: 1, Text: ""},
		{Index: 2, Text: "next"},
		{Index: 3, Text: ""},
	}

	out, err := PageOverlap(pages, 1)

	require.NoError(t, err)
	assert.Equal(t, "next", out[0].Text)
	assert.Equal(t, "next", out[1].Text)
	assert.Equal(t, "", out[2].Text)
}

func TestPageOverlap_InvalidFraction(t *testing.T) {
	for _, f := range []float64{-0.1, 1.5} {
		_, err := PageOverlap([]domain.Page{{Index: 1, Text: "x"}}, f)
		assert.ErrorIs(t, err, domain.ErrInvalidChunkConfig)
	}
}

func TestPageOverlap_SinglePage(t *testing.T) {
	out, err := PageOverlap([]domain.Page{{Index: 1, Text: "  only  "}}, 0.5)
	require.NoError(t, err)
	assert.Equal(t, "only", out[0].Text)
}
