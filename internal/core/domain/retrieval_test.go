package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourcesFromHits(t *testing.T) {
	hits := []SearchHit{
		{Text: "a", Score: 0.9, Metadata: map[string]any{"filename": "a.pdf", "page": 1}},
		{Text: "b", Score: 0.5, Metadata: map[string]any{"filename": "b.pdf"}},
		{Text: "c", Score: 0.1, Metadata: nil},
	}

	sources := SourcesFromHits(hits)

	require.Len(t, sources, 3)
	require.NotNil(t, sources[0].Filename)
	require.NotNil(t, sources[0].Page)
	assert.Equal(t, "a.pdf", *sources[0].Filename)
	assert.Equal(t, 1, *sources[0].Page)
	assert.Equal(t, 0.9, sources[0].Score)

	require.NotNil(t, sources[1].Filename)
	assert.Nil(t, sources[1].Page)

	assert.Nil(t, sources[2].Filename)
	assert.Nil(t, sources[2].Page)
	assert.Equal(t, 0.1, sources[2].Score)
}

func TestSourcesFromHits_EmptyIsNotNil(t *testing.T) {
	sources := SourcesFromHits(nil)
	assert.NotNil(t, sources)
	assert.Empty(t, sources)
}
