package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestErrors_Existence tests that all error variables exist and are not nil
func TestErrors_Existence(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrNotFound", ErrNotFound},
		{"ErrAlreadyExists", ErrAlreadyExists},
		{"ErrInvalidInput", ErrInvalidInput},
		{"ErrUnsupportedFormat", ErrUnsupportedFormat},
		{"ErrExtractionFailed", ErrExtractionFailed},
		{"ErrInvalidChunkConfig", ErrInvalidChunkConfig},
		{"ErrDimensionMismatch", ErrDimensionMismatch},
		{"ErrCollectionNotFound", ErrCollectionNotFound},
		{"ErrVectorIndexUnavailable", ErrVectorIndexUnavailable},
		{"ErrLLMUnavailable", ErrLLMUnavailable},
		{"ErrEmbeddingUnavailable", ErrEmbeddingUnavailable},
		{"ErrRateLimited", ErrRateLimited},
		{"ErrPersistenceFailed", ErrPersistenceFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestErrors_Distinct(t *testing.T) {
	all := []error{
		ErrNotFound, ErrAlreadyExists, ErrInvalidInput, ErrUnsupportedFormat,
		ErrExtractionFailed, ErrInvalidChunkConfig, ErrDimensionMismatch,
		ErrCollectionNotFound, ErrVectorIndexUnavailable, ErrLLMUnavailable,
		ErrEmbeddingUnavailable, ErrRateLimited, ErrPersistenceFailed,
	}
	for i := range all {
		for j := range all {
			if i != j {
				assert.False(t, errors.Is(all[i], all[j]), "%v should not match %v", all[i], all[j])
			}
		}
	}
}

func TestErrors_Wrapped(t *testing.T) {
	wrapped := fmt.Errorf("append session s-1: %w", ErrPersistenceFailed)

	assert.ErrorIs(t, wrapped, ErrPersistenceFailed)
	assert.NotErrorIs(t, wrapped, ErrLLMUnavailable)
	assert.Contains(t, wrapped.Error(), "persistence failed")
}
