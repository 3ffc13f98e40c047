// Package hash provides an offline embedding service using feature hashing.
//
// Each lower-cased word and word bigram is hashed into a signed bucket, and
// the vector is L2-normalised. Texts sharing vocabulary score high under
// cosine similarity, which is enough for tests and offline demos.
package hash

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// ModelName is reported by every hash embedder.
const ModelName = "hash"

// EmbeddingService embeds text deterministically without a model.
type EmbeddingService struct {
	dimensions int
}

// NewEmbeddingService creates a hash embedder. Non-positive dimensions use the default.
func NewEmbeddingService(dimensions int) *EmbeddingService {
	if dimensions <= 0 {
		dimensions = domain.DefaultMockDimensions
	}
	return &EmbeddingService{dimensions: dimensions}
}

// Embed hashes text into a unit vector.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vec := make([]float64, s.dimensions)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	for i, w := range words {
		s.add(vec, w, 1)
		if i > 0 {
			s.add(vec, words[i-1]+" "+w, 0.5)
		}
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	out := make([]float32, s.dimensions)
	if norm == 0 {
		return out, nil
	}
	norm = math.Sqrt(norm)
	for i, v := range vec {
		out[i] = float32(v / norm)
	}
	return out, nil
}

func (s *EmbeddingService) add(vec []float64, feature string, weight float64) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum64()
	idx := int(sum % uint64(s.dimensions))
	if sum>>63 == 1 {
		weight = -weight
	}
	vec[idx] += weight
}

// EmbedBatch embeds each text in order.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := s.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int { return s.dimensions }

// ModelName returns "hash".
func (s *EmbeddingService) ModelName() string { return ModelName }

// Ping always succeeds.
func (s *EmbeddingService) Ping(_ context.Context) error { return nil }

// Close is a no-op.
func (s *EmbeddingService) Close() error { return nil }
