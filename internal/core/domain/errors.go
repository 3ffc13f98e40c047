package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// Ingestion Errors.

	// ErrUnsupportedFormat indicates the document bytes are not a supported format.
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrExtractionFailed indicates no page of the document could be read.
	ErrExtractionFailed = errors.New("text extraction failed")

	// ErrInvalidChunkConfig indicates a chunk size/overlap combination that cannot work.
	ErrInvalidChunkConfig = errors.New("invalid chunk configuration")

	// Vector Index Errors.

	// ErrDimensionMismatch indicates a collection exists with a different vector size.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrCollectionNotFound indicates the collection was never created.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrVectorIndexUnavailable indicates the vector backend could not be reached.
	ErrVectorIndexUnavailable = errors.New("vector index unavailable")

	// AI Errors.

	// ErrLLMUnavailable indicates the LLM service is not configured or unreachable.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured or unreachable.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrRateLimited indicates a provider rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// Conversation Errors.

	// ErrPersistenceFailed indicates an answer was produced but could not be saved.
	ErrPersistenceFailed = errors.New("persistence failed")
)
