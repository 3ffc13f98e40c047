// Package domain defines the core business entities for ragdesk.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Page: One page of text produced by an extractor
//   - Chunk: A bounded slice of page text with provenance metadata
//   - IndexedPoint / SearchHit: Vector index records and query results
//   - Document: An uploaded file and its ingestion status
//   - Session: A persisted question/answer conversation
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
