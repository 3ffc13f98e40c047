// Package normalisers provides text extractors for the document formats
// ragdesk can ingest, plus the registry that picks one per MIME type.
// Every extractor turns raw bytes into ordered pages of cleaned text.
//
// Extractors are registered with the Registry at startup.
package normalisers
