// Package mcp provides an MCP (Model Context Protocol) server adapter for ragdesk.
// It lets AI assistants search the indexed documents, ask grounded questions
// and read stored conversations.
package mcp

import "errors"

var (
	// ErrMissingSearchService is returned when the search service is not provided.
	ErrMissingSearchService = errors.New("mcp: search service is required")

	// ErrMissingChatService is returned when the chat service is not provided.
	ErrMissingChatService = errors.New("mcp: chat service is required")
)
