package mcp

import (
	"github.com/custodia-labs/ragdesk/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Search provides retrieval over the indexed chunks.
	Search driving.SearchService

	// Chat answers questions and records sessions.
	Chat driving.ChatService

	// Documents ingests and lists documents.
	Documents driving.DocumentService

	// Sessions reads stored conversations.
	Sessions driving.SessionService
}

// Validate ensures all required ports are set.
// Documents and Sessions are optional; their tools and resources are
// only registered when present.
func (p *Ports) Validate() error {
	if p.Search == nil {
		return ErrMissingSearchService
	}
	if p.Chat == nil {
		return ErrMissingChatService
	}
	return nil
}
