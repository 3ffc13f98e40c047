// Package tui provides an interactive terminal chat for ragdesk.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/ragdesk/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the TUI.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Chat answers questions with streamed output.
	Chat driving.ChatService

	// Sessions lists, loads and deletes stored conversations.
	Sessions driving.SessionService

	// Documents lists and removes indexed documents. Optional.
	Documents driving.DocumentService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Chat == nil {
		return ErrMissingChatService
	}
	if p.Sessions == nil {
		return ErrMissingSessionService
	}
	return nil
}
