// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/ragdesk/internal/core/domain"
)

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewMenu is the main navigation menu.
	ViewMenu ViewType = iota
	// ViewChat is the conversation view.
	ViewChat
	// ViewSessions lists stored conversations.
	ViewSessions
	// ViewDocuments lists indexed documents.
	ViewDocuments
	// ViewHelp is the help/keybindings view.
	ViewHelp
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewMenu:
		return "menu"
	case ViewChat:
		return "chat"
	case ViewSessions:
		return "sessions"
	case ViewDocuments:
		return "documents"
	case ViewHelp:
		return "help"
	default:
		return "unknown"
	}
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}

// FragmentReceived carries one piece of a streamed answer.
type FragmentReceived struct {
	Text string
}

// AnswerCompleted ends a streamed answer. Answer may be set alongside an
// Err wrapping domain.ErrPersistenceFailed.
type AnswerCompleted struct {
	Answer *domain.Answer
	Err    error
}

// SessionsLoaded carries the owner's session summaries.
type SessionsLoaded struct {
	Sessions []domain.SessionSummary
	Err      error
}

// SessionSelected asks the chat view to resume a session.
type SessionSelected struct {
	ID string
}

// SessionLoaded carries a session with its history.
type SessionLoaded struct {
	Session *domain.Session
	Err     error
}

// SessionDeleted signals a session was removed.
type SessionDeleted struct {
	ID  string
	Err error
}

// DocumentsLoaded carries the owner's documents.
type DocumentsLoaded struct {
	Documents []domain.Document
	Err       error
}

// DocumentDeleted signals a document was removed.
type DocumentDeleted struct {
	ID  string
	Err error
}
