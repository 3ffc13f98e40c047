package driving

import (
	"context"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
)

// ChatRequest is one incoming question.
type ChatRequest struct {
	// OwnerID scopes session resolution and retrieval.
	OwnerID string

	// SessionID continues an existing session. Empty starts a new one.
	SessionID string

	// Question is the user's message.
	Question string

	// Category restricts retrieval to chunks with this category.
	Category string

	// IncludePublic also retrieves from the shared collection.
	IncludePublic bool

	// TopK overrides the configured hit count when positive.
	TopK int
}

// ChatService answers questions and records the conversation.
type ChatService interface {
	// Ask answers in one piece and persists the exchange.
	// If only persistence fails, the answer is returned alongside an error
	// wrapping domain.ErrPersistenceFailed.
	Ask(ctx context.Context, req ChatRequest) (*domain.Answer, error)

	// AskStream calls emit with each fragment as it is produced and persists
	// the exchange only after the last one. If emit returns an error the
	// stream is abandoned and nothing is persisted.
	AskStream(ctx context.Context, req ChatRequest, emit func(fragment string) error) (*domain.Answer, error)
}

// SessionService manages stored conversations.
type SessionService interface {
	// List returns the owner's sessions, most recently updated first.
	List(ctx context.Context, ownerID string) ([]domain.SessionSummary, error)

	// Get returns one session with its history.
	Get(ctx context.Context, ownerID, sessionID string) (*domain.Session, error)

	// Rename changes the session title.
	Rename(ctx context.Context, ownerID, sessionID, title string) error

	// Delete removes the session.
	Delete(ctx context.Context, ownerID, sessionID string) error
}
