package driven

import (
	"context"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
)

// SessionStore persists conversations.
// Every lookup is scoped to an owner; a session owned by someone else
// is indistinguishable from one that does not exist.
type SessionStore interface {
	// CreateSession stores a new session with its initial messages.
	CreateSession(ctx context.Context, session *domain.Session) error

	// GetSession returns the owner's session.
	// Returns domain.ErrNotFound if it does not exist or belongs to another owner.
	GetSession(ctx context.Context, ownerID, id string) (*domain.Session, error)

	// AppendMessages appends messages and bumps updated_at atomically.
	AppendMessages(ctx context.Context, ownerID, id string, messages []domain.Message) error

	// ListSessions returns the owner's sessions, most recently updated first.
	ListSessions(ctx context.Context, ownerID string) ([]domain.SessionSummary, error)

	// RenameSession changes a session's title.
	RenameSession(ctx context.Context, ownerID, id, title string) error

	// DeleteSession removes a session and its messages.
	DeleteSession(ctx context.Context, ownerID, id string) error
}
