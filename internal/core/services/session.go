package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driving"
)

// Ensure SessionService implements the interface.
var _ driving.SessionService = (*SessionService)(nil)

// SessionService manages stored conversations.
type SessionService struct {
	store driven.SessionStore
}

// NewSessionService creates a new session service.
func NewSessionService(store driven.SessionStore) *SessionService {
	return &SessionService{store: store}
}

// List returns the owner's sessions, most recently updated first.
func (s *SessionService) List(ctx context.Context, ownerID string) ([]domain.SessionSummary, error) {
	return s.store.ListSessions(ctx, normaliseOwner(ownerID))
}

// Get returns one session with its history.
func (s *SessionService) Get(ctx context.Context, ownerID, sessionID string) (*domain.Session, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, fmt.Errorf("session id is empty: %w", domain.ErrInvalidInput)
	}
	return s.store.GetSession(ctx, normaliseOwner(ownerID), sessionID)
}

// Rename changes the session title. Titles are capped like generated ones.
func (s *SessionService) Rename(ctx context.Context, ownerID, sessionID, title string) error {
	title = truncateRunes(title, MaxTitleRunes)
	if title == "" {
		return fmt.Errorf("title is empty: %w", domain.ErrInvalidInput)
	}
	return s.store.RenameSession(ctx, normaliseOwner(ownerID), sessionID, title)
}

// Delete removes the session and its messages.
func (s *SessionService) Delete(ctx context.Context, ownerID, sessionID string) error {
	return s.store.DeleteSession(ctx, normaliseOwner(ownerID), sessionID)
}
