package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
)

// Ensure SessionStore implements the interface.
var _ driven.SessionStore = (*SessionStore)(nil)

// SessionStore is an in-memory implementation of driven.SessionStore.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]domain.Session
}

// NewSessionStore creates a new in-memory session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]domain.Session),
	}
}

// CreateSession stores a new session with its initial messages.
func (s *SessionStore) CreateSession(_ context.Context, session *domain.Session) error {
	if session == nil || session.ID == "" || session.OwnerID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[session.ID]; ok {
		return domain.ErrAlreadyExists
	}

	now := time.Now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	if session.UpdatedAt.IsZero() {
		session.UpdatedAt = session.CreatedAt
	}
	stored := *session
	stored.Messages = append([]domain.Message(nil), session.Messages...)
	s.sessions[session.ID] = stored
	return nil
}

// GetSession returns a copy of the owner's session.
func (s *SessionStore) GetSession(_ context.Context, ownerID, id string) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok || session.OwnerID != ownerID {
		return nil, domain.ErrNotFound
	}
	session.Messages = append([]domain.Message{}, session.Messages...)
	return &session, nil
}

// AppendMessages appends messages and bumps updated_at.
func (s *SessionStore) AppendMessages(_ context.Context, ownerID, id string, messages []domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok || session.OwnerID != ownerID {
		return domain.ErrNotFound
	}
	session.Messages = append(append([]domain.Message(nil), session.Messages...), messages...)
	session.UpdatedAt = time.Now().UTC()
	s.sessions[id] = session
	return nil
}

// ListSessions returns the owner's sessions, most recently updated first.
func (s *SessionStore) ListSessions(_ context.Context, ownerID string) ([]domain.SessionSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.SessionSummary{}
	for _, session := range s.sessions {
		if session.OwnerID != ownerID {
			continue
		}
		out = append(out, domain.SessionSummary{
			ID:           session.ID,
			Title:        session.Title,
			MessageCount: len(session.Messages),
			CreatedAt:    session.CreatedAt,
			UpdatedAt:    session.UpdatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// RenameSession changes a session's title.
func (s *SessionStore) RenameSession(_ context.Context, ownerID, id, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok || session.OwnerID != ownerID {
		return domain.ErrNotFound
	}
	session.Title = title
	session.UpdatedAt = time.Now().UTC()
	s.sessions[id] = session
	return nil
}

// DeleteSession removes a session and its messages.
func (s *SessionStore) DeleteSession(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok || session.OwnerID != ownerID {
		return domain.ErrNotFound
	}
	delete(s.sessions, id)
	return nil
}
