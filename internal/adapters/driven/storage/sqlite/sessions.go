package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
)

// sessionStore implements driven.SessionStore.
type sessionStore struct {
	store *Store
}

var _ driven.SessionStore = (*sessionStore)(nil)

// CreateSession stores a new session with its initial messages in one transaction.
func (s *sessionStore) CreateSession(ctx context.Context, session *domain.Session) error {
	if session == nil || session.ID == "" || session.OwnerID == "" {
		return domain.ErrInvalidInput
	}

	now := time.Now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	if session.UpdatedAt.IsZero() {
		session.UpdatedAt = session.CreatedAt
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return persistErr("beginning transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sessions (id, owner_id, title, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, session.ID, session.OwnerID, session.Title, session.CreatedAt.UTC(), session.UpdatedAt.UTC())
	if err != nil {
		if isConstraint(err) {
			return fmt.Errorf("session %s: %w", session.ID, domain.ErrAlreadyExists)
		}
		return persistErr("creating session", err)
	}

	if err := insertMessages(ctx, tx, session.ID, session.Messages, session.UpdatedAt.UTC()); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return persistErr("committing session", err)
	}
	return nil
}

// GetSession returns the owner's session with its messages in order.
func (s *sessionStore) GetSession(ctx context.Context, ownerID, id string) (*domain.Session, error) {
	var session domain.Session
	err := s.store.db.QueryRowContext(ctx, `
		SELECT id, owner_id, title, created_at, updated_at
		FROM sessions WHERE id = ? AND owner_id = ?
	`, id, ownerID).Scan(&session.ID, &session.OwnerID, &session.Title, &session.CreatedAt, &session.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning session: %w", err)
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT role, content FROM messages WHERE session_id = ? ORDER BY id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	session.Messages = []domain.Message{}
	for rows.Next() {
		var role, content string
		if err := rows.Scan(&role, &content); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		session.Messages = append(session.Messages, domain.Message{Role: domain.Role(role), Content: content})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating messages: %w", err)
	}

	return &session, nil
}

// AppendMessages appends messages and bumps updated_at atomically.
// Either every message lands or none does.
func (s *sessionStore) AppendMessages(ctx context.Context, ownerID, id string, messages []domain.Message) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return persistErr("beginning transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx, `
		UPDATE sessions SET updated_at = ? WHERE id = ? AND owner_id = ?
	`, now, id, ownerID)
	if err != nil {
		return persistErr("touching session", err)
	}
	if err := requireRow(res); err != nil {
		return err
	}

	if err := insertMessages(ctx, tx, id, messages, now); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return persistErr("committing messages", err)
	}
	return nil
}

// ListSessions returns the owner's sessions, most recently updated first.
func (s *sessionStore) ListSessions(ctx context.Context, ownerID string) ([]domain.SessionSummary, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT s.id, s.title, s.created_at, s.updated_at, COUNT(m.id)
		FROM sessions s
		LEFT JOIN messages m ON m.session_id = s.id
		WHERE s.owner_id = ?
		GROUP BY s.id
		ORDER BY s.updated_at DESC, s.id
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	summaries := []domain.SessionSummary{}
	for rows.Next() {
		var sum domain.SessionSummary
		if err := rows.Scan(&sum.ID, &sum.Title, &sum.CreatedAt, &sum.UpdatedAt, &sum.MessageCount); err != nil {
			return nil, fmt.Errorf("scanning session summary: %w", err)
		}
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sessions: %w", err)
	}
	return summaries, nil
}

// RenameSession changes a session's title.
func (s *sessionStore) RenameSession(ctx context.Context, ownerID, id, title string) error {
	res, err := s.store.db.ExecContext(ctx, `
		UPDATE sessions SET title = ?, updated_at = ? WHERE id = ? AND owner_id = ?
	`, title, time.Now().UTC(), id, ownerID)
	if err != nil {
		return persistErr("renaming session", err)
	}
	return requireRow(res)
}

// DeleteSession removes a session; its messages go with it.
func (s *sessionStore) DeleteSession(ctx context.Context, ownerID, id string) error {
	res, err := s.store.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return persistErr("deleting session", err)
	}
	return requireRow(res)
}

func insertMessages(ctx context.Context, tx *sql.Tx, sessionID string, messages []domain.Message, at time.Time) error {
	if len(messages) == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO messages (session_id, role, content, created_at) VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return persistErr("preparing statement", err)
	}
	defer stmt.Close()

	for _, m := range messages {
		if _, err := stmt.ExecContext(ctx, sessionID, string(m.Role), m.Content, at); err != nil {
			return persistErr("saving message", err)
		}
	}
	return nil
}

// isConstraint reports a uniqueness or key violation.
func isConstraint(err error) bool {
	return err != nil && strings.Contains(err.Error(), "constraint failed")
}
