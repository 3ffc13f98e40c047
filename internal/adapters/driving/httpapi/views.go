package httpapi

import (
	"time"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
)

type documentView struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	MIMEType   string    `json:"mime_type"`
	Category   string    `json:"category,omitempty"`
	Collection string    `json:"collection"`
	Size       int64     `json:"size"`
	Status     string    `json:"status"`
	ChunkCount int       `json:"chunk_count"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func toDocumentView(d *domain.Document) documentView {
	return documentView{
		ID:         d.ID,
		Filename:   d.Filename,
		MIMEType:   d.MIMEType,
		Category:   d.Category,
		Collection: d.Collection,
		Size:       d.Size,
		Status:     d.Status.String(),
		ChunkCount: d.ChunkCount,
		Error:      d.Error,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}

type hitView struct {
	Text     string         `json:"text"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata"`
}

type answerView struct {
	SessionID string          `json:"session_id"`
	State     string          `json:"state"`
	Title     string          `json:"title"`
	Answer    string          `json:"answer,omitempty"`
	Sources   []domain.Source `json:"sources"`
	Persisted bool            `json:"persisted"`
}

func toAnswerView(a *domain.Answer, persisted bool) answerView {
	sources := a.Sources
	if sources == nil {
		sources = []domain.Source{}
	}
	return answerView{
		SessionID: a.SessionID,
		State:     a.State.String(),
		Title:     a.Title,
		Answer:    a.Answer,
		Sources:   sources,
		Persisted: persisted,
	}
}

type sessionSummaryView struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	MessageCount int       `json:"message_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type messageView struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type sessionView struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Messages  []messageView `json:"messages"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

func toSessionView(s *domain.Session) sessionView {
	messages := make([]messageView, 0, len(s.Messages))
	for _, m := range s.Messages {
		messages = append(messages, messageView{Role: string(m.Role), Content: m.Content})
	}
	return sessionView{
		ID:        s.ID,
		Title:     s.Title,
		Messages:  messages,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}
