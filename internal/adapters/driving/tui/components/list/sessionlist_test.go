package list

import (
	"fmt"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragdesk/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/ragdesk/internal/core/domain"
)

func testSessions(n int) []domain.SessionSummary {
	sessions := make([]domain.SessionSummary, n)
	for i := range sessions {
		sessions[i] = domain.SessionSummary{
			ID:           fmt.Sprintf("sess-%d", i),
			Title:        fmt.Sprintf("Conversation %d", i),
			MessageCount: 2 * (i + 1),
			UpdatedAt:    time.Date(2026, 1, 2, 3, 4, 0, 0, time.UTC),
		}
	}
	return sessions
}

func TestNewSessionList(t *testing.T) {
	l := NewSessionList(styles.DefaultStyles())

	require.NotNil(t, l)
	assert.True(t, l.IsEmpty())
	assert.Nil(t, l.SelectedSession())
	assert.Nil(t, l.Init())
}

func TestNewSessionList_NilStyles(t *testing.T) {
	l := NewSessionList(nil)

	assert.NotNil(t, l.styles)
}

func TestSessionList_Navigation(t *testing.T) {
	l := NewSessionList(nil)
	l.SetSessions(testSessions(3))

	l.MoveUp()
	assert.Equal(t, 0, l.Selected())

	l, _ = l.Update(tea.KeyMsg{Type: tea.KeyDown})
	l, _ = l.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}})
	assert.Equal(t, 2, l.Selected())

	l.MoveDown()
	assert.Equal(t, 2, l.Selected())

	l, _ = l.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'k'}})
	assert.Equal(t, 1, l.Selected())
	assert.Equal(t, "sess-1", l.SelectedSession().ID)
}

func TestSessionList_SetSessionsClampsSelection(t *testing.T) {
	l := NewSessionList(nil)
	l.SetSessions(testSessions(3))
	l.MoveDown()
	l.MoveDown()

	l.SetSessions(testSessions(1))
	assert.Equal(t, 0, l.Selected())

	l.SetSessions(nil)
	assert.Equal(t, 0, l.Selected())
	assert.Nil(t, l.SelectedSession())
}

func TestSessionList_View(t *testing.T) {
	l := NewSessionList(nil)

	assert.Contains(t, l.View(), "No conversations yet")

	l.SetSessions(testSessions(2))
	view := l.View()

	assert.Contains(t, view, "Conversation 0")
	assert.Contains(t, view, "Conversation 1")
	assert.Contains(t, view, "1 turns")
	assert.Contains(t, view, "> ")
}

func TestSessionList_View_ScrollsToSelection(t *testing.T) {
	l := NewSessionList(nil)
	l.SetDimensions(80, 6) // two sessions visible
	l.SetSessions(testSessions(5))
	for range 4 {
		l.MoveDown()
	}

	view := l.View()

	assert.Contains(t, view, "Conversation 4")
	assert.NotContains(t, view, "Conversation 0")
}

func TestSessionList_View_TruncatesLongTitles(t *testing.T) {
	l := NewSessionList(nil)
	l.SetDimensions(20, 10)
	l.SetSessions([]domain.SessionSummary{{ID: "s", Title: "A very long conversation title indeed"}})

	assert.Contains(t, l.View(), "...")
}

func TestSessionList_UntitledFallback(t *testing.T) {
	l := NewSessionList(nil)
	l.SetSessions([]domain.SessionSummary{{ID: "s"}})

	assert.Contains(t, l.View(), "(untitled)")
}
