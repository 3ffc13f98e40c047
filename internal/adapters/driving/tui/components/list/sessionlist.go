// Package list provides list display components for the TUI.
package list

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/ragdesk/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/ragdesk/internal/core/domain"
)

const timeLayout = "2006-01-02 15:04"

// SessionList displays stored conversations in a navigable list.
type SessionList struct {
	sessions []domain.SessionSummary
	selected int
	styles   *styles.Styles
	width    int
	height   int
}

// NewSessionList creates a new session list component.
func NewSessionList(s *styles.Styles) *SessionList {
	if s == nil {
		s = styles.DefaultStyles()
	}

	return &SessionList{
		styles: s,
		width:  80,
		height: 10,
	}
}

// Init initialises the list.
func (l *SessionList) Init() tea.Cmd {
	return nil
}

// Update handles list navigation messages.
func (l *SessionList) Update(msg tea.Msg) (*SessionList, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "up", "k":
			l.MoveUp()
		case "down", "j":
			l.MoveDown()
		}
	}
	return l, nil
}

// View renders the list.
func (l *SessionList) View() string {
	if len(l.sessions) == 0 {
		return l.styles.Muted.Render("No conversations yet")
	}

	// Each session takes two lines
	visibleCount := (l.height - 2) / 2
	if visibleCount < 1 {
		visibleCount = 1
	}

	start := 0
	if l.selected >= visibleCount {
		start = l.selected - visibleCount + 1
	}
	end := min(start+visibleCount, len(l.sessions))

	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		lines = append(lines, l.renderSession(i, &l.sessions[i]))
	}
	return strings.Join(lines, "\n")
}

// renderSession formats one session as a title line and a details line.
func (l *SessionList) renderSession(index int, session *domain.SessionSummary) string {
	indicator := "  "
	if index == l.selected {
		indicator = "> "
	}

	title := session.Title
	if title == "" {
		title = "(untitled)"
	}
	maxTitleLen := l.width - 4
	if maxTitleLen < 10 {
		maxTitleLen = 10
	}
	if runes := []rune(title); len(runes) > maxTitleLen {
		title = string(runes[:maxTitleLen-3]) + "..."
	}

	var titleLine string
	if index == l.selected {
		titleLine = l.styles.Selected.Render(indicator + title)
	} else {
		titleLine = l.styles.Normal.Render(indicator + title)
	}

	details := fmt.Sprintf("    %d turns, updated %s",
		session.MessageCount/2, session.UpdatedAt.Local().Format(timeLayout))
	return titleLine + "\n" + l.styles.Muted.Render(details)
}

// SetSessions replaces the list contents, keeping the selection in range.
func (l *SessionList) SetSessions(sessions []domain.SessionSummary) {
	l.sessions = sessions
	if l.selected >= len(sessions) {
		l.selected = max(len(sessions)-1, 0)
	}
}

// Sessions returns the current sessions.
func (l *SessionList) Sessions() []domain.SessionSummary {
	return l.sessions
}

// Selected returns the index of the selected session.
func (l *SessionList) Selected() int {
	return l.selected
}

// SelectedSession returns the currently selected session, or nil if none.
func (l *SessionList) SelectedSession() *domain.SessionSummary {
	if l.selected < 0 || l.selected >= len(l.sessions) {
		return nil
	}
	return &l.sessions[l.selected]
}

// MoveUp moves selection up.
func (l *SessionList) MoveUp() {
	if l.selected > 0 {
		l.selected--
	}
}

// MoveDown moves selection down.
func (l *SessionList) MoveDown() {
	if l.selected < len(l.sessions)-1 {
		l.selected++
	}
}

// SetDimensions sets the component dimensions.
func (l *SessionList) SetDimensions(width, height int) {
	l.width = width
	l.height = height
}

// Count returns the number of sessions.
func (l *SessionList) Count() int {
	return len(l.sessions)
}

// IsEmpty returns whether the list is empty.
func (l *SessionList) IsEmpty() bool {
	return len(l.sessions) == 0
}
