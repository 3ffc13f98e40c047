// Package sessions provides the stored conversations view for the TUI.
package sessions

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/ragdesk/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/ragdesk/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/ragdesk/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/ragdesk/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driving"
)

// View lists the owner's sessions. Enter resumes one in the chat view.
type View struct {
	styles         *styles.Styles
	keymap         *keymap.KeyMap
	list           *list.SessionList
	sessionService driving.SessionService
	ctx            context.Context
	ownerID        string

	width   int
	height  int
	loading bool
	err     error
}

// NewView creates a new sessions view.
func NewView(s *styles.Styles, km *keymap.KeyMap, sessionService driving.SessionService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &View{
		styles:         s,
		keymap:         km,
		list:           list.NewSessionList(s),
		sessionService: sessionService,
		ctx:            context.Background(),
		width:          80,
		height:         24,
	}
}

// WithContext sets the context for the view.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// WithOwner scopes the listing to ownerID.
func (v *View) WithOwner(ownerID string) *View {
	v.ownerID = ownerID
	return v
}

// Init loads the sessions.
func (v *View) Init() tea.Cmd {
	v.loading = true
	return v.loadSessions()
}

func (v *View) loadSessions() tea.Cmd {
	return func() tea.Msg {
		if v.sessionService == nil {
			return messages.SessionsLoaded{Err: errors.New("session service not available")}
		}
		summaries, err := v.sessionService.List(v.ctx, v.ownerID)
		return messages.SessionsLoaded{Sessions: summaries, Err: err}
	}
}

func (v *View) deleteSession(id string) tea.Cmd {
	return func() tea.Msg {
		if v.sessionService == nil {
			return messages.SessionDeleted{ID: id, Err: errors.New("session service not available")}
		}
		return messages.SessionDeleted{ID: id, Err: v.sessionService.Delete(v.ctx, v.ownerID, id)}
	}
}

// Update handles messages for the sessions view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.SessionsLoaded:
		v.loading = false
		v.err = msg.Err
		if msg.Err == nil {
			v.list.SetSessions(msg.Sessions)
		}
		return v, nil

	case messages.SessionDeleted:
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		return v, v.loadSessions()

	case messages.ErrorOccurred:
		v.err = msg.Err
		return v, nil
	}

	return v, nil
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	keyStr := msg.String()

	switch {
	case keymap.Matches(keyStr, v.keymap.Back):
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}

	case keymap.Matches(keyStr, v.keymap.Select):
		if session := v.list.SelectedSession(); session != nil {
			id := session.ID
			return v, func() tea.Msg {
				return messages.SessionSelected{ID: id}
			}
		}
		return v, nil

	case keymap.Matches(keyStr, v.keymap.Delete):
		if session := v.list.SelectedSession(); session != nil {
			return v, v.deleteSession(session.ID)
		}
		return v, nil

	case keymap.Matches(keyStr, v.keymap.Reload):
		v.loading = true
		return v, v.loadSessions()
	}

	v.list, _ = v.list.Update(msg)
	return v, nil
}

// View renders the sessions view.
func (v *View) View() string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render(fmt.Sprintf("Conversations (%d)", v.list.Count())))
	b.WriteString("\n\n")

	switch {
	case v.loading:
		b.WriteString(v.styles.Muted.Render("Loading conversations..."))
	case v.err != nil:
		b.WriteString(v.styles.Error.Render(fmt.Sprintf("Error: %s", v.err.Error())))
	default:
		b.WriteString(v.list.View())
	}

	b.WriteString("\n\n")
	b.WriteString(v.styles.Help.Render("[↑/↓] navigate  [enter] resume  [d] delete  [r] reload  [esc] back"))

	return b.String()
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	// Title (2) and help (2)
	v.list.SetDimensions(width, max(height-4, 2))
}

// List returns the underlying session list.
func (v *View) List() *list.SessionList {
	return v.list
}

// Loading reports whether a reload is in flight.
func (v *View) Loading() bool {
	return v.loading
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}
