package tui

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/ragdesk/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/ragdesk/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/ragdesk/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/ragdesk/internal/adapters/driving/tui/views/chat"
	"github.com/custodia-labs/ragdesk/internal/adapters/driving/tui/views/documents"
	"github.com/custodia-labs/ragdesk/internal/adapters/driving/tui/views/menu"
	"github.com/custodia-labs/ragdesk/internal/adapters/driving/tui/views/sessions"
)

// App is the main TUI application following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	// ports provides access to core services via driving ports.
	ports *Ports

	// ctx is the context for cancellation.
	ctx context.Context

	// ownerID scopes every request the views make.
	ownerID string

	// styles holds the TUI styles.
	styles *styles.Styles

	// menuView is the main navigation menu.
	menuView *menu.View

	// chatView holds the active conversation.
	chatView *chat.View

	// sessionsView lists stored conversations.
	sessionsView *sessions.View

	// documentsView lists the owner's documents.
	documentsView *documents.View

	// currentView tracks which view is active.
	currentView messages.ViewType

	// err holds the last error that occurred.
	err error

	// width and height are terminal dimensions.
	width  int
	height int

	// ready indicates if the app has initialised.
	ready bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a new TUI application with the given ports.
func NewApp(ports *Ports, ownerID string) (*App, error) {
	if ports == nil {
		return nil, errors.New("creating app: ports are required")
	}
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()

	return &App{
		ports:         ports,
		ctx:           context.Background(),
		ownerID:       ownerID,
		styles:        s,
		menuView:      menu.NewView(s),
		chatView:      chat.NewView(s, km, ports.Chat, ports.Sessions).WithOwner(ownerID),
		sessionsView:  sessions.NewView(s, km, ports.Sessions).WithOwner(ownerID),
		documentsView: documents.NewView(s, ports.Documents).WithOwner(ownerID),
		currentView:   messages.ViewMenu, // Start with menu
	}, nil
}

// WithContext sets the context for the app and its views.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	a.chatView.WithContext(ctx)
	a.sessionsView.WithContext(ctx)
	a.documentsView.WithContext(ctx)
	return a
}

// Init implements tea.Model.
// It runs initial commands when the program starts.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.EnterAltScreen,
		tea.SetWindowTitle("ragdesk - Chat with your documents"),
	)
}

// Update implements tea.Model.
// It handles messages and updates the model state.
//
//nolint:gocyclo // central message handler requires complexity
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		// Global quit with ctrl+c
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		return a.updateCurrent(msg)

	case messages.ViewChanged:
		return a, a.switchTo(msg.View)

	case messages.SessionSelected:
		a.currentView = messages.ViewChat
		return a, tea.Batch(a.chatView.Init(), a.chatView.LoadSession(msg.ID))

	// A stream keeps running after the user navigates away, so its
	// messages always go to the chat view.
	case messages.FragmentReceived, messages.AnswerCompleted, messages.SessionLoaded:
		a.chatView, cmd = a.chatView.Update(msg)
		return a, cmd

	case messages.SessionsLoaded, messages.SessionDeleted:
		a.sessionsView, cmd = a.sessionsView.Update(msg)
		return a, cmd

	case messages.DocumentsLoaded, messages.DocumentDeleted:
		a.documentsView, cmd = a.documentsView.Update(msg)
		return a, cmd

	case messages.ErrorOccurred:
		a.err = msg.Err
		return a.updateCurrent(msg)

	case messages.Quit:
		return a, tea.Quit
	}

	return a.updateCurrent(msg)
}

// switchTo activates a view and runs its initialisation.
func (a *App) switchTo(view messages.ViewType) tea.Cmd {
	a.currentView = view
	switch view {
	case messages.ViewChat:
		return a.chatView.Init()
	case messages.ViewSessions:
		return a.sessionsView.Init()
	case messages.ViewDocuments:
		return a.documentsView.Init()
	case messages.ViewMenu, messages.ViewHelp:
		// No initialisation needed
	}
	return nil
}

// updateCurrent forwards a message to the active view.
func (a *App) updateCurrent(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch a.currentView {
	case messages.ViewMenu:
		a.menuView, cmd = a.menuView.Update(msg)
	case messages.ViewChat:
		a.chatView, cmd = a.chatView.Update(msg)
	case messages.ViewSessions:
		a.sessionsView, cmd = a.sessionsView.Update(msg)
	case messages.ViewDocuments:
		a.documentsView, cmd = a.documentsView.Update(msg)
	case messages.ViewHelp:
		// Esc from help goes to menu
		if key, ok := msg.(tea.KeyMsg); ok && key.Type == tea.KeyEsc {
			a.currentView = messages.ViewMenu
		}
	}

	return a, cmd
}

// View implements tea.Model.
// It renders the current view as a string.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	switch a.currentView {
	case messages.ViewChat:
		return a.chatView.View()
	case messages.ViewSessions:
		return a.sessionsView.View()
	case messages.ViewDocuments:
		return a.documentsView.View()
	case messages.ViewHelp:
		return a.viewHelp()
	default:
		return a.menuView.View()
	}
}

// viewHelp renders the help view.
func (a *App) viewHelp() string {
	return `Help

Navigation:
  esc         Back to Menu
  ctrl+c      Quit

Menu:
  j/k, ↑/↓    Navigate options
  enter       Select option
  q           Quit

Chat:
  (type)      Enter a question
  enter       Send
  ctrl+n      Start a new conversation
  pgup/pgdn   Scroll the transcript
  esc         Back to Menu

Conversations:
  enter       Resume conversation
  d           Delete conversation
  r           Reload

Documents:
  enter       Actions
  d           Delete document
  r           Reload

[esc] back to menu`
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	return err
}

// CurrentView returns the current view type.
func (a *App) CurrentView() messages.ViewType {
	return a.currentView
}

// ChatView returns the conversation view.
func (a *App) ChatView() *chat.View {
	return a.chatView
}

// OwnerID returns the owner the app is scoped to.
func (a *App) OwnerID() string {
	return a.ownerID
}

// Err returns the last error that occurred.
func (a *App) Err() error {
	return a.err
}

// Ready returns whether the app has been initialised.
func (a *App) Ready() bool {
	return a.ready
}

// SetDimensions sets the terminal dimensions on the app and every view.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true
	a.menuView.SetDimensions(width, height)
	a.chatView.SetDimensions(width, height)
	a.sessionsView.SetDimensions(width, height)
	a.documentsView.SetDimensions(width, height)
}
