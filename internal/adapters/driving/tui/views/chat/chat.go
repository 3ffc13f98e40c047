// Package chat provides the conversation view for the TUI.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/ragdesk/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/ragdesk/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/ragdesk/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/ragdesk/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/ragdesk/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driving"
)

// streamBuffer is how many fragments may queue before the producer waits.
const streamBuffer = 32

// Turn is one message in the rendered transcript.
type Turn struct {
	Role    domain.Role
	Content string
	Sources []domain.Source
	Err     error
}

// View is the chat view: transcript, question input and status bar.
type View struct {
	styles     *styles.Styles
	keymap     *keymap.KeyMap
	input      *input.ChatInput
	transcript viewport.Model
	statusbar  *status.Bar

	chatService    driving.ChatService
	sessionService driving.SessionService
	ctx            context.Context
	ownerID        string

	sessionID string
	turns     []Turn
	stream    <-chan tea.Msg

	width  int
	height int
	ready  bool
	err    error
}

// NewView creates a new chat view.
func NewView(
	s *styles.Styles,
	km *keymap.KeyMap,
	chatService driving.ChatService,
	sessionService driving.SessionService,
) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &View{
		styles:         s,
		keymap:         km,
		input:          input.NewChatInput(s),
		transcript:     viewport.New(80, 16),
		statusbar:      status.NewBar(s, km),
		chatService:    chatService,
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

// WithOwner scopes the conversation to ownerID.
func (v *View) WithOwner(ownerID string) *View {
	v.ownerID = ownerID
	return v
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return tea.Batch(v.input.Focus(), v.input.Init())
}

// Update handles messages for the chat view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.FragmentReceived:
		v.appendFragment(msg.Text)
		v.statusbar.SetState(status.StateStreaming)
		return v, listen(v.stream)

	case messages.AnswerCompleted:
		v.handleAnswerCompleted(msg)
		return v, nil

	case messages.SessionLoaded:
		v.handleSessionLoaded(msg)
		return v, nil

	case messages.ErrorOccurred:
		v.err = msg.Err
		v.statusbar.SetState(status.StateError)
		v.statusbar.SetMessage(msg.Err.Error())
		return v, nil
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

// handleKeyMsg processes keyboard input.
func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	keyStr := msg.String()

	switch {
	case keymap.Matches(keyStr, v.keymap.Back):
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}

	case keymap.Matches(keyStr, v.keymap.ScrollUp), keymap.Matches(keyStr, v.keymap.ScrollDown):
		var cmd tea.Cmd
		v.transcript, cmd = v.transcript.Update(msg)
		return v, cmd

	case keymap.Matches(keyStr, v.keymap.NewChat):
		if v.Streaming() {
			return v, nil
		}
		v.Reset()
		return v, v.input.Focus()

	case keymap.Matches(keyStr, v.keymap.Send):
		if v.Streaming() {
			return v, nil
		}
		question := v.input.Value()
		if question == "" {
			return v, nil
		}
		v.input.Reset()
		return v, v.ask(question)
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

// ask starts a streamed answer. Fragments arrive as FragmentReceived
// messages and the final result as AnswerCompleted.
func (v *View) ask(question string) tea.Cmd {
	v.err = nil
	v.turns = append(v.turns,
		Turn{Role: domain.RoleUser, Content: question},
		Turn{Role: domain.RoleAssistant},
	)
	v.statusbar.SetState(status.StateThinking)
	v.refresh()

	if v.chatService == nil {
		v.stream = nil
		return func() tea.Msg {
			return messages.AnswerCompleted{Err: errors.New("chat service not available")}
		}
	}

	ch := make(chan tea.Msg, streamBuffer)
	v.stream = ch

	ctx := v.ctx
	req := driving.ChatRequest{
		OwnerID:   v.ownerID,
		SessionID: v.sessionID,
		Question:  question,
	}
	go func() {
		defer close(ch)
		answer, err := v.chatService.AskStream(ctx, req, func(fragment string) error {
			select {
			case ch <- messages.FragmentReceived{Text: fragment}:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		select {
		case ch <- messages.AnswerCompleted{Answer: answer, Err: err}:
		case <-ctx.Done():
		}
	}()

	return listen(ch)
}

// listen waits for the next message from a running stream.
func listen(ch <-chan tea.Msg) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}

func (v *View) appendFragment(text string) {
	if n := len(v.turns); n > 0 && v.turns[n-1].Role == domain.RoleAssistant {
		v.turns[n-1].Content += text
	}
	v.refresh()
}

func (v *View) handleAnswerCompleted(msg messages.AnswerCompleted) {
	v.stream = nil
	last := len(v.turns) - 1

	persistOnly := msg.Err != nil && errors.Is(msg.Err, domain.ErrPersistenceFailed)
	if msg.Answer != nil && (msg.Err == nil || persistOnly) {
		v.sessionID = msg.Answer.SessionID
		v.statusbar.SetTitle(msg.Answer.Title)
		if last >= 0 {
			v.turns[last].Content = msg.Answer.Answer
			v.turns[last].Sources = msg.Answer.Sources
		}
		if persistOnly {
			v.statusbar.SetState(status.StateWarning)
			v.statusbar.SetMessage("answer was not saved")
		} else {
			v.statusbar.SetState(status.StateReady)
		}
		v.refresh()
		return
	}

	v.err = msg.Err
	if v.err == nil {
		v.err = errors.New("no answer produced")
	}
	if last >= 0 {
		v.turns[last].Err = v.err
	}
	v.statusbar.SetState(status.StateError)
	v.statusbar.SetMessage(v.err.Error())
	v.refresh()
}

// LoadSession returns a command that loads a stored session for resuming.
func (v *View) LoadSession(sessionID string) tea.Cmd {
	return func() tea.Msg {
		if v.sessionService == nil {
			return messages.SessionLoaded{Err: errors.New("session service not available")}
		}
		session, err := v.sessionService.Get(v.ctx, v.ownerID, sessionID)
		return messages.SessionLoaded{Session: session, Err: err}
	}
}

func (v *View) handleSessionLoaded(msg messages.SessionLoaded) {
	if msg.Err != nil {
		v.err = msg.Err
		v.statusbar.SetState(status.StateError)
		v.statusbar.SetMessage(msg.Err.Error())
		return
	}

	v.Reset()
	v.sessionID = msg.Session.ID
	v.statusbar.SetTitle(msg.Session.Title)
	for _, m := range msg.Session.Messages {
		v.turns = append(v.turns, Turn{Role: m.Role, Content: m.Content})
	}
	v.refresh()
}

// refresh re-renders the transcript and keeps the newest text in view.
func (v *View) refresh() {
	v.transcript.SetContent(v.renderTranscript())
	v.transcript.GotoBottom()
}

func (v *View) renderTranscript() string {
	if len(v.turns) == 0 {
		return v.styles.Muted.Render("Ask a question about your documents to begin.")
	}

	wrap := lipgloss.NewStyle().Width(max(v.width-2, 20))
	blocks := make([]string, 0, len(v.turns))
	for _, turn := range v.turns {
		var b strings.Builder
		b.WriteString(v.styles.Role(turn.Role).Render(roleLabel(turn.Role)))
		b.WriteString("\n")

		switch {
		case turn.Err != nil:
			b.WriteString(v.styles.Error.Render(turn.Err.Error()))
		case turn.Content == "" && turn.Role == domain.RoleAssistant:
			b.WriteString(v.styles.Muted.Render("..."))
		default:
			b.WriteString(wrap.Render(turn.Content))
		}

		if len(turn.Sources) > 0 {
			b.WriteString("\n")
			b.WriteString(v.styles.Source.Render("Sources: " + describeSources(turn.Sources)))
		}
		blocks = append(blocks, b.String())
	}
	return strings.Join(blocks, "\n\n")
}

func roleLabel(role domain.Role) string {
	if role == domain.RoleUser {
		return "You"
	}
	return "Assistant"
}

// describeSources renders attribution as "file p.N (score)" entries.
func describeSources(sources []domain.Source) string {
	parts := make([]string, 0, len(sources))
	for _, src := range sources {
		name := "unknown"
		if src.Filename != nil {
			name = *src.Filename
		}
		if src.Page != nil {
			name = fmt.Sprintf("%s p.%d", name, *src.Page)
		}
		parts = append(parts, fmt.Sprintf("%s (%.2f)", name, src.Score))
	}
	return strings.Join(parts, ", ")
}

// View renders the chat view.
func (v *View) View() string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render("Chat"))
	b.WriteString("\n\n")
	b.WriteString(v.transcript.View())
	b.WriteString("\n")
	b.WriteString(v.input.View())
	b.WriteString("\n")
	b.WriteString(v.statusbar.View())

	return b.String()
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true

	// Title (2), input with border (3), status bar (1), separators (2).
	v.transcript.Width = width
	v.transcript.Height = max(height-8, 3)
	v.input.SetWidth(width)
	v.statusbar.SetWidth(width)
	v.refresh()
}

// Reset starts a new conversation.
func (v *View) Reset() {
	v.sessionID = ""
	v.turns = nil
	v.err = nil
	v.input.Reset()
	v.statusbar.Clear()
	v.refresh()
}

// SessionID returns the current session, empty before the first answer.
func (v *View) SessionID() string {
	return v.sessionID
}

// Turns returns the rendered transcript entries.
func (v *View) Turns() []Turn {
	return v.turns
}

// Streaming reports whether an answer is in progress.
func (v *View) Streaming() bool {
	return v.stream != nil
}

// Status returns the status bar state.
func (v *View) Status() status.State {
	return v.statusbar.State()
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}
