// Package menu provides the start screen of the TUI.
package menu

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/ragdesk/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/ragdesk/internal/adapters/driving/tui/styles"
)

// Item is a single menu entry.
type Item struct {
	Label string
	Hint  string
	View  messages.ViewType
	Quit  bool
}

// View is the start menu.
type View struct {
	styles   *styles.Styles
	items    []Item
	selected int
	width    int
	height   int
	ready    bool
}

// NewView creates the menu with its fixed entries.
func NewView(s *styles.Styles) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}

	return &View{
		styles: s,
		items: []Item{
			{Label: "Chat", Hint: "ask questions about your documents", View: messages.ViewChat},
			{Label: "Conversations", Hint: "resume or delete past conversations", View: messages.ViewSessions},
			{Label: "Documents", Hint: "review ingested files", View: messages.ViewDocuments},
			{Label: "Help", Hint: "key bindings", View: messages.ViewHelp},
			{Label: "Quit", Quit: true},
		},
		width:  80,
		height: 24,
	}
}

// Init implements tea.Model.
func (v *View) Init() tea.Cmd {
	return nil
}

// Update handles navigation. Digits jump straight to an entry.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		key := msg.String()
		switch key {
		case "up", "k":
			if v.selected > 0 {
				v.selected--
			}
		case "down", "j":
			if v.selected < len(v.items)-1 {
				v.selected++
			}
		case "enter":
			return v, v.choose(v.selected)
		case "q":
			return v, tea.Quit
		default:
			if len(key) == 1 && key[0] >= '1' && int(key[0]-'1') < len(v.items) {
				v.selected = int(key[0] - '1')
				return v, v.choose(v.selected)
			}
		}
	}

	return v, nil
}

func (v *View) choose(i int) tea.Cmd {
	item := v.items[i]
	if item.Quit {
		return tea.Quit
	}
	return func() tea.Msg {
		return messages.ViewChanged{View: item.View}
	}
}

// View renders the menu.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	var b strings.Builder
	b.WriteString(v.styles.Title.Render("ragdesk"))
	b.WriteString("\n")
	b.WriteString(v.styles.Subtitle.Render("Chat with your documents"))
	b.WriteString("\n\n")

	for i, item := range v.items {
		label := fmt.Sprintf("%d. %s", i+1, item.Label)
		if i == v.selected {
			b.WriteString("> " + v.styles.Selected.Render(label))
		} else {
			b.WriteString("  " + v.styles.Normal.Render(label))
		}
		if item.Hint != "" {
			b.WriteString("  " + v.styles.Muted.Render(item.Hint))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(v.styles.Help.Render("[j/k] navigate  [1-5] jump  [enter] select  [q] quit"))

	return b.String()
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
}

// Selected returns the highlighted index.
func (v *View) Selected() int {
	return v.selected
}
